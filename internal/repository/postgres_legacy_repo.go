package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// PostgresLegacyAccountRepo はPostgreSQLを使用した旧アカウントリポジトリ。
// legacy_accountsテーブルは参照のみで、INSERT/UPDATE/DELETEは発行しない。
type PostgresLegacyAccountRepo struct {
	db *sql.DB
}

// NewPostgresLegacyAccountRepo はPostgresLegacyAccountRepoを生成する。
func NewPostgresLegacyAccountRepo(db *sql.DB) *PostgresLegacyAccountRepo {
	return &PostgresLegacyAccountRepo{db: db}
}

// FindByEmail はemail完全一致で旧アカウントを検索し、先頭の1件を返す。
// 旧データではemailは一意である前提だが、重複していた場合はlocal_id昇順の
// 先頭を採用して結果を決定的にする。見つからない場合はnilを返す。
func (r *PostgresLegacyAccountRepo) FindByEmail(ctx context.Context, email string) (*model.LegacyAccount, error) {
	account := &model.LegacyAccount{}
	err := r.db.QueryRowContext(ctx,
		`SELECT local_id, email
		 FROM legacy_accounts
		 WHERE email = $1
		 ORDER BY local_id
		 LIMIT 1`,
		email,
	).Scan(&account.LocalID, &account.Email)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find legacy account: %w", err)
	}

	return account, nil
}

// compile-time interface check
var _ LegacyAccountRepository = (*PostgresLegacyAccountRepo)(nil)
