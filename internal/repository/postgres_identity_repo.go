package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pqUniqueViolation = "23505"

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndSubjectID はproviderとsubject_idでリンク行を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndSubjectID(ctx context.Context, provider, subjectID string) (*model.IdentityLink, error) {
	link := &model.IdentityLink{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, provider, subject_id, created_at
		 FROM identities
		 WHERE provider = $1 AND subject_id = $2`,
		provider, subjectID,
	).Scan(&link.ID, &link.AccountID, &link.Provider, &link.SubjectID, &link.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity link: %w", err)
	}

	return link, nil
}

// Create はリンク行を作成する。
// (provider, subject_id)の一意制約違反はErrDuplicateIdentityとして返す。
func (r *PostgresIdentityRepo) Create(ctx context.Context, link *model.IdentityLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, account_id, provider, subject_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		link.ID, link.AccountID, link.Provider, link.SubjectID, link.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to insert identity link: %w", err)
	}

	return nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
