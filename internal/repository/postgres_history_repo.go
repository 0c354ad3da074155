package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// PostgresHistoryRepo はPostgreSQLを使用したヒストリーリポジトリ。
type PostgresHistoryRepo struct {
	db *sql.DB
}

// NewPostgresHistoryRepo はPostgresHistoryRepoを生成する。
func NewPostgresHistoryRepo(db *sql.DB) *PostgresHistoryRepo {
	return &PostgresHistoryRepo{db: db}
}

// Create はヒストリー行を作成し、払い出されたIDをentry.IDに書き戻す。
func (r *PostgresHistoryRepo) Create(ctx context.Context, entry *model.HistoryEntry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO histories (owner_id, date, date_timestamp, name, text, is_ready)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.OwnerID, entry.Date, entry.DateTimestamp, entry.Name, entry.Text, entry.IsReady,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// UpdateByIDAndOwner は指定IDかつ指定オーナーの行を部分更新する。
// patchのnilフィールドは既存値を維持する。更新対象が存在しない場合はfalseを返す。
func (r *PostgresHistoryRepo) UpdateByIDAndOwner(ctx context.Context, id int64, ownerID string, patch HistoryPatch) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE histories
		 SET date = $1,
		     date_timestamp = $2,
		     text = COALESCE($3, text),
		     name = COALESCE($4, name),
		     is_ready = COALESCE($5, is_ready)
		 WHERE id = $6 AND owner_id = $7`,
		patch.Date, patch.DateTimestamp, patch.Text, patch.Name, patch.IsReady,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update history entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ListByOwnerID は指定オーナーの全ヒストリーを返す。
func (r *PostgresHistoryRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*model.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, date, date_timestamp, name, text, is_ready
		 FROM histories
		 WHERE owner_id = $1
		 ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// ListPage は全ユーザーのヒストリーをソート・ページング付きで返す。
// sortは"id"または"date_timestamp"のみを受け付ける。それ以外はエラー。
func (r *PostgresHistoryRepo) ListPage(ctx context.Context, sort string, limit, offset int) ([]*model.HistoryEntry, error) {
	// ソートキーはSQLに直接埋め込むため許可リストで検証する
	var orderBy string
	switch sort {
	case "id":
		orderBy = "id"
	case "date_timestamp":
		orderBy = "date_timestamp"
	default:
		return nil, fmt.Errorf("unsupported sort key: %s", sort)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, date, date_timestamp, name, text, is_ready
		 FROM histories
		 ORDER BY `+orderBy+`
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history page: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// CountReady はis_ready = trueの行数を返す。
func (r *PostgresHistoryRepo) CountReady(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM histories WHERE is_ready = TRUE`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ready histories: %w", err)
	}

	return count, nil
}

// ReassignOwner はowner_idがoldOwnerIDの全行をnewOwnerIDに付け替える。
func (r *PostgresHistoryRepo) ReassignOwner(ctx context.Context, oldOwnerID, newOwnerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE histories SET owner_id = $1 WHERE owner_id = $2`,
		newOwnerID, oldOwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to reassign history owner: %w", err)
	}

	return nil
}

// scanHistoryRows は結果セットからヒストリーのスライスを組み立てる。
func scanHistoryRows(rows *sql.Rows) ([]*model.HistoryEntry, error) {
	var entries []*model.HistoryEntry
	for rows.Next() {
		e := &model.HistoryEntry{}
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Date, &e.DateTimestamp, &e.Name, &e.Text, &e.IsReady); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history entries: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ HistoryRepository = (*PostgresHistoryRepo)(nil)
