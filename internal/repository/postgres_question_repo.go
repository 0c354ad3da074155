package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// PostgresQuestionRepo はPostgreSQLを使用したQ&Aフィードバックリポジトリ。
type PostgresQuestionRepo struct {
	db *sql.DB
}

// NewPostgresQuestionRepo はPostgresQuestionRepoを生成する。
func NewPostgresQuestionRepo(db *sql.DB) *PostgresQuestionRepo {
	return &PostgresQuestionRepo{db: db}
}

// Create はフィードバック行を作成し、払い出されたIDをentry.IDに書き戻す。
func (r *PostgresQuestionRepo) Create(ctx context.Context, entry *model.QuestionEntry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO questions (owner_id, date, question, is_answered, name, email, mail_sent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.OwnerID, entry.Date, entry.Question, entry.IsAnswered, entry.Name, entry.Email, entry.MailSent,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert question entry: %w", err)
	}

	return nil
}

// ListByOwnerID は指定オーナーの全フィードバックを返す。
func (r *PostgresQuestionRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*model.QuestionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, date, question, is_answered, name, email, mail_sent
		 FROM questions
		 WHERE owner_id = $1
		 ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list question entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.QuestionEntry
	for rows.Next() {
		e := &model.QuestionEntry{}
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Date, &e.Question, &e.IsAnswered, &e.Name, &e.Email, &e.MailSent); err != nil {
			return nil, fmt.Errorf("failed to scan question entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question entries: %w", err)
	}

	return entries, nil
}

// ReassignOwner はowner_idがoldOwnerIDの全行をnewOwnerIDに付け替える。
func (r *PostgresQuestionRepo) ReassignOwner(ctx context.Context, oldOwnerID, newOwnerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE questions SET owner_id = $1 WHERE owner_id = $2`,
		newOwnerID, oldOwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to reassign question owner: %w", err)
	}

	return nil
}

// compile-time interface check
var _ QuestionRepository = (*PostgresQuestionRepo)(nil)
