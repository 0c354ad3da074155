package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `owner_id, selected_date_year, selected_date_month, selected_date_day,
	selected_time_hour, selected_time_minute, start_date_year, start_date_month, start_date_day,
	money, smol, cigarette, niko, age, name, currency, is_pro`

// scanProfile は1行分のプロフィールを読み取る。
func scanProfile(scan func(dest ...any) error) (*model.Profile, error) {
	p := &model.Profile{}
	err := scan(
		&p.OwnerID, &p.SelectedDateYear, &p.SelectedDateMonth, &p.SelectedDateDay,
		&p.SelectedTimeHour, &p.SelectedTimeMinute, &p.StartDateYear, &p.StartDateMonth, &p.StartDateDay,
		&p.Money, &p.Smol, &p.Cigarette, &p.Niko, &p.Age, &p.Name, &p.Currency, &p.IsPro,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByOwnerID は指定オーナーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByOwnerID(ctx context.Context, ownerID string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE owner_id = $1`,
		ownerID,
	)

	p, err := scanProfile(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return p, nil
}

// Create はプロフィール行を作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		profile.OwnerID, profile.SelectedDateYear, profile.SelectedDateMonth, profile.SelectedDateDay,
		profile.SelectedTimeHour, profile.SelectedTimeMinute,
		profile.StartDateYear, profile.StartDateMonth, profile.StartDateDay,
		profile.Money, profile.Smol, profile.Cigarette, profile.Niko, profile.Age,
		profile.Name, profile.Currency, profile.IsPro,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// UpdateNiko はニコチン量のみを更新する。
func (r *PostgresProfileRepo) UpdateNiko(ctx context.Context, ownerID string, niko float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET niko = $1 WHERE owner_id = $2`,
		niko, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update niko: %w", err)
	}

	return nil
}

// ListByOwnerID は指定オーナーの全プロフィール行を返す。
// owner_idは主キーなので高々1件だが、所有権移行のスナップショット取得で
// 他の変種と同じリスト形式に揃えている。
func (r *PostgresProfileRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// ReassignOwner はowner_idがoldOwnerIDの全行をnewOwnerIDに付け替える。
func (r *PostgresProfileRepo) ReassignOwner(ctx context.Context, oldOwnerID, newOwnerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET owner_id = $1 WHERE owner_id = $2`,
		newOwnerID, oldOwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to reassign profile owner: %w", err)
	}

	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
