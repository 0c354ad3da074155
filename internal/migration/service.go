// Package migration は旧システムアカウントの検索と、その所有レコードの
// 新アカウントへの所有権移行を提供する。
//
// 移行の3変種（プロフィール、Q&A、ヒストリー）は互いに独立で、単一の
// トランザクションには包まれない。部分的な移行はあり得る結果として
// PartialMigrationで通知する。これは設計上の強みではなく既知の一貫性の
// 妥協であり、冪等性（再実行で残りだけが処理される）が事実上の
// リトライ安全機構になっている。
package migration

import (
	"context"
	"log/slog"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/repository"
)

// 変種名。移行レスポンスとPartialMigrationのDetailで使用する。
const (
	variantProfile   = "profile"
	variantQuestions = "questionEntries"
	variantHistories = "historyEntries"
)

// MetricsRecorder は移行関連メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordMigrationSuccess()
	RecordPartialMigration()
}

// Service は旧アカウントの検索と所有権移行のビジネスロジックを提供する。
type Service struct {
	legacyRepo   repository.LegacyAccountRepository
	profileRepo  repository.ProfileRepository
	questionRepo repository.QuestionRepository
	historyRepo  repository.HistoryRepository
	metrics      MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	legacyRepo repository.LegacyAccountRepository,
	profileRepo repository.ProfileRepository,
	questionRepo repository.QuestionRepository,
	historyRepo repository.HistoryRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		legacyRepo:   legacyRepo,
		profileRepo:  profileRepo,
		questionRepo: questionRepo,
		historyRepo:  historyRepo,
		metrics:      metrics,
	}
}

// Locate はemailで旧アカウントを検索する。見つからない場合はnilを返す（エラーではない）。
func (s *Service) Locate(ctx context.Context, email string) (*model.LegacyAccount, error) {
	account, err := s.legacyRepo.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("旧アカウントの検索に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewQueryError()
	}

	return account, nil
}

// Result は所有権移行の結果を表す。各スライスは更新前のスナップショットで、
// 呼び出し元の監査・確認用に返す（後続処理には使用しない）。
type Result struct {
	Profiles        []*model.Profile
	QuestionEntries []*model.QuestionEntry
	HistoryEntries  []*model.HistoryEntry
}

// Migrate はlegacyIDが所有する全レコードの所有権をnewAccountIDへ移す。
// 変種ごとに「全行読み取り→一括更新」を独立に行い、0件の変種は更新を
// 発行せず空の結果を返す。一部の変種だけが失敗した場合はPartialMigrationを
// 返し、成功した変種名をDetailに載せる。
//
// 冪等: 全変種の成功後に同じ引数で再実行すると、全変種が0件となり空の結果を返す。
func (s *Service) Migrate(ctx context.Context, legacyID, newAccountID string) (*Result, error) {
	result := &Result{}
	var succeeded, failed []string

	// Q&Aフィードバック
	questions, err := s.migrateQuestions(ctx, legacyID, newAccountID)
	if err != nil {
		failed = append(failed, variantQuestions)
	} else {
		result.QuestionEntries = questions
		succeeded = append(succeeded, variantQuestions)
	}

	// ヒストリー
	histories, err := s.migrateHistories(ctx, legacyID, newAccountID)
	if err != nil {
		failed = append(failed, variantHistories)
	} else {
		result.HistoryEntries = histories
		succeeded = append(succeeded, variantHistories)
	}

	// プロフィール
	profiles, err := s.migrateProfiles(ctx, legacyID, newAccountID)
	if err != nil {
		failed = append(failed, variantProfile)
	} else {
		result.Profiles = profiles
		succeeded = append(succeeded, variantProfile)
	}

	if len(failed) > 0 {
		if s.metrics != nil {
			s.metrics.RecordPartialMigration()
		}
		slog.Error("所有権移行が部分的に失敗しました",
			slog.String("legacy_id", legacyID),
			slog.String("new_account_id", newAccountID),
			slog.Any("succeeded", succeeded),
			slog.Any("failed", failed),
		)
		return nil, model.NewPartialMigrationError(succeeded, failed)
	}

	if s.metrics != nil {
		s.metrics.RecordMigrationSuccess()
	}
	slog.Info("所有権移行が完了しました",
		slog.String("legacy_id", legacyID),
		slog.String("new_account_id", newAccountID),
		slog.Int("question_entries", len(result.QuestionEntries)),
		slog.Int("history_entries", len(result.HistoryEntries)),
		slog.Int("profiles", len(result.Profiles)),
	)

	return result, nil
}

// migrateQuestions はQ&A変種の移行を行い、更新前スナップショットを返す。
func (s *Service) migrateQuestions(ctx context.Context, legacyID, newAccountID string) ([]*model.QuestionEntry, error) {
	entries, err := s.questionRepo.ListByOwnerID(ctx, legacyID)
	if err != nil {
		slog.Error("移行対象Q&Aの読み取りに失敗しました", slog.String("error", err.Error()))
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if err := s.questionRepo.ReassignOwner(ctx, legacyID, newAccountID); err != nil {
		slog.Error("Q&Aの所有権更新に失敗しました", slog.String("error", err.Error()))
		return nil, err
	}

	return entries, nil
}

// migrateHistories はヒストリー変種の移行を行い、更新前スナップショットを返す。
func (s *Service) migrateHistories(ctx context.Context, legacyID, newAccountID string) ([]*model.HistoryEntry, error) {
	entries, err := s.historyRepo.ListByOwnerID(ctx, legacyID)
	if err != nil {
		slog.Error("移行対象ヒストリーの読み取りに失敗しました", slog.String("error", err.Error()))
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if err := s.historyRepo.ReassignOwner(ctx, legacyID, newAccountID); err != nil {
		slog.Error("ヒストリーの所有権更新に失敗しました", slog.String("error", err.Error()))
		return nil, err
	}

	return entries, nil
}

// migrateProfiles はプロフィール変種の移行を行い、更新前スナップショットを返す。
func (s *Service) migrateProfiles(ctx context.Context, legacyID, newAccountID string) ([]*model.Profile, error) {
	profiles, err := s.profileRepo.ListByOwnerID(ctx, legacyID)
	if err != nil {
		slog.Error("移行対象プロフィールの読み取りに失敗しました", slog.String("error", err.Error()))
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	if err := s.profileRepo.ReassignOwner(ctx, legacyID, newAccountID); err != nil {
		slog.Error("プロフィールの所有権更新に失敗しました", slog.String("error", err.Error()))
		return nil, err
	}

	return profiles, nil
}

// Preview は移行を実行せず、旧アカウントとその所有レコードを参照して返す。
// 移行前の確認画面用。見つからない場合はnilを返す。
func (s *Service) Preview(ctx context.Context, email string) (*model.LegacyAccount, *Result, error) {
	account, err := s.Locate(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, nil
	}

	questions, err := s.questionRepo.ListByOwnerID(ctx, account.LocalID)
	if err != nil {
		slog.Error("旧Q&Aの読み取りに失敗しました", slog.String("error", err.Error()))
		return nil, nil, model.NewQueryError()
	}

	histories, err := s.historyRepo.ListByOwnerID(ctx, account.LocalID)
	if err != nil {
		slog.Error("旧ヒストリーの読み取りに失敗しました", slog.String("error", err.Error()))
		return nil, nil, model.NewQueryError()
	}

	return account, &Result{
		QuestionEntries: questions,
		HistoryEntries:  histories,
	}, nil
}
