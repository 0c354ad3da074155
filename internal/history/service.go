// Package history は禁煙ヒストリーのドメインロジックを提供する。
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/repository"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/security"
)

// maxPageLimit は公開リストの1ページあたり最大件数。
const maxPageLimit = 100

// formatEntryDate はヒストリー・Q&Aの日付表記（dd.mm.yyyy）を生成する。
func formatEntryDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// Service はヒストリー管理のサービス層。
type Service struct {
	historyRepo repository.HistoryRepository
	sanitizer   security.TextSanitizerService
}

// NewService はServiceを生成する。
func NewService(historyRepo repository.HistoryRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		historyRepo: historyRepo,
		sanitizer:   sanitizer,
	}
}

// Create は新規ヒストリーを作成する。
// textは必須。nameが未指定の場合は既定の表示名を使う。
// 日付と日時タイムスタンプはサーバー側で採番する。
func (s *Service) Create(ctx context.Context, ownerID, text string, name *string, isReady *bool) (*model.HistoryEntry, error) {
	if text == "" {
		return nil, model.NewInvalidInputError("user_text is missing")
	}

	displayName := model.DefaultDisplayName
	if name != nil && *name != "" {
		displayName = s.sanitizer.Sanitize(*name)
	}

	ready := false
	if isReady != nil {
		ready = *isReady
	}

	now := time.Now()
	entry := &model.HistoryEntry{
		OwnerID:       ownerID,
		Date:          formatEntryDate(now),
		DateTimestamp: now.UnixMilli(),
		Name:          displayName,
		Text:          s.sanitizer.Sanitize(text),
		IsReady:       ready,
	}

	if err := s.historyRepo.Create(ctx, entry); err != nil {
		slog.Error("ヒストリーの作成に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return nil, model.NewWriteError()
	}

	return entry, nil
}

// UpdateInput はヒストリーの部分更新内容を表す。
// nilのフィールドは更新しない。ゼロ値（falseや空文字）をnilと混同しないよう
// 呼び出し側はポインタで「指定の有無」を明示する。
type UpdateInput struct {
	Text    *string
	Name    *string
	IsReady *bool
}

// Update は指定ヒストリーを部分更新する。
// text・name・isReadyの少なくとも1つの指定が必要。日付は更新のたびに刷新される。
// 自分の所有でない行や存在しない行はNotFoundになる。
func (s *Service) Update(ctx context.Context, ownerID string, id int64, in UpdateInput) error {
	if in.Text == nil && in.Name == nil && in.IsReady == nil {
		return model.NewInvalidInputError("some data is missing")
	}

	now := time.Now()
	patch := repository.HistoryPatch{
		Date:          formatEntryDate(now),
		DateTimestamp: now.UnixMilli(),
		IsReady:       in.IsReady,
	}
	if in.Text != nil {
		sanitized := s.sanitizer.Sanitize(*in.Text)
		patch.Text = &sanitized
	}
	if in.Name != nil {
		sanitized := s.sanitizer.Sanitize(*in.Name)
		patch.Name = &sanitized
	}

	updated, err := s.historyRepo.UpdateByIDAndOwner(ctx, id, ownerID, patch)
	if err != nil {
		slog.Error("ヒストリーの更新に失敗しました",
			slog.String("error", err.Error()),
			slog.Int64("history_id", id),
		)
		return model.NewWriteError()
	}
	if !updated {
		return model.NewNotFoundError(fmt.Sprintf("history %d", id))
	}

	return nil
}

// ListMine は呼び出しアカウントの全ヒストリーを返す。
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*model.HistoryEntry, error) {
	entries, err := s.historyRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		slog.Error("ヒストリー一覧の取得に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return nil, model.NewQueryError()
	}

	return entries, nil
}

// ListPage は全ユーザーのヒストリーをページング付きで返す。
// limitは最大100、sortは"id"または"date_timestamp"のみ許可される。
func (s *Service) ListPage(ctx context.Context, sort string, limit, offset int) ([]*model.HistoryEntry, error) {
	if limit <= 0 || offset < 0 {
		return nil, model.NewInvalidInputError("invalid limit or offset")
	}
	if limit > maxPageLimit {
		return nil, model.NewInvalidInputError(fmt.Sprintf("max limit is %d", maxPageLimit))
	}
	if sort != "id" && sort != "date_timestamp" {
		return nil, model.NewInvalidInputError("invalid sort parameter")
	}

	entries, err := s.historyRepo.ListPage(ctx, sort, limit, offset)
	if err != nil {
		slog.Error("ヒストリーページの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewQueryError()
	}

	return entries, nil
}

// CountReady は公開済み（is_ready = true）ヒストリーの件数を返す。
func (s *Service) CountReady(ctx context.Context) (int, error) {
	count, err := s.historyRepo.CountReady(ctx)
	if err != nil {
		slog.Error("ヒストリー件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, model.NewQueryError()
	}

	return count, nil
}
