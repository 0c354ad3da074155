// Package question はQ&Aフィードバックのドメインロジックを提供する。
package question

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/repository"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/security"
)

// Service はQ&Aフィードバックのサービス層。
type Service struct {
	questionRepo repository.QuestionRepository
	sanitizer    security.TextSanitizerService
}

// NewService はServiceを生成する。
func NewService(questionRepo repository.QuestionRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		questionRepo: questionRepo,
		sanitizer:    sanitizer,
	}
}

// Submit はフィードバックを登録する。
// questionは必須。emailは認証済みセッションから解決された値を渡す。
// nameが未指定の場合は既定の表示名を使う。
func (s *Service) Submit(ctx context.Context, ownerID, email, questionText string, name *string, mailSent *bool) (*model.QuestionEntry, error) {
	if questionText == "" {
		return nil, model.NewInvalidInputError("question is missing")
	}

	displayName := model.DefaultDisplayName
	if name != nil && *name != "" {
		displayName = s.sanitizer.Sanitize(*name)
	}

	entry := &model.QuestionEntry{
		OwnerID:    ownerID,
		Date:       time.Now().Format("02.01.2006"),
		Question:   s.sanitizer.Sanitize(questionText),
		IsAnswered: false,
		Name:       displayName,
		Email:      email,
		MailSent:   mailSent,
	}

	if err := s.questionRepo.Create(ctx, entry); err != nil {
		slog.Error("フィードバックの登録に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return nil, model.NewWriteError()
	}

	return entry, nil
}
