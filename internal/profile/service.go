// Package profile は禁煙トラッキング設定（プロフィール）のドメインロジックを提供する。
package profile

import (
	"context"
	"log/slog"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/repository"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/security"
)

// Service はプロフィール管理のサービス層。
type Service struct {
	profileRepo repository.ProfileRepository
	sanitizer   security.TextSanitizerService
}

// NewService はServiceを生成する。
func NewService(profileRepo repository.ProfileRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		profileRepo: profileRepo,
		sanitizer:   sanitizer,
	}
}

// InitInput はプロフィール初期化の入力を表す。
// 必須フィールドの指定有無はハンドラー側でポインタのnil判定により検証済みで、
// ここには確定値が渡される。任意属性のみポインタのまま保持する。
type InitInput struct {
	SelectedDateYear   int
	SelectedDateMonth  int
	SelectedDateDay    int
	SelectedTimeHour   int
	SelectedTimeMinute int
	StartDateYear      int
	StartDateMonth     int
	StartDateDay       int
	Money              float64
	Smol               int
	Cigarette          int
	Niko               float64
	Age                int

	Name     *string
	Currency *string
	IsPro    *bool
}

// Init はアカウントのプロフィールを初期化する。アカウントにつき1回のみ。
// すでに存在する場合はInvalidInputを返す。
func (s *Service) Init(ctx context.Context, ownerID string, in InitInput) (*model.Profile, error) {
	existing, err := s.profileRepo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		slog.Error("プロフィールの存在確認に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return nil, model.NewQueryError()
	}
	if existing != nil {
		return nil, model.NewInvalidInputError("profile already exists")
	}

	p := &model.Profile{
		OwnerID:            ownerID,
		SelectedDateYear:   in.SelectedDateYear,
		SelectedDateMonth:  in.SelectedDateMonth,
		SelectedDateDay:    in.SelectedDateDay,
		SelectedTimeHour:   in.SelectedTimeHour,
		SelectedTimeMinute: in.SelectedTimeMinute,
		StartDateYear:      in.StartDateYear,
		StartDateMonth:     in.StartDateMonth,
		StartDateDay:       in.StartDateDay,
		Money:              in.Money,
		Smol:               in.Smol,
		Cigarette:          in.Cigarette,
		Niko:               in.Niko,
		Age:                in.Age,
		Currency:           in.Currency,
		IsPro:              in.IsPro,
	}
	if in.Name != nil {
		sanitized := s.sanitizer.Sanitize(*in.Name)
		p.Name = &sanitized
	}

	if err := s.profileRepo.Create(ctx, p); err != nil {
		slog.Error("プロフィールの作成に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return nil, model.NewWriteError()
	}

	return p, nil
}

// Load は呼び出しアカウントのプロフィールを返す。未初期化の場合はNotFound。
func (s *Service) Load(ctx context.Context, ownerID string) (*model.Profile, error) {
	p, err := s.profileRepo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		slog.Error("プロフィールの取得に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return nil, model.NewQueryError()
	}
	if p == nil {
		return nil, model.NewNotFoundError("profile")
	}

	return p, nil
}

// UpdateNiko はニコチン量を更新する。プロフィールが未初期化の場合はNotFound。
func (s *Service) UpdateNiko(ctx context.Context, ownerID string, niko float64) error {
	if niko <= 0 {
		return model.NewInvalidInputError("niko must be positive")
	}

	existing, err := s.profileRepo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		slog.Error("プロフィールの存在確認に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return model.NewQueryError()
	}
	if existing == nil {
		return model.NewNotFoundError("profile")
	}

	if err := s.profileRepo.UpdateNiko(ctx, ownerID, niko); err != nil {
		slog.Error("ニコチン量の更新に失敗しました",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID),
		)
		return model.NewWriteError()
	}

	return nil
}
