// Package identity は外部IdPのID表明とローカルアカウントの突合を提供する。
// 既存リンクの解決、新規アカウントのプロビジョニング（補償付きサーガ）、
// 既存アカウントへのワンタイムパスコード送信を含む。
package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/ksuid"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/gateway"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/repository"
)

// AuthGateway は認証バックエンドに必要な操作のインターフェース。
// gateway.Clientの部分集合として定義する。
type AuthGateway interface {
	CreateAccount(ctx context.Context, email, secret string) (*gateway.CreatedAccount, error)
	DeleteAccount(ctx context.Context, accountID string) error
	SendOneTimePasscode(ctx context.Context, email string) error
}

// MetricsRecorder はプロビジョニング関連メトリクスの記録インターフェース。
type MetricsRecorder interface {
	RecordProvisionSuccess()
	RecordProvisionFailure(reason string)
	RecordCompensationFailure()
	RecordOTPDispatched()
}

// Service はID突合のビジネスロジックを提供する。
// リクエスト間で状態を持たず、すべての状態は呼び出しごとにバックエンドから再構築する。
type Service struct {
	gateway   AuthGateway
	identRepo repository.IdentityRepository
	metrics   MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(gw AuthGateway, identRepo repository.IdentityRepository, metrics MetricsRecorder) *Service {
	return &Service{
		gateway:   gw,
		identRepo: identRepo,
		metrics:   metrics,
	}
}

// ResolveResult はリンク解決の結果を表す。
// Foundがfalseの場合は未リンク（エラーではない）。
type ResolveResult struct {
	Found     bool
	AccountID string
}

// Resolve は(provider, subjectId)が既存アカウントに紐付いているかを判定する。
// 未知のproviderはルックアップ前に拒否する。副作用はない。
func (s *Service) Resolve(ctx context.Context, provider, subjectID string) (ResolveResult, error) {
	if !model.ValidProvider(provider) {
		return ResolveResult{}, model.NewInvalidInputError(fmt.Sprintf("unknown provider: %s", provider))
	}
	if subjectID == "" {
		return ResolveResult{}, model.NewInvalidInputError("subjectId is missing")
	}

	link, err := s.identRepo.FindByProviderAndSubjectID(ctx, provider, subjectID)
	if err != nil {
		slog.Error("リンク行の検索に失敗しました",
			slog.String("error", err.Error()),
			slog.String("provider", provider),
		)
		return ResolveResult{}, model.NewQueryError()
	}
	if link == nil {
		return ResolveResult{Found: false}, nil
	}

	return ResolveResult{Found: true, AccountID: link.AccountID}, nil
}

// ProvisionResult はプロビジョニング成功時の結果を表す。
type ProvisionResult struct {
	AccountID       string
	Credentials     model.SessionCredentials
	GeneratedSecret string
}

// Provision は新規アカウントとリンク行を1つの論理単位として作成する。
// リンク挿入に失敗した場合は作成済みアカウントを補償削除し、呼び出し前の
// 不変条件（リンク行のないアカウントが存在しない）を回復する。
// 補償削除自体が失敗した場合のみCompensationFailedを返し、運用者対応を要求する。
func (s *Service) Provision(ctx context.Context, provider, subjectID, email string) (*ProvisionResult, error) {
	if !model.ValidProvider(provider) {
		return nil, model.NewInvalidInputError(fmt.Sprintf("unknown provider: %s", provider))
	}

	saga := newProvisionSaga(s.gateway, s.identRepo, model.Provider(provider), subjectID, email)

	result, err := saga.run(ctx)
	if err != nil {
		if s.metrics != nil {
			if apiErr, ok := err.(*model.APIError); ok {
				s.metrics.RecordProvisionFailure(apiErr.Code)
				if apiErr.Code == model.ErrCodeCompensationFailed {
					s.metrics.RecordCompensationFailure()
				}
			}
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordProvisionSuccess()
	}
	slog.Info("新規アカウントをプロビジョニングしました",
		slog.String("account_id", result.AccountID),
		slog.String("provider", provider),
	)

	return result, nil
}

// Challenge は既存リンク済みアカウントのemailへワンタイムパスコードの送信を依頼する。
// 送信失敗はリトライせず、そのまま呼び出し元へ返す。アカウントやリンクの状態は変更しない。
func (s *Service) Challenge(ctx context.Context, email string) error {
	if err := s.gateway.SendOneTimePasscode(ctx, email); err != nil {
		slog.Error("ワンタイムパスコードの送信に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.NewBackendUnavailableError()
	}

	if s.metrics != nil {
		s.metrics.RecordOTPDispatched()
	}

	return nil
}

// TempAccountResult は一時アカウント作成の結果を表す。
type TempAccountResult struct {
	AccountID       string
	Email           string
	Credentials     model.SessionCredentials
	GeneratedSecret string
}

// CreateTempAccount はお試し用の一時アカウントを作成する。
// emailのサフィックスにはKSUIDを使用する。既存行を走査して最大連番を探す方式は
// 並行リクエスト間の競合を招くため採用しない。
func (s *Service) CreateTempAccount(ctx context.Context) (*TempAccountResult, error) {
	email := fmt.Sprintf("temp_user_%s@mail.com", ksuid.New().String())
	secret := newSecret()

	created, err := s.gateway.CreateAccount(ctx, email, secret)
	if err != nil {
		slog.Error("一時アカウントの作成に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewBackendUnavailableError()
	}

	slog.Info("一時アカウントを作成しました",
		slog.String("account_id", created.Account.ID),
	)

	return &TempAccountResult{
		AccountID:       created.Account.ID,
		Email:           created.Account.Email,
		Credentials:     created.Credentials,
		GeneratedSecret: secret,
	}, nil
}
