package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/identity"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// TempAccountCreator は一時アカウント作成のためのインターフェース。
type TempAccountCreator interface {
	// CreateTempAccount はお試し用の一時アカウントを作成する。
	CreateTempAccount(ctx context.Context) (*identity.TempAccountResult, error)
}

// AccountRemover はアカウント削除のためのインターフェース。
// gateway.Clientが実装する。
type AccountRemover interface {
	// DeleteAccount は認証バックエンドからアカウントを削除する。
	DeleteAccount(ctx context.Context, accountID string) error
}

// AccountHandler はアカウントのライフサイクル操作のHTTPハンドラー。
type AccountHandler struct {
	creator TempAccountCreator
	remover AccountRemover
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(creator TempAccountCreator, remover AccountRemover) *AccountHandler {
	return &AccountHandler{
		creator: creator,
		remover: remover,
	}
}

// tempAccountResponse は一時アカウント作成のAPIレスポンス。
type tempAccountResponse struct {
	AccountID          string                     `json:"accountId"`
	Email              string                     `json:"email"`
	SessionCredentials sessionCredentialsResponse `json:"sessionCredentials"`
	GeneratedSecret    string                     `json:"generatedSecret"`
}

// CreateTemp は一時アカウントの作成を処理する。
// POST /auth/temp-account
func (h *AccountHandler) CreateTemp(w http.ResponseWriter, r *http.Request) {
	result, err := h.creator.CreateTempAccount(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tempAccountResponse{
		AccountID: result.AccountID,
		Email:     result.Email,
		SessionCredentials: sessionCredentialsResponse{
			AccessToken:  result.Credentials.AccessToken,
			RefreshToken: result.Credentials.RefreshToken,
			ExpiresAt:    result.Credentials.ExpiresAt,
		},
		GeneratedSecret: result.GeneratedSecret,
	})
}

// Remove は呼び出し元自身のアカウント削除を処理する。
// DELETE /api/account
func (h *AccountHandler) Remove(w http.ResponseWriter, r *http.Request) {
	account, err := middleware.AccountFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.remover.DeleteAccount(r.Context(), account.ID); err != nil {
		slog.Error("アカウントの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID),
		)
		middleware.WriteAPIError(w, model.NewBackendUnavailableError())
		return
	}

	slog.Info("アカウントを削除しました", slog.String("account_id", account.ID))
	w.WriteHeader(http.StatusNoContent)
}
