package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/identity"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// IdentityServiceInterface はアイデンティティリンクハンドラーが必要とするサービスインターフェース。
type IdentityServiceInterface interface {
	// Resolve は(provider, subjectId)が既存アカウントに紐付いているかを判定する。
	Resolve(ctx context.Context, provider, subjectID string) (identity.ResolveResult, error)
	// Provision は新規アカウントとリンク行を1つの論理単位として作成する。
	Provision(ctx context.Context, provider, subjectID, email string) (*identity.ProvisionResult, error)
	// Challenge はリンク済みアカウントのemailへワンタイムパスコードを送信する。
	Challenge(ctx context.Context, email string) error
}

// IdentityHandler はアイデンティティリンク確立のHTTPハンドラー。
type IdentityHandler struct {
	service IdentityServiceInterface
}

// NewIdentityHandler はIdentityHandlerを生成する。
func NewIdentityHandler(service IdentityServiceInterface) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// identityLinkRequest はアイデンティティリンク確立リクエストのボディ。
type identityLinkRequest struct {
	Email     string `json:"email"`
	SubjectID string `json:"subjectId"`
	Provider  string `json:"provider"`
}

// sessionCredentialsResponse はセッション資格情報のAPIレスポンス。
type sessionCredentialsResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// provisionedResponse は新規アカウント作成時のAPIレスポンス。
type provisionedResponse struct {
	AccountID          string                     `json:"accountId"`
	SessionCredentials sessionCredentialsResponse `json:"sessionCredentials"`
	GeneratedSecret    string                     `json:"generatedSecret"`
}

// otpDispatchedResponse は既存リンク検出時のAPIレスポンス。
type otpDispatchedResponse struct {
	OTPDispatched bool `json:"otpDispatched"`
}

// EstablishLink はアイデンティティリンクの確立を処理する。
// POST /auth/identity-link
//
// このエンドポイントは初回リンク確立専用であり、既にセッション資格情報を
// 持つ呼び出し元には401を返す。リンク済みの場合はワンタイムパスコードを
// 送信し、未リンクの場合は新規アカウントをプロビジョニングする。
func (h *IdentityHandler) EstablishLink(w http.ResponseWriter, r *http.Request) {
	// 認証済みの呼び出し元は対象外
	if r.Header.Get("Authorization") != "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req identityLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	if req.Email == "" || req.SubjectID == "" || req.Provider == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("email, subjectId and provider are required"))
		return
	}

	resolved, err := h.service.Resolve(r.Context(), req.Provider, req.SubjectID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	if resolved.Found {
		// 既存リンク: OTPチャレンジに切り替える
		if err := h.service.Challenge(r.Context(), req.Email); err != nil {
			middleware.WriteAPIError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, otpDispatchedResponse{OTPDispatched: true})
		return
	}

	result, err := h.service.Provision(r.Context(), req.Provider, req.SubjectID, req.Email)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, provisionedResponse{
		AccountID: result.AccountID,
		SessionCredentials: sessionCredentialsResponse{
			AccessToken:  result.Credentials.AccessToken,
			RefreshToken: result.Credentials.RefreshToken,
			ExpiresAt:    result.Credentials.ExpiresAt,
		},
		GeneratedSecret: result.GeneratedSecret,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
