package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/identity"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// mockIdentityService はテスト用のIdentityServiceInterfaceモック。
type mockIdentityService struct {
	resolveResult identity.ResolveResult
	resolveErr    error

	provisionResult *identity.ProvisionResult
	provisionErr    error

	challengeErr error

	resolveCalls   int
	provisionCalls int
	challengeCalls int

	lastChallengeEmail string
}

func (m *mockIdentityService) Resolve(_ context.Context, provider, subjectID string) (identity.ResolveResult, error) {
	m.resolveCalls++
	return m.resolveResult, m.resolveErr
}

func (m *mockIdentityService) Provision(_ context.Context, provider, subjectID, email string) (*identity.ProvisionResult, error) {
	m.provisionCalls++
	return m.provisionResult, m.provisionErr
}

func (m *mockIdentityService) Challenge(_ context.Context, email string) error {
	m.challengeCalls++
	m.lastChallengeEmail = email
	return m.challengeErr
}

// postIdentityLink はアイデンティティリンクエンドポイントへのPOSTを実行する。
func postIdentityLink(h *IdentityHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/identity-link", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.EstablishLink(rec, req)
	return rec
}

// decodeErrorBody はエラーレスポンスのボディをデコードする。
func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// TestIdentityHandler_AuthorizationHeaderRejected はセッション資格情報を持つ
// 呼び出しが401で拒否されることをテストする。
func TestIdentityHandler_AuthorizationHeaderRejected(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewIdentityHandler(svc)

	rec := postIdentityLink(h, `{"email":"a@example.com","subjectId":"s","provider":"google"}`,
		map[string]string{"Authorization": "Bearer some-token"})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if svc.resolveCalls != 0 {
		t.Errorf("Resolve should not be called, got %d calls", svc.resolveCalls)
	}
}

// TestIdentityHandler_InvalidJSON は不正なJSONボディに400が返ることをテストする。
func TestIdentityHandler_InvalidJSON(t *testing.T) {
	h := NewIdentityHandler(&mockIdentityService{})

	rec := postIdentityLink(h, `{not json`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestIdentityHandler_MissingFields は必須フィールドの欠落に400が返ることをテストする。
func TestIdentityHandler_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"emailなし", `{"subjectId":"s","provider":"google"}`},
		{"subjectIdなし", `{"email":"a@example.com","provider":"google"}`},
		{"providerなし", `{"email":"a@example.com","subjectId":"s"}`},
		{"空ボディ", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewIdentityHandler(&mockIdentityService{})

			rec := postIdentityLink(h, tt.body, nil)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			body := decodeErrorBody(t, rec)
			if body["code"] != model.ErrCodeInvalidInput {
				t.Errorf("code = %v, want %q", body["code"], model.ErrCodeInvalidInput)
			}
		})
	}
}

// TestIdentityHandler_UnknownProvider は未知のproviderに400が返ることをテストする。
func TestIdentityHandler_UnknownProvider(t *testing.T) {
	svc := &mockIdentityService{
		resolveErr: model.NewInvalidInputError("unknown provider: microsoft"),
	}
	h := NewIdentityHandler(svc)

	rec := postIdentityLink(h, `{"email":"a@example.com","subjectId":"s","provider":"microsoft"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, rec)
	if body["code"] != model.ErrCodeInvalidInput {
		t.Errorf("code = %v, want %q", body["code"], model.ErrCodeInvalidInput)
	}
}

// TestIdentityHandler_ExistingLink_DispatchesOTP は既存リンク検出時にOTPが
// 送信され、otpDispatchedが返ることをテストする。
func TestIdentityHandler_ExistingLink_DispatchesOTP(t *testing.T) {
	svc := &mockIdentityService{
		resolveResult: identity.ResolveResult{Found: true, AccountID: "acc-9"},
	}
	h := NewIdentityHandler(svc)

	rec := postIdentityLink(h, `{"email":"a@example.com","subjectId":"s","provider":"google"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body otpDispatchedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.OTPDispatched {
		t.Error("otpDispatched = false, want true")
	}
	if svc.challengeCalls != 1 {
		t.Errorf("Challenge calls = %d, want 1", svc.challengeCalls)
	}
	if svc.lastChallengeEmail != "a@example.com" {
		t.Errorf("Challenge email = %q, want %q", svc.lastChallengeEmail, "a@example.com")
	}
	if svc.provisionCalls != 0 {
		t.Errorf("Provision should not be called, got %d calls", svc.provisionCalls)
	}
}

// TestIdentityHandler_NewIdentity_Provisions は未リンクのIDに対して新規アカウントが
// プロビジョニングされ、資格情報が返ることをテストする。
func TestIdentityHandler_NewIdentity_Provisions(t *testing.T) {
	svc := &mockIdentityService{
		resolveResult: identity.ResolveResult{Found: false},
		provisionResult: &identity.ProvisionResult{
			AccountID: "acc-1",
			Credentials: model.SessionCredentials{
				AccessToken:  "at-1",
				RefreshToken: "rt-1",
				ExpiresAt:    1700000000000,
			},
			GeneratedSecret: "s3cretABCDEF",
		},
	}
	h := NewIdentityHandler(svc)

	rec := postIdentityLink(h, `{"email":"a@example.com","subjectId":"s","provider":"apple"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body provisionedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.AccountID != "acc-1" {
		t.Errorf("accountId = %q, want %q", body.AccountID, "acc-1")
	}
	if body.SessionCredentials.AccessToken != "at-1" {
		t.Errorf("accessToken = %q, want %q", body.SessionCredentials.AccessToken, "at-1")
	}
	if body.GeneratedSecret != "s3cretABCDEF" {
		t.Errorf("generatedSecret = %q, want %q", body.GeneratedSecret, "s3cretABCDEF")
	}
	if svc.challengeCalls != 0 {
		t.Errorf("Challenge should not be called, got %d calls", svc.challengeCalls)
	}
}

// TestIdentityHandler_BackendFault はバックエンド障害が500で返り、内部詳細が
// 漏れないことをテストする。
func TestIdentityHandler_BackendFault(t *testing.T) {
	svc := &mockIdentityService{
		resolveResult: identity.ResolveResult{Found: false},
		provisionErr:  model.NewBackendUnavailableError(),
	}
	h := NewIdentityHandler(svc)

	rec := postIdentityLink(h, `{"email":"a@example.com","subjectId":"s","provider":"google"}`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, rec)
	if body["code"] != model.ErrCodeBackendUnavailable {
		t.Errorf("code = %v, want %q", body["code"], model.ErrCodeBackendUnavailable)
	}
}

// TestIdentityHandler_NonAPIError はAPIError以外のエラーが一般的な500へ
// 変換されることをテストする。
func TestIdentityHandler_NonAPIError(t *testing.T) {
	svc := &mockIdentityService{
		resolveErr: errors.New("unexpected internal detail"),
	}
	h := NewIdentityHandler(svc)

	rec := postIdentityLink(h, `{"email":"a@example.com","subjectId":"s","provider":"google"}`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "unexpected internal detail") {
		t.Error("内部エラーの詳細はレスポンスに含まれないべき")
	}
}
