package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/gateway"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/model"
)

// stubAccountResolver はルーターテスト用のAccountResolver。
type stubAccountResolver struct {
	account *model.Account
}

func (s *stubAccountResolver) AccountFromToken(_ context.Context, token string) (*model.Account, error) {
	if s.account == nil {
		return nil, gateway.ErrUnauthorized
	}
	return s.account, nil
}

// newTestRouter は全依存をモックで埋めたルーターを生成する。
func newTestRouter(t *testing.T, resolver middleware.AccountResolver, gatherer prometheus.Gatherer) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:       rate.Limit(1000),
		GeneralBurst:      1000,
		IdentityLinkRate:  rate.Limit(1000),
		IdentityLinkBurst: 1000,
		CleanupInterval:   time.Hour,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		AccountResolver:    resolver,
		CORSAllowedOrigin:  "https://app.example.com",
		RateLimiter:        rl,
		Logger:             slog.New(slog.NewJSONHandler(io.Discard, nil)),
		IdentityService:    &mockIdentityService{},
		MigrationService:   &mockMigrationService{},
		HistoryService:     &mockHistoryService{},
		ProfileService:     &mockProfileService{},
		QuestionService:    &mockQuestionService{},
		TempAccountCreator: &mockTempAccountCreator{},
		AccountRemover:     &mockAccountRemover{},
		Gatherer:           gatherer,
	})
}

// TestRouter_Health はヘルスチェックが認証なしで応答することをテストする。
func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, &stubAccountResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

// TestRouter_IdentityLink_MethodNotAllowed はPOST以外のメソッドが405になることをテストする。
func TestRouter_IdentityLink_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, &stubAccountResolver{}, nil)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/auth/identity-link", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

// TestRouter_IdentityLink_NoAuthRequired はアイデンティティリンクが認証なしで到達できることをテストする。
func TestRouter_IdentityLink_NoAuthRequired(t *testing.T) {
	// resolverは常に拒否するが、このルートは認証ミドルウェアの外にある
	router := newTestRouter(t, &stubAccountResolver{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/identity-link", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// ハンドラーまで到達し、空ボディの400が返る（401ではない）
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestRouter_ProtectedRoutes_RequireAuth は保護されたルートが未認証で401になることをテストする。
func TestRouter_ProtectedRoutes_RequireAuth(t *testing.T) {
	router := newTestRouter(t, &stubAccountResolver{}, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/migration/sync"},
		{http.MethodGet, "/api/migration/preview"},
		{http.MethodGet, "/api/histories"},
		{http.MethodPost, "/api/histories"},
		{http.MethodGet, "/api/profile"},
		{http.MethodPost, "/api/questions"},
		{http.MethodDelete, "/api/account"},
	}

	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", rt.method, rt.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

// TestRouter_ProtectedRoute_WithValidToken は有効なトークンで保護ルートに到達できることをテストする。
func TestRouter_ProtectedRoute_WithValidToken(t *testing.T) {
	resolver := &stubAccountResolver{account: &model.Account{ID: "acc-1", Email: "user@example.com"}}
	router := newTestRouter(t, resolver, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/histories", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d. body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

// TestRouter_Metrics はGathererの有無で/metricsの公開が切り替わることをテストする。
func TestRouter_Metrics(t *testing.T) {
	// Gathererあり: 200
	router := newTestRouter(t, &stubAccountResolver{}, prometheus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("with gatherer: status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Gathererなし: 404
	router = newTestRouter(t, &stubAccountResolver{}, nil)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("without gatherer: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// TestRouter_SecurityHeaders は全レスポンスにセキュリティヘッダーが付与されることをテストする。
func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, &stubAccountResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}
