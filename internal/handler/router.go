package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoSSy4691/quit-smoking-supabase/internal/metrics"
	"github.com/GoSSy4691/quit-smoking-supabase/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	AccountResolver   middleware.AccountResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	IdentityService  IdentityServiceInterface
	MigrationService MigrationServiceInterface
	HistoryService   HistoryServiceInterface
	ProfileService   ProfileServiceInterface
	QuestionService  QuestionServiceInterface

	// アカウントライフサイクル
	TempAccountCreator TempAccountCreator
	AccountRemover     AccountRemover

	// メトリクス。nilの場合は/metricsを公開しない。
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Recovery → Logging → Auth → RateLimit(General)
//
// アイデンティティリンクと一時アカウントのルート（/auth/*）は未認証のため
// 認証ミドルウェアの外に配置し、IP単位のレート制限のみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	identityHandler := NewIdentityHandler(deps.IdentityService)
	migrationHandler := NewMigrationHandler(deps.MigrationService)
	historyHandler := NewHistoryHandler(deps.HistoryService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	questionHandler := NewQuestionHandler(deps.QuestionService)
	accountHandler := NewAccountHandler(deps.TempAccountCreator, deps.AccountRemover)
	templateHandler := NewTemplateHandler()

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	r.Route("/auth", func(r chi.Router) {
		// アイデンティティリンク確立（IP単位のレート制限を適用）
		r.With(deps.RateLimiter.IdentityLinkMiddleware()).Post("/identity-link", identityHandler.EstablishLink)

		// 一時アカウント作成（同じくIP単位のレート制限を適用）
		r.With(deps.RateLimiter.IdentityLinkMiddleware()).Post("/temp-account", accountHandler.CreateTemp)
	})

	// メールテンプレート（認証バックエンドが取得する）
	r.Get("/templates/email-change", templateHandler.EmailChange)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.AccountResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 旧アカウント移行
		r.Route("/api/migration", func(r chi.Router) {
			r.Post("/sync", migrationHandler.Sync)
			r.Get("/preview", migrationHandler.Preview)
		})

		// ヒストリー管理
		r.Route("/api/histories", func(r chi.Router) {
			r.Post("/", historyHandler.Create)
			r.Get("/", historyHandler.ListMine)
			r.Get("/page", historyHandler.ListPage)
			r.Get("/ready-count", historyHandler.CountReady)
			r.Patch("/{id}", historyHandler.Update)
		})

		// プロフィール管理
		r.Route("/api/profile", func(r chi.Router) {
			r.Post("/init", profileHandler.Init)
			r.Get("/", profileHandler.Load)
			r.Patch("/niko", profileHandler.UpdateNiko)
		})

		// Q&Aフィードバック
		r.Post("/api/questions", questionHandler.Submit)

		// アカウント削除
		r.Delete("/api/account", accountHandler.Remove)
	})

	return r
}
