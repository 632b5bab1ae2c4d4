package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/blogfront/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	ViewerStore       middleware.ViewerSessionStore
	ViewerCookie      middleware.ViewerCookieConfig
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 閲覧者ごとのセッション・いいね状態
	Viewers ViewerSource

	// サービス
	Feed      FeedService
	Blogs     BlogService
	Dashboard DashboardService

	// 運用
	HealthCheck HealthCheckFunc
	Metrics     http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS
//	  /api: Viewer → RateLimit(General) → CSRF → Viewer解決
//	    書き込み系: RateLimit(Mutation)
//	    /api/dashboard: requireAuth
//
// /health と /metrics は閲覧者チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.ViewerCookie, logger)
	feedHandler := NewFeedHandler(deps.Feed)
	blogHandler := NewBlogHandler(deps.Blogs, logger)
	dashboardHandler := NewDashboardHandler(deps.Dashboard)

	// --- 閲覧者チェーン外のルート ---
	r.Get("/health", newHealthHandler(deps.HealthCheck))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewViewerMiddleware(deps.ViewerStore, deps.ViewerCookie, logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(withViewer(deps.Viewers))

		mutation := deps.RateLimiter.MutationMiddleware()

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.With(mutation).Post("/login", authHandler.Login)
			r.With(mutation).Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// 公開フィード
		r.Get("/feed", feedHandler.GetFeed)

		// ブログ詳細・いいね・コメント
		r.Route("/blogs", func(r chi.Router) {
			r.Get("/{slug}", blogHandler.GetBlog)
			r.Get("/{id}/like", blogHandler.GetLike)
			r.With(mutation).Post("/{id}/like", blogHandler.ToggleLike)
			r.Get("/{id}/comments", blogHandler.ListComments)
			r.With(mutation).Post("/{id}/comments", blogHandler.CreateComment)
		})

		// ダッシュボード（ログイン必須）
		r.Route("/dashboard/blogs", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", dashboardHandler.ListBlogs)
			r.With(mutation).Post("/", dashboardHandler.CreateBlog)
			r.With(mutation).Patch("/{id}", dashboardHandler.UpdateBlog)
			r.With(mutation).Delete("/{id}", dashboardHandler.DeleteBlog)
		})
	})

	return r
}
