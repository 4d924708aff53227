package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/sailings/internal/metrics"
	"github.com/hitoshi/sailings/internal/middleware"
	"github.com/hitoshi/sailings/internal/render"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter // プロキシ用
	PageRateLimiter   *middleware.RateLimiter // 一覧ページ用
	Visitor           middleware.VisitorConfig
	CSRF              middleware.CSRFConfig

	// プロキシ
	Upstream UpstreamFetcher

	// 一覧ページ
	Listing *ListingHandler

	// メトリクス。nilの場合は/metricsを公開しない
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Logging → Recovery → SecurityHeaders
//	  /api/sailings: CORS → RateLimit
//	  一覧ページ:    RateLimit → Visitor → CSRF
//
// プロキシは訪問者Cookieを必要としないため、一覧ページとは別グループに配置する。
// レート制限の枠もグループごとに分け、一覧ページの読み込みはプロキシの枠を消費しない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	sailingsHandler := NewSailingsHandler(deps.Upstream, logger)

	// --- 運用向けエンドポイント ---
	r.Get("/health", Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 静的アセット ---
	assets := render.Assets()
	r.Handle("/css/*", assets)
	r.Handle("/js/*", assets)
	r.Handle("/images/*", assets)

	// --- 航海データプロキシ ---
	// ミドルウェアスタック: CORS → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(middleware.ProxyCORSConfig(deps.CORSAllowedOrigin)))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/api/sailings", sailingsHandler.GetSailings)
		r.Options("/api/sailings", sailingsHandler.Preflight)
	})

	// --- 一覧ページ ---
	// ミドルウェアスタック: RateLimit → Visitor → CSRF
	r.Group(func(r chi.Router) {
		if deps.PageRateLimiter != nil {
			r.Use(deps.PageRateLimiter.Middleware())
		}
		r.Use(middleware.NewVisitorMiddleware(deps.Visitor))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get("/", deps.Listing.ShowListing)
		r.Post("/sort", deps.Listing.ChangeSort)
		r.Post("/page", deps.Listing.ChangePage)
		r.Post("/reset", deps.Listing.ResetFilters)
	})

	return r
}
