package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/sailings/internal/catalog"
	"github.com/hitoshi/sailings/internal/config"
	"github.com/hitoshi/sailings/internal/handler"
	"github.com/hitoshi/sailings/internal/listing"
	"github.com/hitoshi/sailings/internal/logger"
	"github.com/hitoshi/sailings/internal/metrics"
	"github.com/hitoshi/sailings/internal/middleware"
	"github.com/hitoshi/sailings/internal/model"
	"github.com/hitoshi/sailings/internal/render"
	"github.com/hitoshi/sailings/internal/security"
	"github.com/hitoshi/sailings/internal/upstream"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envがあれば読み込んだうえで、環境変数から設定を読み込む
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。listの表はstdoutに、ログはwに出力する。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandList:
		return runList(ctx, cfg, commandArgs(args), os.Stdout)
	default:
		slog.Info("starting application",
			slog.String("command", string(cmd)),
			slog.String("port", cfg.ServerPort),
			slog.String("base_url", cfg.BaseURL),
			slog.String("upstream_url", cfg.UpstreamURL),
		)
		return runServe(ctx, cfg)
	}
}

// commandArgs はサブコマンド名を除いた残りの引数を返す。
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return args[1:]
}

// services はHTTPサーバーを構成する依存関係一式。
type services struct {
	handler      http.Handler
	listing      *handler.ListingHandler
	store        *listing.Store
	proxyLimiter *middleware.RateLimiter
	pageLimiter  *middleware.RateLimiter
}

// Close は実行中の読み込みを待ってからバックグラウンドのgoroutineを停止する。
func (s *services) Close() {
	s.listing.Wait()
	s.store.Stop()
	s.proxyLimiter.Stop()
	s.pageLimiter.Stop()
}

// buildServices は設定から全依存関係をワイヤリングし、ルーターを構築する。
func buildServices(cfg *config.Config, logger *slog.Logger) (*services, error) {
	// 1. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard(security.WithAllowPrivate(cfg.UpstreamAllowPrivate))
	if err := ssrfGuard.ValidateURL(cfg.UpstreamURL); err != nil {
		return nil, fmt.Errorf("upstream URL rejected by SSRF guard: %w", err)
	}
	sanitizer := security.NewContentSanitizer()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. 上流APIクライアント（プロキシ用）
	upstreamClient := upstream.NewClient(
		ssrfGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize),
		cfg.UpstreamURL, cfg.FetchMaxSize, collector, logger,
	)

	// 4. 一覧ページ用の取得クライアント。プロキシをプロセス内で呼ぶため、
	// ネットワークとプロキシのCORS・レート制限を経由しない
	source := catalog.NewClient(
		&http.Client{
			Transport: handler.NewProxyTransport(upstreamClient, logger),
			Timeout:   cfg.FetchTimeout,
		},
		cfg.BaseURL, cfg.FetchMaxSize, collector, sanitizer, logger,
	)

	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	store := listing.NewStore(cfg.SessionIdleTTL, logger)
	listingHandler := handler.NewListingHandler(handler.ListingHandlerConfig{
		Store:       store,
		Source:      source,
		Renderer:    renderer,
		Recorder:    collector,
		LoadTimeout: cfg.FetchTimeout + 5*time.Second,
		Logger:      logger,
	})

	// 5. ルーターの構築
	// configのレート制限はreq/min単位なのでreq/secに変換する
	proxyLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitGeneral))
	pageLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitPage))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       proxyLimiter,
		PageRateLimiter:   pageLimiter,
		Visitor: middleware.VisitorConfig{
			MaxAge:       cfg.SessionMaxAge,
			CookieSecure: cfg.CookieSecure,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxAge:       cfg.SessionMaxAge,
		},
		Upstream: upstreamClient,
		Listing:  listingHandler,
		Gatherer: registry,
	})

	return &services{
		handler:      router,
		listing:      listingHandler,
		store:        store,
		proxyLimiter: proxyLimiter,
		pageLimiter:  pageLimiter,
	}, nil
}

// runServe はHTTPサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	logger := slog.Default()

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      svc.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("HTTP server stopped gracefully")
	return nil
}

// runList は航海リストを1回取得し、一覧ページと同じビューモデルで並び替えとページ分割を行い、
// 表示区間を表形式でoutに書き出す。
func runList(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(out)
	sortToken := fs.String("sort", listing.DefaultSort.Token(), "sort option (price|departureDate|duration)-(asc|desc)")
	page := fs.Int("page", 1, "page number (1-based)")
	source := fs.String("source", cfg.BaseURL, "origin of the server providing /api/sailings")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *page < 1 {
		return model.NewInvalidPageError(fmt.Sprint(*page))
	}

	m := listing.NewModel()
	if err := m.ChangeSortToken(*sortToken); err != nil {
		return err
	}
	m.ChangePage(*page)

	client := catalog.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		*source, cfg.FetchMaxSize, nil, nil, slog.Default(),
	)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	if err := m.Load(loadCtx, client); err != nil {
		slog.Error("航海データの取得に失敗しました",
			slog.String("source", client.Endpoint()),
			slog.String("error", err.Error()),
		)
		return model.NewSourceFailedError()
	}

	return writeListing(out, m.View())
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
