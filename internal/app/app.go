package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/blog"
	"github.com/hitoshi/blogfront/internal/config"
	"github.com/hitoshi/blogfront/internal/database"
	"github.com/hitoshi/blogfront/internal/handler"
	"github.com/hitoshi/blogfront/internal/logger"
	"github.com/hitoshi/blogfront/internal/metrics"
	"github.com/hitoshi/blogfront/internal/middleware"
	"github.com/hitoshi/blogfront/internal/repository"
	"github.com/hitoshi/blogfront/internal/security"
	"github.com/hitoshi/blogfront/internal/viewer"
	"github.com/hitoshi/blogfront/internal/worker/cleanup"
)

// viewerSweepInterval はアイドル閲覧者をレジストリから取り除く間隔。
const viewerSweepInterval = time.Minute

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数のConfigを読み込み、ログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込みのエラーもJSONで出せるよう、ロガーを先に用意する
	var level slog.LevelVar
	logger.SetupDefault(w, &level)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level.Set(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
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

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("backend", cfg.BlogAPIURL),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// sessionStore は閲覧者セッションの保存先と、その死活確認・終了処理をまとめたもの。
type sessionStore struct {
	repo  repository.ViewerSessionRepository
	ping  handler.HealthCheckFunc
	close func() error
	// db はPostgreSQLストアのときのみ設定される。
	db *sql.DB
}

// openSessionStore はSESSION_STOREに応じて閲覧者セッションの保存先に接続する。
func openSessionStore(ctx context.Context, cfg *config.Config) (*sessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		repo, err := repository.NewRedisViewerSessionRepo(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.Info("redis connection established", slog.String("redis_url", redactURL(cfg.RedisURL)))
		return &sessionStore{repo: repo, ping: repo.Ping, close: repo.Close}, nil
	default:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established", slog.String("database_url", redactURL(cfg.DatabaseURL)))
		return &sessionStore{
			repo:  repository.NewPostgresViewerSessionRepo(db),
			ping:  db.PingContext,
			close: db.Close,
			db:    db,
		}, nil
	}
}

// application はserveモードで組み立てる依存関係一式。
type application struct {
	handler  http.Handler
	registry *viewer.Registry
	limiter  *middleware.RateLimiter
}

// newApplication はバックエンドクライアント、閲覧者レジストリ、サービス、ルーターをワイヤリングする。
func newApplication(cfg *config.Config, store *sessionStore, log *slog.Logger) *application {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(promRegistry)

	client := backend.NewClient(
		&http.Client{Timeout: cfg.BackendTimeout},
		cfg.BlogAPIURL, log, collector,
	)

	registry := viewer.NewRegistry(viewer.RegistryConfig{
		Backend:       client,
		Repo:          store.repo,
		SessionMaxAge: cfg.SessionMaxAgeDuration(),
		Logger:        log,
		Metrics:       collector,
	})

	blogService := blog.NewService(client, security.NewContentSanitizer(), cfg.FeedPageSize)

	limiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitMutation),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      log,
		ViewerStore: store.repo,
		ViewerCookie: middleware.ViewerCookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			MaxAge: cfg.SessionMaxAgeDuration(),
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: limiter,

		Viewers: registry,

		Feed:      blogService,
		Blogs:     blogService,
		Dashboard: blogService,

		HealthCheck: store.ping,
		Metrics:     metrics.Handler(promRegistry),
	})

	return &application{
		handler:  router,
		registry: registry,
		limiter:  limiter,
	}
}

// runServe はAPIサーバーモードで起動する。
// セッションストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.close()

	app := newApplication(cfg, store, slog.Default())
	defer app.limiter.Stop()

	go app.registry.RunSweeper(ctx, viewerSweepInterval, cfg.ViewerIdleTTL)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		// いいねの確定待ちはバックエンドのタイムアウトまで続きうる
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLストアの期限切れ閲覧者セッションを定期的に削除する。
// Redisストアはキーの有効期限で消えるため、何もせずに終了する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.SessionStore == config.SessionStoreRedis {
		slog.Info("redis session store expires keys by TTL; worker has nothing to do")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanup.NewCleanupJob(store.db, slog.Default()).Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。Redisストアではスキーマが無いため何もしない。
func runMigrate(cfg *config.Config) error {
	if cfg.SessionStore == config.SessionStoreRedis {
		slog.Info("redis session store has no schema; nothing to migrate")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", redactURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// redactURL は接続URLのパスワードを伏せる。解析できない場合は全体を伏せる。
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
