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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hitoshi/launchboard/internal/auth"
	"github.com/hitoshi/launchboard/internal/config"
	"github.com/hitoshi/launchboard/internal/database"
	"github.com/hitoshi/launchboard/internal/event"
	"github.com/hitoshi/launchboard/internal/handler"
	"github.com/hitoshi/launchboard/internal/job"
	"github.com/hitoshi/launchboard/internal/logger"
	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/middleware"
	"github.com/hitoshi/launchboard/internal/profile"
	"github.com/hitoshi/launchboard/internal/repository"
	"github.com/hitoshi/launchboard/internal/security"
	"github.com/hitoshi/launchboard/internal/storage"
	"github.com/hitoshi/launchboard/internal/user"
	"github.com/hitoshi/launchboard/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Warn("invalid LOG_LEVEL, falling back to info", slog.String("error", err.Error()))
	}

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

	var migrateAction MigrateAction
	if cmd == CommandMigrate {
		action, err := ParseMigrateArgs(args[1:])
		if err != nil {
			return err
		}
		migrateAction = action
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandCleanup:
		return runCleanup(cfg)
	case CommandMigrate:
		return runMigrate(cfg, migrateAction)
	default:
		return runServe(cfg)
	}
}

// dbPoolConfig はConfigのコネクションプール設定をdatabase.PoolConfigに変換する。
func dbPoolConfig(cfg *config.Config) database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, dbPoolConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// storageLimits はConfigのアップロード上限をstorage.Limitsに変換する。
func storageLimits(cfg *config.Config) storage.Limits {
	return storage.Limits{
		MaxImageBytes: cfg.UploadMaxImageBytes,
		MaxCVBytes:    cfg.UploadMaxCVBytes,
	}
}

// rateLimiterConfig はConfigのreq/min/user単位のレート制限をreq/secに変換する。
// バーストサイズは1分あたりの上限と同じにする。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rl.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitWrite > 0 {
		rl.WriteRate = rate.Limit(float64(cfg.RateLimitWrite) / 60.0)
		rl.WriteBurst = cfg.RateLimitWrite
	}
	return rl
}

// newMetricsRegistry はランタイムメトリクスを登録済みのレジストリを返す。
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	jobRepo := repository.NewPostgresJobRepo(db)
	applicationRepo := repository.NewPostgresApplicationRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	registrationRepo := repository.NewPostgresRegistrationRepo(db)

	// 3. ストレージ・セキュリティ・メトリクスの初期化
	limits := storageLimits(cfg)
	store, err := storage.NewFileStore(cfg.StorageDir, cfg.StoragePublicURL, limits, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	ssrfGuard := security.NewSSRFGuard(security.SSRFGuardConfig{
		AllowedHosts: cfg.AvatarImportHosts,
	})
	sanitizer := security.NewContentSanitizer()
	importer := storage.NewRemoteImporter(store, ssrfGuard, limits)

	registry := newMetricsRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	userService := user.NewService(userRepo, sessionRepo, profileRepo, importer)
	profileService := profile.NewService(userRepo, profileRepo, store, sanitizer)
	jobService := job.NewService(userRepo, jobRepo, applicationRepo, sanitizer, collector)
	eventService := event.NewService(userRepo, eventRepo, registrationRepo, store, sanitizer, collector)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		HSTS:        cfg.CookieSecure,
		RateLimiter: rateLimiter,

		Metrics:         collector,
		MetricsGatherer: registry,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService:    userService,
		ProfileService: profileService,
		JobService:     jobService,
		EventService:   eventService,
		Excerpter:      sanitizer,

		Objects:        store,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		MaxImageBytes:  cfg.UploadMaxImageBytes,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serveHTTP(ctx, server, shutdownTimeout)
}

// shutdownTimeout は処理中リクエストの完了を待つ上限。
const shutdownTimeout = 30 * time.Second

// serveHTTP はctxが終わるまでサーバーを動かし、その後グレースフルに停止する。
// Listenに失敗した場合はシグナルを待たずにエラーを返す。
func serveHTTP(ctx context.Context, server *http.Server, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down http server", slog.String("addr", server.Addr))

		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("http server stopped gracefully", slog.String("addr", server.Addr))
	return nil
}

// newCleanupScheduler は期限切れセッションと孤立オブジェクトの掃除スケジューラを構築する。
func newCleanupScheduler(cfg *config.Config, db *sql.DB, collector metrics.MetricsCollector) (*cleanup.Scheduler, error) {
	store, err := storage.NewFileStore(cfg.StorageDir, cfg.StoragePublicURL, storageLimits(cfg), slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	assetRepo := repository.NewPostgresAssetRepo(db)

	sessionJob := cleanup.NewSessionCleanupJob(repository.NewPostgresSessionRepo(db), slog.Default())
	orphanSweeper := cleanup.NewOrphanSweeper(assetRepo, store, slog.Default(), cfg.OrphanGracePeriod)
	return cleanup.NewScheduler(sessionJob, orphanSweeper, collector, slog.Default()), nil
}

// newWorkerMetricsServer はworkerのメトリクスだけを公開するサーバーを返す。
func newWorkerMetricsServer(port string, gatherer prometheus.Gatherer) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler(gatherer))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションと孤立オブジェクトの掃除を一定間隔で実行し、削除件数を/metricsで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	registry := newMetricsRegistry()
	scheduler, err := newCleanupScheduler(cfg, db, metrics.NewCollector(registry))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
		slog.Duration("orphan_grace_period", cfg.OrphanGracePeriod),
		slog.String("metrics_port", cfg.WorkerMetricsPort),
	)

	if err := runScheduled(ctx, scheduler, cfg.SessionCleanupInterval,
		newWorkerMetricsServer(cfg.WorkerMetricsPort, registry)); err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runScheduled はctxが終わるまでスケジューラとメトリクスサーバーを並行して動かす。
// どちらかが失敗するともう一方も止める。
func runScheduled(ctx context.Context, scheduler *cleanup.Scheduler, interval time.Duration, metricsServer *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Start(gctx, interval)
		return nil
	})
	g.Go(func() error {
		return serveHTTP(gctx, metricsServer, shutdownTimeout)
	})
	return g.Wait()
}

// runCleanup は掃除ジョブを1回実行して終了する。
// 終了後にスクレイプされないため、件数はログにだけ残す。
func runCleanup(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	scheduler, err := newCleanupScheduler(cfg, db, metrics.Nop{})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.RunOnce(ctx)
	slog.Info("one-shot cleanup finished")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// action.Downがfalseなら未適用分をすべて適用し、trueならaction.Steps件ロールバックする。
func runMigrate(cfg *config.Config, action MigrateAction) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Bool("down", action.Down),
		slog.Int("steps", action.Steps),
	)

	if action.Down {
		if err := database.RollbackMigrations(cfg.DatabaseURL, action.Steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:" + port + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はログ用にパスワードを伏せたURLを返す。解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
