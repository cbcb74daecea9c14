package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/launchboard/internal/metrics"
	"github.com/hitoshi/launchboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	// CORSAllowedOrigin はカンマ区切りで複数指定できる。
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	// HSTS はHTTPS配信時にStrict-Transport-Securityを付与するかどうか。
	HSTS              bool
	RateLimiter       *middleware.RateLimiter

	// メトリクス
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメイン
	UserService    UserServiceInterface
	ProfileService ProfileServiceInterface
	JobService     JobServiceInterface
	EventService   EventServiceInterface
	Excerpter      Excerpter

	// ストレージ
	Objects ObjectOpener
	// MaxUploadBytes はプロフィールアップロードのボディ上限の基準値。
	MaxUploadBytes int64
	// MaxImageBytes はイベント画像アップロードのボディ上限の基準値。
	MaxImageBytes int64
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → Metrics
//	/api/*: NoStore → Session → CSRF → RateLimit(General) [→ RateLimit(Write)]
//	/api/csrf-token: NoStore のみ
//
// /health、/metrics、/auth/*、/storage/* はセッション不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	profileHandler := NewProfileHandler(deps.ProfileService, collector, deps.MaxUploadBytes)
	jobHandler := NewJobHandler(deps.JobService, deps.Excerpter)
	eventHandler := NewEventHandler(deps.EventService, deps.Excerpter, collector, deps.MaxImageBytes)
	storageHandler := NewStorageHandler(deps.Objects)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	r.Get("/storage/{bucket}/{key}", storageHandler.Serve)

	// --- 認証が必要なルート ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewNoStoreMiddleware())

		// セッション不要
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			write := deps.RateLimiter.WriteMiddleware()

			r.Route("/user", func(r chi.Router) {
				r.Get("/me", userHandler.GetMe)
				r.Delete("/me", userHandler.Withdraw)
				r.Post("/setup", userHandler.Setup)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/startup", profileHandler.GetOwnStartup)
				r.Put("/startup", profileHandler.UpdateStartup)
				r.Get("/individual", profileHandler.GetOwnIndividual)
				r.Put("/individual", profileHandler.UpdateIndividual)
				r.Get("/startups", profileHandler.ListStartups)
				r.Get("/startups/{id}", profileHandler.GetStartup)
				r.Get("/individuals/{id}", profileHandler.GetIndividual)
				r.With(write).Post("/upload/{kind}", profileHandler.Upload)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", jobHandler.List)
				r.Post("/", jobHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", jobHandler.Get)
					r.Put("/", jobHandler.Update)
					r.Delete("/", jobHandler.Delete)
					r.Get("/applications", jobHandler.ListApplications)
					r.With(write).Post("/applications", jobHandler.Apply)
				})
			})

			r.Route("/applications", func(r chi.Router) {
				r.Get("/mine", jobHandler.MyApplications)
				r.Patch("/{id}", jobHandler.UpdateApplicationStatus)
				r.Delete("/{id}", jobHandler.WithdrawApplication)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.List)
				r.Post("/", eventHandler.Create)
				r.Get("/my-registrations", eventHandler.MyRegistrations)
				r.With(write).Post("/register", eventHandler.Register)
				r.With(write).Post("/unregister", eventHandler.Unregister)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", eventHandler.Get)
					r.Put("/", eventHandler.Update)
					r.Delete("/", eventHandler.Delete)
					r.With(write).Post("/image", eventHandler.UploadImage)
					r.Get("/registrations", eventHandler.ListRegistrants)
				})
			})
		})
	})

	return r
}
