package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/microearn/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	AdminFinder       middleware.UserFinder
	MetricsRecorder   middleware.HTTPMetricsRecorder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 稼働確認
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ドメイン
	TokenIssuer       TokenIssuer
	UserService       UserServiceInterface
	TaskService       TaskServiceInterface
	SubmissionService SubmissionServiceInterface
	PaymentService    PaymentServiceInterface
	ActivityService   ActivityServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS → RateLimit
//
// 認証が必要なルートにはToken、管理者限定のルートにはさらにAdminを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware())
	}

	healthHandler := NewHealthHandler(deps.HealthChecker)
	authHandler := NewAuthHandler(deps.TokenIssuer)
	userHandler := NewUserHandler(deps.UserService)
	taskHandler := NewTaskHandler(deps.TaskService)
	submissionHandler := NewSubmissionHandler(deps.SubmissionService)
	paymentHandler := NewPaymentHandler(deps.PaymentService)
	activityHandler := NewActivityHandler(deps.ActivityService)

	requireToken := middleware.NewTokenMiddleware(deps.TokenVerifier)
	requireAdmin := middleware.NewAdminMiddleware(deps.AdminFinder)

	// --- 認証不要のルート ---
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Post("/jwt", authHandler.IssueToken)

	// ユーザー
	r.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.ListUsers)
		r.Post("/", userHandler.CreateUser)
		r.Get("/{userID}", userHandler.GetUser)
		r.With(requireToken).Patch("/{userID}/reduce-coins", userHandler.ReduceCoins)
	})
	r.With(requireToken, requireAdmin).Delete("/user/{id}", userHandler.DeleteUser)

	// タスク
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.ListTasks)
		r.Post("/", taskHandler.CreateTask)
		r.Get("/{buyerID}", taskHandler.ListTasksByBuyer)
	})
	r.Route("/task/{id}", func(r chi.Router) {
		r.Get("/", taskHandler.GetTask)
		r.With(requireToken).Patch("/", taskHandler.UpdateTask)
		r.With(requireToken).Delete("/", taskHandler.DeleteTask)
	})

	// 提出物
	r.Route("/submissions", func(r chi.Router) {
		r.Get("/", submissionHandler.ListSubmissions)
		r.With(requireToken).Post("/", submissionHandler.CreateSubmission)
		r.Get("/buyer/{buyerEmail}", submissionHandler.ListByBuyer)
		r.Get("/{workerEmail}", submissionHandler.ListByWorker)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(requireToken)

		r.Get("/payments", paymentHandler.ListPayments)
		r.Get("/payments/{userID}", paymentHandler.ListPaymentsByUser)
		r.Get("/notifications", activityHandler.ListNotifications)

		r.With(requireAdmin).Get("/admin/activities", activityHandler.ListAdminActivities)
	})

	return r
}
