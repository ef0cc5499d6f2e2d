package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/filmcrew/internal/metrics"
	"github.com/hitoshi/filmcrew/internal/middleware"
	"github.com/hitoshi/filmcrew/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier          middleware.TokenVerifier
	AdminChecker      middleware.AdminChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	StateStore StateStoreInterface
	Provider   AuthProviderInterface
	AuthConfig AuthHandlerConfig

	// サービス
	UserService  UserServiceInterface
	TeamService  TeamServiceInterface
	AdminService AdminServiceInterface

	// 観測
	Collector      metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → AuthMiddleware → RateLimitMiddleware
//
// 認証ルート（/auth/*）と/healthはミドルウェアチェーンの外（認証不要）に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Collector != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.Collector))
	}

	verifier := deps.Verifier
	if deps.Collector != nil {
		verifier = &recordingVerifier{inner: deps.Verifier, collector: deps.Collector}
	}

	authHandler := NewAuthHandler(deps.StateStore, deps.Provider, deps.AuthConfig, deps.Collector)
	userHandler := NewUserHandler(deps.UserService)
	teamHandler := NewTeamHandler(deps.TeamService, deps.Collector)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
	})

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(verifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー情報
		r.Get("/api/user", userHandler.GetUser)

		// チーム管理
		r.Route("/api/team", func(r chi.Router) {
			r.Get("/", teamHandler.GetTeam)
			r.Get("/{id}/members", teamHandler.ListMembers)
			r.Put("/film", teamHandler.UpdateFilm)

			// チームの状態を変える操作には専用レート制限を追加
			r.With(deps.RateLimiter.TeamWriteMiddleware()).Post("/new", teamHandler.CreateTeam)
			r.With(deps.RateLimiter.TeamWriteMiddleware()).Post("/join", teamHandler.JoinTeam)
			r.With(deps.RateLimiter.TeamWriteMiddleware()).Post("/leave", teamHandler.LeaveTeam)
		})
	})

	// --- 管理者専用ルート ---
	// ミドルウェアスタック: Auth → Admin
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(verifier))
		r.Use(middleware.NewAdminMiddleware(deps.AdminChecker))

		r.Route("/admin", func(r chi.Router) {
			r.Get("/", adminHandler.Hello)
			r.Get("/teams", adminHandler.ListTeams)
		})
	})

	return r
}

// recordingVerifier はトークン検証の成否をメトリクスに記録するラッパー。
type recordingVerifier struct {
	inner     middleware.TokenVerifier
	collector metrics.MetricsCollector
}

func (v *recordingVerifier) Verify(token string) (*model.Identity, error) {
	identity, err := v.inner.Verify(token)
	v.collector.RecordTokenVerification(err == nil)
	return identity, err
}

var _ middleware.TokenVerifier = (*recordingVerifier)(nil)
