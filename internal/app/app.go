// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/filmcrew/internal/auth"
	"github.com/hitoshi/filmcrew/internal/config"
	"github.com/hitoshi/filmcrew/internal/database"
	"github.com/hitoshi/filmcrew/internal/handler"
	"github.com/hitoshi/filmcrew/internal/logger"
	"github.com/hitoshi/filmcrew/internal/metrics"
	"github.com/hitoshi/filmcrew/internal/middleware"
	"github.com/hitoshi/filmcrew/internal/repository"
	"github.com/hitoshi/filmcrew/internal/security"
	"github.com/hitoshi/filmcrew/internal/team"
)

// プロセス終了コード。起動段階ごとに異なる値を返し、
// コンテナオーケストレータ側で失敗原因を区別できるようにする。
const (
	ExitCodeConfig    = 1 // 設定の読み込み失敗
	ExitCodeServer    = 2 // サーバーの起動・停止失敗
	ExitCodeDBConnect = 3 // データベース接続失敗
	ExitCodeDBQuery   = 4 // マイグレーション・クエリ失敗
	ExitCodeJWKS      = 5 // 署名鍵の取得失敗
)

// StartupError は起動時エラーとプロセス終了コードの対応を保持する。
type StartupError struct {
	Code int
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *StartupError) Error() string {
	return e.Err.Error()
}

// Unwrap はラップされたエラーを返す。
func (e *StartupError) Unwrap() error {
	return e.Err
}

// ExitCode はエラーに対応するプロセス終了コードを返す。
// *StartupError以外のエラーには1を返す。
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *StartupError
	if errors.As(err, &se) {
		return se.Code
	}
	return 1
}

func startupError(code int, err error) *StartupError {
	return &StartupError{Code: code, Err: err}
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, startupError(ExitCodeConfig, fmt.Errorf("failed to load config: %w", err))
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

	cfg, err := Init(w)
	if err != nil {
		return err
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("frontend_url", cfg.FrontendURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、IdPの署名鍵を取得し、全依存関係をワイヤリングして
// HTTPサーバーを起動する。署名鍵の取得に失敗した場合は起動を中止する
// （鍵なしで起動しても全リクエストが401になるだけなので、fail-fastにする）。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return startupError(ExitCodeDBConnect, fmt.Errorf("failed to open database: %w", err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return startupError(ExitCodeDBConnect, fmt.Errorf("failed to connect to database: %w", err))
	}

	slog.Info("database connection established")

	// 2. セキュリティサービスの初期化
	outbound := security.NewOutboundGuard()
	idpClient := outbound.NewSafeClient(cfg.ExchangeTimeout)
	sanitizer := security.NewContentSanitizer()

	// 3. IdPの署名鍵を取得（起動時に1回、失敗したら起動中止）
	jwksCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	keys, err := auth.FetchKeySet(jwksCtx, idpClient, cfg.Auth0Domain)
	if err != nil {
		return startupError(ExitCodeJWKS, fmt.Errorf("failed to fetch signing keys: %w", err))
	}

	slog.Info("signing keys fetched", slog.Int("key_count", keys.Len()))

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	teamRepo := repository.NewPostgresTeamRepo(db)

	// 5. ドメインサービスの初期化
	verifier := auth.NewVerifier(keys, cfg.Auth0ClientID, cfg.Auth0Domain)
	states := auth.NewStateStore(cfg.StateTTL)
	provider := auth.NewAuth0Provider(auth.Auth0Config{
		Domain:       cfg.Auth0Domain,
		ClientID:     cfg.Auth0ClientID,
		ClientSecret: cfg.Auth0ClientSecret,
		CallbackURL:  cfg.BackendURL + "/auth/callback",
	}, idpClient)
	teamService := team.NewService(teamRepo, userRepo, sanitizer, slog.Default())

	// 6. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.TeamWriteRate = rate.Limit(float64(cfg.RateLimitTeamWrite) / 60.0)
	rateLimiterCfg.TeamWriteBurst = cfg.RateLimitTeamWrite

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Verifier:          verifier,
		AdminChecker:      userRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		StateStore: states,
		Provider:   provider,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendURL:     cfg.FrontendURL,
			CookieDomain:    cfg.CookieDomain,
			CookieSecure:    cfg.CookieSecure,
			ExchangeTimeout: cfg.ExchangeTimeout,
		},

		UserService:  userRepo,
		TeamService:  teamService,
		AdminService: teamService,

		Collector:      collector,
		MetricsHandler: metrics.Handler(registry),
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return startupError(ExitCodeServer, fmt.Errorf("server listen error: %w", err))
	case <-stop:
	}

	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return startupError(ExitCodeServer, fmt.Errorf("server shutdown failed: %w", err))
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return startupError(ExitCodeDBQuery, fmt.Errorf("migration failed: %w", err))
	}

	slog.Info("database migrations completed successfully")
	return nil
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
