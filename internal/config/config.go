package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth0
	Auth0Domain       string
	Auth0ClientID     string
	Auth0ClientSecret string

	// URL
	FrontendURL string
	BackendURL  string

	// OAuth
	StateTTL        time.Duration
	ExchangeTimeout time.Duration

	// Rate Limit
	RateLimitGeneral   int
	RateLimitTeamWrite int

	// Server
	ServerPort string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.Auth0Domain = os.Getenv("AUTH0_DOMAIN")
	if cfg.Auth0Domain == "" {
		missing = append(missing, "AUTH0_DOMAIN")
	}

	cfg.Auth0ClientID = os.Getenv("AUTH0_CLIENT_ID")
	if cfg.Auth0ClientID == "" {
		missing = append(missing, "AUTH0_CLIENT_ID")
	}

	cfg.Auth0ClientSecret = os.Getenv("AUTH0_CLIENT_SECRET")
	if cfg.Auth0ClientSecret == "" {
		missing = append(missing, "AUTH0_CLIENT_SECRET")
	}

	cfg.FrontendURL = os.Getenv("PUBLIC_FRONTEND_URL")
	if cfg.FrontendURL == "" {
		missing = append(missing, "PUBLIC_FRONTEND_URL")
	}

	cfg.BackendURL = os.Getenv("PUBLIC_BACKEND_URL")
	if cfg.BackendURL == "" {
		missing = append(missing, "PUBLIC_BACKEND_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.StateTTL = getEnvDuration("STATE_TTL", 10*time.Minute)
	cfg.ExchangeTimeout = getEnvDuration("EXCHANGE_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitTeamWrite = getEnvInt("RATE_LIMIT_TEAM_WRITE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.FrontendURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", cookieDomainFromURL(cfg.FrontendURL))
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.FrontendURL)

	return cfg, nil
}

// cookieDomainFromURL はフロントエンドURLからCookieのDomain属性を導出する。
// スキームとポート番号、パスを取り除いたホスト名を返す。
func cookieDomainFromURL(frontend string) string {
	host := strings.TrimPrefix(frontend, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
