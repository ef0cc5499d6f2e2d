package config

import (
	"testing"
	"time"
)

// setRequiredEnv は必須環境変数を全てセットする。
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/filmcrew?sslmode=disable")
	t.Setenv("AUTH0_DOMAIN", "example.auth0.com")
	t.Setenv("AUTH0_CLIENT_ID", "client-id")
	t.Setenv("AUTH0_CLIENT_SECRET", "client-secret")
	t.Setenv("PUBLIC_FRONTEND_URL", "https://filmcrew.example.com")
	t.Setenv("PUBLIC_BACKEND_URL", "https://api.filmcrew.example.com")
}

func TestLoad_AllRequired_Success(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth0Domain != "example.auth0.com" {
		t.Errorf("Auth0Domain = %q, want %q", cfg.Auth0Domain, "example.auth0.com")
	}
	if cfg.FrontendURL != "https://filmcrew.example.com" {
		t.Errorf("FrontendURL = %q, want %q", cfg.FrontendURL, "https://filmcrew.example.com")
	}
}

func TestLoad_MissingRequired_ReturnsError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH0_CLIENT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing AUTH0_CLIENT_SECRET")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StateTTL != 10*time.Minute {
		t.Errorf("StateTTL = %v, want %v", cfg.StateTTL, 10*time.Minute)
	}
	if cfg.ExchangeTimeout != 10*time.Second {
		t.Errorf("ExchangeTimeout = %v, want %v", cfg.ExchangeTimeout, 10*time.Second)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want 120", cfg.RateLimitGeneral)
	}
}

func TestLoad_CookieSecure_FollowsFrontendScheme(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true for https frontend")
	}

	t.Setenv("PUBLIC_FRONTEND_URL", "http://localhost:5173")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should be false for http frontend")
	}
}

func TestCookieDomainFromURL(t *testing.T) {
	tests := []struct {
		name     string
		frontend string
		want     string
	}{
		{"httpsホスト", "https://filmcrew.example.com", "filmcrew.example.com"},
		{"ポート付きローカル", "http://localhost:5173", "localhost"},
		{"末尾パス付き", "https://filmcrew.example.com/app", "filmcrew.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cookieDomainFromURL(tt.frontend); got != tt.want {
				t.Errorf("cookieDomainFromURL(%q) = %q, want %q", tt.frontend, got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STATE_TTL", "5m")
	t.Setenv("EXCHANGE_TIMEOUT", "3s")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("COOKIE_DOMAIN", "example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StateTTL != 5*time.Minute {
		t.Errorf("StateTTL = %v, want 5m", cfg.StateTTL)
	}
	if cfg.ExchangeTimeout != 3*time.Second {
		t.Errorf("ExchangeTimeout = %v, want 3s", cfg.ExchangeTimeout)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
	if cfg.CookieDomain != "example.com" {
		t.Errorf("CookieDomain = %q, want %q", cfg.CookieDomain, "example.com")
	}
}
