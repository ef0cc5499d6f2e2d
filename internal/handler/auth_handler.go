// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/filmcrew/internal/auth"
	"github.com/hitoshi/filmcrew/internal/metrics"
	"github.com/hitoshi/filmcrew/internal/middleware"
	"github.com/hitoshi/filmcrew/internal/model"
)

// ログイン完了後のフロントエンド側ランディングパス。
const participatePath = "/participate"

// StateStoreInterface は認証ハンドラーが必要とするCSRF state管理のインターフェース。
type StateStoreInterface interface {
	Issue() (string, error)
	Redeem(token string) bool
}

// AuthProviderInterface は認証ハンドラーが必要とするIdPのインターフェース。
type AuthProviderInterface interface {
	LoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*auth.TokenResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL     string        // ログイン完了後のリダイレクト先ベースURL
	CookieDomain    string        // access_token Cookieを共有するドメイン
	CookieSecure    bool          // httpsで配信する場合にtrue
	ExchangeTimeout time.Duration // トークンエンドポイント呼び出しの上限時間
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	states    StateStoreInterface
	provider  AuthProviderInterface
	config    AuthHandlerConfig
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(states StateStoreInterface, provider AuthProviderInterface, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	if config.ExchangeTimeout <= 0 {
		config.ExchangeTimeout = 10 * time.Second
	}
	return &AuthHandler{
		states:    states,
		provider:  provider,
		config:    config,
		collector: collector,
	}
}

// Login はOAuth認可コードフローを開始する。
// CSRF対策のstateを発行し、IdPの認可エンドポイントへリダイレクトする。
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue()
	if err != nil {
		slog.Error("failed to issue oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.collector.RecordLoginStarted()
	http.Redirect(w, r, h.provider.LoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// stateの検証に成功した場合のみ認可コードをアクセストークンに交換し、
// HTTP Only Cookieとしてフロントエンドに配る。
// GET /auth/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）。未発行・使用済み・期限切れは全て拒否。
	state := r.URL.Query().Get("state")
	if state == "" || !h.states.Redeem(state) {
		slog.Warn("oauth state mismatch")
		h.collector.RecordCallbackResult("invalid_state")
		middleware.WriteAPIError(w, model.NewInvalidStateError())
		return
	}

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.collector.RecordCallbackResult("missing_code")
		middleware.WriteAPIError(w, model.NewInvalidRequestError("認可コードがありません"))
		return
	}

	// 3. 認可コードをアクセストークンに交換（上限時間付き）
	ctx, cancel := context.WithTimeout(r.Context(), h.config.ExchangeTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.provider.ExchangeCode(ctx, code)
	h.collector.RecordExchangeLatency(time.Since(start))
	if err != nil {
		slog.Error("token exchange failed", slog.String("error", err.Error()))
		h.collector.RecordCallbackResult("exchange_failed")
		middleware.WriteInternalServerError(w)
		return
	}

	// 4. アクセストークンをCookieとして設定（HTTP Only）。
	// フロントエンドとバックエンドはドメインが異なるためSameSite=Noneにする。
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    result.AccessToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   result.ExpiresIn,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})

	// 5. フロントエンドにリダイレクト
	h.collector.RecordCallbackResult("success")
	http.Redirect(w, r, h.config.FrontendURL+participatePath, http.StatusTemporaryRedirect)
}

// Logout はアクセストークンCookieを破棄する。
// トークン自体はIdPが発行したものなのでサーバー側に破棄対象の状態はない。
// GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})

	http.Redirect(w, r, h.config.FrontendURL, http.StatusTemporaryRedirect)
}
