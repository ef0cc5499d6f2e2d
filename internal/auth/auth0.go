package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Auth0Config はAuth0プロバイダーの設定。
type Auth0Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	CallbackURL  string // ログイン時と交換時で完全一致が要求される

	// テスト用にオーバーライド可能なURL
	AuthorizeURL string
	TokenURL     string
}

// Auth0Provider はAuth0による認可コードフローを提供する。
// 自身は状態を持たず、stateの管理はStateStoreに委譲する。
type Auth0Provider struct {
	config Auth0Config
	client *http.Client
}

// NewAuth0Provider はAuth0Providerを生成する。
// clientがnilの場合はhttp.DefaultClientを使用する。
// 本番ではタイムアウトとSSRF防御を設定したクライアントを注入すること。
func NewAuth0Provider(config Auth0Config, client *http.Client) *Auth0Provider {
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = fmt.Sprintf("https://%s/authorize", config.Domain)
	}
	if config.TokenURL == "" {
		config.TokenURL = fmt.Sprintf("https://%s/oauth/token", config.Domain)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Auth0Provider{config: config, client: client}
}

// LoginURL はAuth0の認可エンドポイントへのリダイレクトURLを生成する。
// スコープにはopenid profile email user_idを含む。
func (p *Auth0Provider) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"state":         {state},
		"scope":         {"openid profile email user_id"},
	}
	return p.config.AuthorizeURL + "?" + params.Encode()
}

// TokenResult はトークンエンドポイントのレスポンス。
// access_tokenがそのままセッション資格情報となり、expires_inが
// Cookieの有効期間になる。
type TokenResult struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// トークンエンドポイントへのform-encoded POSTを1回だけ行う。
// redirect_uriにはログイン時と同じコールバックURLを渡す
// （プロバイダー側で一致が検証される）。
func (p *Auth0Provider) ExchangeCode(ctx context.Context, code string) (*TokenResult, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result TokenResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if result.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &result, nil
}
