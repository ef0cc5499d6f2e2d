// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// OutboundClientService はIDプロバイダーへのアウトバウンドHTTPクライアント生成の
// インターフェースを定義する。JWKS取得とトークン交換の両方で使用される。
type OutboundClientService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// プロバイダーのホスト名は環境変数由来だが、設定ミスで内部ネットワークを
	// 指した場合でもリクエストが外に出ないよう、safeurlで防御する。
	NewSafeClient(timeout time.Duration) *http.Client
}

// allowedSchemes はアウトバウンドリクエストで許可されるURLスキーム。
var allowedSchemes = []string{"https", "http"}

// outboundGuard はOutboundClientServiceの実装。
type outboundGuard struct{}

// NewOutboundGuard はOutboundClientServiceの新しいインスタンスを生成する。
func NewOutboundGuard() *outboundGuard {
	return &outboundGuard{}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlのデフォルト設定により以下がブロックされる:
//   - プライベートIPアドレス (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
//   - ループバックアドレス (127.0.0.0/8, ::1)
//   - リンクローカルアドレス (169.254.0.0/16, fe80::/10)
//   - メタデータIPアドレス (169.254.169.254)
//
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// DNS再バインディング攻撃にも対応している。
func (g *outboundGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}
