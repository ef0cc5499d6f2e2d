package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
)

// KeySet はIDプロバイダーの公開鍵集合を保持する。
// プロセス起動時に1回取得し、以降は読み取り専用として扱う。
// プロバイダーが鍵をローテーションした場合はプロセスの再起動が必要
// （既知の制約。バックグラウンド更新は持たない）。
type KeySet struct {
	keys map[string]*rsa.PublicKey // kid -> 公開鍵
}

// Find はkey識別子に対応する公開鍵を返す。
func (ks *KeySet) Find(kid string) (*rsa.PublicKey, bool) {
	key, ok := ks.keys[kid]
	return key, ok
}

// Len は保持している鍵の数を返す。
func (ks *KeySet) Len() int {
	return len(ks.keys)
}

// jwksResponse はJWKSエンドポイントのレスポンス。
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey はJWKSレスポンス内の1つの鍵。RSA鍵の再構築に必要なフィールドのみ持つ。
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// FetchKeySet はプロバイダーのwell-knownエンドポイントからJWKSを取得する。
// 到達不能またはレスポンスが鍵として解釈できない場合はエラーを返す。
// 起動シーケンスで呼び出され、失敗は起動全体の失敗として扱われる。
// レスポンスボディは1MBに制限する。
func FetchKeySet(ctx context.Context, client *http.Client, domain string) (*KeySet, error) {
	if client == nil {
		client = http.DefaultClient
	}

	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("JWKS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	return ParseKeySet(body)
}

// ParseKeySet はJWKSレスポンスのJSONからKeySetを構築する。
// RSA鍵のみをサポートし、kidを持たない鍵と不正な鍵はスキップする。
// 使用可能な鍵が1つもない場合はエラーを返す。
func ParseKeySet(body []byte) (*KeySet, error) {
	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS JSON: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid == "" || k.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			// 不正な鍵はスキップ
			continue
		}
		keys[k.Kid] = pubKey
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no usable RSA keys in JWKS")
	}

	return &KeySet{keys: keys}, nil
}

// parseRSAPublicKey はbase64url符号化されたmodulus(n)とexponent(e)から
// *rsa.PublicKeyを構築する。
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}
