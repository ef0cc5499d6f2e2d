package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// jwksJSONFor は指定した公開鍵を含むJWKSレスポンスのJSONを生成する。
func jwksJSONFor(t *testing.T, kid string, pub *rsa.PublicKey) string {
	t.Helper()

	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	return fmt.Sprintf(`{"keys":[{"kty":"RSA","kid":%q,"use":"sig","n":%q,"e":%q}]}`, kid, n, e)
}

func TestParseKeySet_ValidRSAKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	ks, err := ParseKeySet([]byte(jwksJSONFor(t, "key-1", &key.PublicKey)))
	if err != nil {
		t.Fatalf("ParseKeySet() error = %v", err)
	}

	pub, ok := ks.Find("key-1")
	if !ok {
		t.Fatal("Find(key-1) should succeed")
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 || pub.E != key.PublicKey.E {
		t.Error("reconstructed public key does not match the original")
	}
}

func TestParseKeySet_UnknownKid_NotFound(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	ks, err := ParseKeySet([]byte(jwksJSONFor(t, "key-1", &key.PublicKey)))
	if err != nil {
		t.Fatalf("ParseKeySet() error = %v", err)
	}

	if _, ok := ks.Find("key-2"); ok {
		t.Error("Find(key-2) should fail for an absent kid")
	}
}

func TestParseKeySet_SkipsNonRSAAndKeylessEntries(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	n := base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes())
	body := fmt.Sprintf(`{"keys":[
		{"kty":"EC","kid":"ec-key","crv":"P-256"},
		{"kty":"RSA","n":%q,"e":%q},
		{"kty":"RSA","kid":"rsa-key","n":%q,"e":%q}
	]}`, n, e, n, e)

	ks, err := ParseKeySet([]byte(body))
	if err != nil {
		t.Fatalf("ParseKeySet() error = %v", err)
	}

	if ks.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (EC key and kid-less key should be skipped)", ks.Len())
	}
	if _, ok := ks.Find("rsa-key"); !ok {
		t.Error("Find(rsa-key) should succeed")
	}
}

func TestParseKeySet_NoUsableKeys_ReturnsError(t *testing.T) {
	if _, err := ParseKeySet([]byte(`{"keys":[{"kty":"EC","kid":"ec-key"}]}`)); err == nil {
		t.Error("JWKS with no usable RSA keys should return an error")
	}
}

func TestParseKeySet_InvalidJSON_ReturnsError(t *testing.T) {
	if _, err := ParseKeySet([]byte(`not-json`)); err == nil {
		t.Error("invalid JSON should return an error")
	}
}

func TestFetchKeySet_ServesWellKnownPath(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	var requestedPath string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, jwksJSONFor(t, "key-1", &key.PublicKey))
	}))
	defer server.Close()

	// FetchKeySetはdomainからURLを組み立てるため、テストサーバーのホストをdomainとして渡す
	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}

	ks, err := FetchKeySet(context.Background(), server.Client(), serverURL.Host)
	if err != nil {
		t.Fatalf("FetchKeySet() error = %v", err)
	}

	if requestedPath != "/.well-known/jwks.json" {
		t.Errorf("requested path = %q, want %q", requestedPath, "/.well-known/jwks.json")
	}
	if _, ok := ks.Find("key-1"); !ok {
		t.Error("Find(key-1) should succeed")
	}
}

func TestFetchKeySet_Non200_ReturnsError(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}

	if _, err := FetchKeySet(context.Background(), server.Client(), serverURL.Host); err == nil {
		t.Error("non-200 JWKS response should return an error")
	}
}

func TestFetchKeySet_Unreachable_ReturnsError(t *testing.T) {
	// 即座にクローズしたサーバーのアドレスへの接続は失敗する
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := server.Client()
	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	server.Close()

	if _, err := FetchKeySet(context.Background(), client, serverURL.Host); err == nil {
		t.Error("unreachable JWKS endpoint should return an error")
	}
}
