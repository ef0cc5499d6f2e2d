package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/filmcrew/internal/model"
)

// Verifier はベアラートークンが現在有効な、正しく署名された
// アイデンティティ表明であるかを判定する。
// 検証失敗の理由（署名不正・期限切れ・発行者不一致など）は呼び出し側に
// 区別させず、全てUnauthorizedに集約する。内部情報の漏洩を防ぐため。
type Verifier struct {
	keys     *KeySet
	parser   *jwt.Parser
	audience string
	issuer   string
}

// idTokenClaims はIDトークンのクレーム集合。
// subクレームがIdentityのIDに対応する。
type idTokenClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewVerifier はVerifierを生成する。
// audienceには設定済みクライアントID、発行者には https://{domain}/ を期待する。
// RSA系署名のみを許可する。
func NewVerifier(keys *KeySet, clientID, domain string) *Verifier {
	audience := clientID
	issuer := fmt.Sprintf("https://%s/", domain)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)

	return &Verifier{
		keys:     keys,
		parser:   parser,
		audience: audience,
		issuer:   issuer,
	}
}

// Verify はベアラートークンを検証し、認証済みIdentityを返す。
// 検証手順:
//  1. 未検証ヘッダーからkey識別子(kid)を取り出す
//  2. KeySetから対応する公開鍵を引く（改ざん・ローテーション済み鍵の両方を弾く）
//  3. 署名・audience・発行者・有効期限を検証する
//
// いずれかに失敗した場合は一律にUnauthorizedを返す。
func (v *Verifier) Verify(tokenString string) (*model.Identity, error) {
	claims := &idTokenClaims{}

	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("missing kid header")
		}
		key, found := v.keys.Find(kid)
		if !found {
			return nil, fmt.Errorf("unknown kid: %s", kid)
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return nil, model.NewUnauthorizedError()
	}

	if claims.Subject == "" {
		return nil, model.NewUnauthorizedError()
	}

	return &model.Identity{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
	}, nil
}
