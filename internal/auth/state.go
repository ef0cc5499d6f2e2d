// Package auth はOAuth認証フローとIDトークン検証を提供する。
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// StateStore はOAuthリダイレクト往復を結びつける一度きりのstateトークンを管理する。
// グローバル変数ではなく依存として注入し、mutexで並行アクセスから保護する。
// 各トークンにはTTLを設け、放置されたログインフローのエントリが
// 無限に溜まらないようにする。
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time // token -> 失効時刻
	ttl    time.Duration

	// テスト用にオーバーライド可能な現在時刻取得関数
	now func() time.Time
}

// NewStateStore はStateStoreを生成する。
// ttlが0以下の場合は10分を使用する。
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue は新しいstateトークンを発行して未使用として記録する。
// トークンは128ビットの暗号論的乱数のhex表現（32文字）で、
// 衝突は実用上起こらない。
// 呼び出しのたびに期限切れエントリを遅延クリーンアップする。
func (s *StateStore) Issue() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupLocked()
	s.states[token] = s.now().Add(s.ttl)

	return token, nil
}

// Redeem はstateトークンを検証し、見つかった場合はアトミックに削除してtrueを返す。
// 一度使用したトークン、発行していないトークン、期限切れのトークンにはfalseを返す。
// 同一トークンに対する並行Redeemで両方が成功することはない。
func (s *StateStore) Redeem(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[token]
	if !ok {
		return false
	}
	delete(s.states, token)

	return s.now().Before(expiry)
}

// Len は現在未使用のトークン数を返す。テストおよびメトリクス用。
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// cleanupLocked は期限切れエントリを削除する。mu保持中に呼ぶこと。
func (s *StateStore) cleanupLocked() {
	now := s.now()
	for token, expiry := range s.states {
		if now.After(expiry) {
			delete(s.states, token)
		}
	}
}
