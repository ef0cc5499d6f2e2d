package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/filmcrew/internal/model"
)

// AdminChecker は管理者フラグの照会に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type AdminChecker interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// NewAdminMiddleware は認証済みIdentityの管理者フラグを検証するミドルウェアを返す。
// 認証ミドルウェアの後に配置する必要がある。
// データストアの照会に失敗した場合はエラーをログに残した上で非管理者として
// 扱い、アクセスを拒否する（フェイルクローズ）。非管理者には401を返す。
func NewAdminMiddleware(checker AdminChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), identity.ID)
			if err != nil {
				slog.Error("管理者フラグの照会に失敗しました",
					slog.String("error", err.Error()),
					slog.String("user_id", identity.ID),
				)
				isAdmin = false
			}

			if !isAdmin {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
