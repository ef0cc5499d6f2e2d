package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/filmcrew/internal/middleware"
	"github.com/hitoshi/filmcrew/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error)
}

// UserHandler はユーザー関連のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// GetUser は認証済みユーザーの情報を返す。
// ユーザー行が未作成の場合はIdentityから遅延作成する。
// GET /api/user
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetOrCreate(r.Context(), identity)
	if err != nil {
		slog.Error("failed to get or create user", slog.String("error", err.Error()), slog.String("user_id", identity.ID))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
