package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/filmcrew/internal/model"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListAll(ctx context.Context) ([]*model.Team, error)
}

// AdminHandler は管理者専用のHTTPハンドラー。
// 管理者確認は前段のミドルウェアで行われる。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// Hello は管理者スコープの疎通確認用エンドポイント。
// GET /admin/
func (h *AdminHandler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "hello admin"})
}

// ListTeams は全チームの一覧を返す。
// GET /admin/teams
func (h *AdminHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, teams)
}
