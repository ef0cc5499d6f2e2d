package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/filmcrew/internal/metrics"
	"github.com/hitoshi/filmcrew/internal/middleware"
	"github.com/hitoshi/filmcrew/internal/model"
)

// TeamServiceInterface はチームハンドラーが必要とするサービスインターフェース。
type TeamServiceInterface interface {
	Create(ctx context.Context, identity *model.Identity, name string) (*model.Team, error)
	Join(ctx context.Context, identity *model.Identity, teamID string) (*model.Team, error)
	Leave(ctx context.Context, identity *model.Identity) error
	GetTeam(ctx context.Context, identity *model.Identity) (*model.Team, error)
	GetMembers(ctx context.Context, identity *model.Identity, teamID string) ([]*model.User, error)
	UpdateFilm(ctx context.Context, identity *model.Identity, filmName, filmDescription string) (*model.Team, error)
}

// TeamHandler はチーム関連のHTTPハンドラー。
type TeamHandler struct {
	service   TeamServiceInterface
	collector metrics.MetricsCollector
}

// NewTeamHandler はTeamHandlerを生成する。
func NewTeamHandler(service TeamServiceInterface, collector metrics.MetricsCollector) *TeamHandler {
	return &TeamHandler{service: service, collector: collector}
}

// GetTeam は認証済みユーザーが所属するチームを返す。
// 未所属の場合はnullを返す（エラーではない）。
// GET /api/team
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	team, err := h.service.GetTeam(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, team)
}

// CreateTeam は新しいチームを作成する。
// GET /api/team/new?name=xxx
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	team, err := h.service.Create(r.Context(), identity, r.URL.Query().Get("name"))
	h.collector.RecordTeamOperation("create", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, team)
}

// JoinTeam は認証済みユーザーを既存チームに参加させる。
// GET /api/team/join?id=xxx
func (h *TeamHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	team, err := h.service.Join(r.Context(), identity, r.URL.Query().Get("id"))
	h.collector.RecordTeamOperation("join", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, team)
}

// LeaveTeam は認証済みユーザーをチームから脱退させる。
// GET /api/team/leave
func (h *TeamHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	err = h.service.Leave(r.Context(), identity)
	h.collector.RecordTeamOperation("leave", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMembers は指定チームのメンバー一覧を返す。
// 閲覧できるのはそのチームのメンバーと管理者のみ。
// GET /api/team/{id}/members
func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	teamID := chi.URLParam(r, "id")
	members, err := h.service.GetMembers(r.Context(), identity, teamID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// filmUpdateRequest は作品情報更新のリクエストボディ。
type filmUpdateRequest struct {
	FilmName        string `json:"film_name"`
	FilmDescription string `json:"film_description"`
}

// UpdateFilm は所属チームの作品情報を更新する。
// PUT /api/team/film
func (h *TeamHandler) UpdateFilm(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var req filmUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディを解析できません"))
		return
	}

	team, err := h.service.UpdateFilm(r.Context(), identity, req.FilmName, req.FilmDescription)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, team)
}
