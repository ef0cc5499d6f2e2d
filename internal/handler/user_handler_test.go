package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/filmcrew/internal/model"
)

type mockUserService struct {
	getOrCreateFn func(ctx context.Context, identity *model.Identity) (*model.User, error)
}

func (m *mockUserService) GetOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error) {
	return m.getOrCreateFn(ctx, identity)
}

func TestUserHandler_GetUser_ReturnsUser(t *testing.T) {
	svc := &mockUserService{
		getOrCreateFn: func(ctx context.Context, identity *model.Identity) (*model.User, error) {
			return &model.User{ID: identity.ID, Name: identity.Name, Email: identity.Email, IsAdmin: false}, nil
		},
	}
	h := NewUserHandler(svc)

	w := httptest.NewRecorder()
	h.GetUser(w, authedRequest(http.MethodGet, "/api/user", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var user model.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if user.ID != testHandlerIdentity.ID {
		t.Errorf("user ID = %q, want %q", user.ID, testHandlerIdentity.ID)
	}
}

func TestUserHandler_GetUser_NoIdentity_Returns401(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	w := httptest.NewRecorder()
	h.GetUser(w, httptest.NewRequest(http.MethodGet, "/api/user", nil))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestUserHandler_GetUser_ServiceError_Returns500(t *testing.T) {
	svc := &mockUserService{
		getOrCreateFn: func(ctx context.Context, identity *model.Identity) (*model.User, error) {
			return nil, errors.New("connection reset")
		},
	}
	h := NewUserHandler(svc)

	w := httptest.NewRecorder()
	h.GetUser(w, authedRequest(http.MethodGet, "/api/user", nil))

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}
