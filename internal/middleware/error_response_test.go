package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/filmcrew/internal/model"
)

func TestWriteAPIError_DerivesStatusFromCode(t *testing.T) {
	tests := []struct {
		name       string
		apiErr     *model.APIError
		wantStatus int
	}{
		{name: "認証エラーは401", apiErr: model.NewUnauthorizedError(), wantStatus: http.StatusUnauthorized},
		{name: "閲覧権限エラーは403", apiErr: model.NewTeamAccessDeniedError("team-1"), wantStatus: http.StatusForbidden},
		{name: "チーム状態エラーは400", apiErr: model.NewInTeamError(), wantStatus: http.StatusBadRequest},
		{name: "CSRFエラーは400", apiErr: model.NewInvalidStateError(), wantStatus: http.StatusBadRequest},
		{name: "内部エラーは500", apiErr: model.NewInternalError(), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteAPIError(w, tt.apiErr)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != tt.apiErr.Code {
				t.Errorf("code = %d, want %d", body.Code, tt.apiErr.Code)
			}
			if body.Message == "" || body.Category == "" || body.Action == "" {
				t.Errorf("error body has empty fields: %+v", body)
			}
		})
	}
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeInternalError {
		t.Errorf("code = %d, want %d", body.Code, model.ErrCodeInternalError)
	}
}
