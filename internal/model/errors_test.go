package model

import (
	"net/http"
	"strings"
	"testing"
)

func TestAPIError_Error_ContainsCodeAndMessage(t *testing.T) {
	err := NewNotInTeamError()

	if !strings.Contains(err.Error(), "238") {
		t.Errorf("Error() = %q, want to contain code 238", err.Error())
	}
	if err.Message == "" {
		t.Error("message must not be empty")
	}
}

func TestAPIError_StatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want int
	}{
		{"Unauthorizedは401", NewUnauthorizedError(), http.StatusUnauthorized},
		{"TeamAccessDeniedは403", NewTeamAccessDeniedError("team-1"), http.StatusForbidden},
		{"NotInTeamは400", NewNotInTeamError(), http.StatusBadRequest},
		{"TeamNameTakenは400", NewTeamNameTakenError("映画部"), http.StatusBadRequest},
		{"InTeamは400", NewInTeamError(), http.StatusBadRequest},
		{"NoSuchTeamは400", NewNoSuchTeamError("team-9"), http.StatusBadRequest},
		{"InvalidStateは400", NewInvalidStateError(), http.StatusBadRequest},
		{"InvalidRequestは400", NewInvalidRequestError("reason"), http.StatusBadRequest},
		{"InternalErrorは500", NewInternalError(), http.StatusInternalServerError},
		{"未知のコードは500", &APIError{Code: 999}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

// エラーコードは安定値であり、変更するとフロントエンドが壊れる
func TestAPIError_CodesAreStable(t *testing.T) {
	tests := []struct {
		err  *APIError
		want int
	}{
		{NewNotInTeamError(), 238},
		{NewTeamAccessDeniedError("t"), 239},
		{NewTeamNameTakenError("n"), 240},
		{NewInTeamError(), 241},
		{NewNoSuchTeamError("t"), 242},
		{NewUnauthorizedError(), 243},
		{NewInvalidStateError(), 244},
		{NewInvalidRequestError("r"), 245},
		{NewInternalError(), 255},
	}

	for _, tt := range tests {
		if tt.err.Code != tt.want {
			t.Errorf("code = %d, want %d", tt.err.Code, tt.want)
		}
	}
}

// 全エラーがカテゴリと対処方法を持つことを検証
func TestAPIError_HaveCategoryAndAction(t *testing.T) {
	errs := []*APIError{
		NewUnauthorizedError(),
		NewInvalidStateError(),
		NewInTeamError(),
		NewNotInTeamError(),
		NewNoSuchTeamError("team-1"),
		NewTeamNameTakenError("映画部"),
		NewTeamAccessDeniedError("team-1"),
		NewInvalidRequestError("理由"),
		NewInternalError(),
	}

	for _, e := range errs {
		if e.Category == "" {
			t.Errorf("code %d: category is empty", e.Code)
		}
		if e.Action == "" {
			t.Errorf("code %d: action is empty", e.Code)
		}
	}
}
