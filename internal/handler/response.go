package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/filmcrew/internal/middleware"
	"github.com/hitoshi/filmcrew/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeError はサービス層のエラーを統一エラーフォーマットで書き込む。
// *model.APIError以外のエラーは500に集約する。
func writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}
	middleware.WriteInternalServerError(w)
}
