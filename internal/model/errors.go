// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
)

// APIError は統一エラーフォーマットを表す。
// Codeはエラー種別ごとに安定した数値で、JSONエラーボディに含める。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     int    // エラーコード（種別ごとに固定）
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, team, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// 定義済みエラーコード。
// 起動時エラー（プロセス終了コード）と衝突しないよう238以上を使用する。
const (
	ErrCodeNotInTeam        = 238
	ErrCodeTeamAccessDenied = 239
	ErrCodeTeamNameTaken    = 240
	ErrCodeInTeam           = 241
	ErrCodeNoSuchTeam       = 242
	ErrCodeUnauthorized     = 243
	ErrCodeInvalidState     = 244
	ErrCodeInvalidRequest   = 245
	ErrCodeInternalError    = 255
)

// StatusCode はエラー種別に対応するHTTPステータスコードを返す。
// 認証エラーは401、チーム閲覧権限エラーは403、
// CSRF・チーム状態エラーは400、それ以外は500に集約する。
func (e *APIError) StatusCode() int {
	switch e.Code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeTeamAccessDenied:
		return http.StatusForbidden
	case ErrCodeNotInTeam, ErrCodeTeamNameTaken, ErrCodeInTeam,
		ErrCodeNoSuchTeam, ErrCodeInvalidState, ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// 資格情報の欠落・署名不正・期限切れを呼び出し側に区別させないため、
// 全ての検証失敗はこの1種類に集約する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidStateError はOAuthコールバックのstate不一致エラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "無効なstateパラメータです。",
		Category: "auth",
		Action:   "ログインを最初からやり直してください。",
	}
}

// NewInTeamError はチーム所属中に参加・作成を試みた場合のエラーを生成する。
func NewInTeamError() *APIError {
	return &APIError{
		Code:     ErrCodeInTeam,
		Message:  "すでにチームに所属しているため、参加・作成はできません。",
		Category: "team",
		Action:   "現在のチームを脱退してから再度お試しください。",
	}
}

// NewNotInTeamError は未所属状態で脱退を試みた場合のエラーを生成する。
func NewNotInTeamError() *APIError {
	return &APIError{
		Code:     ErrCodeNotInTeam,
		Message:  "チームに所属していないため、脱退できません。",
		Category: "team",
		Action:   "チームに参加してから操作してください。",
	}
}

// NewNoSuchTeamError は存在しないチームへの参照エラーを生成する。
func NewNoSuchTeamError(teamID string) *APIError {
	return &APIError{
		Code:     ErrCodeNoSuchTeam,
		Message:  fmt.Sprintf("チームコード %s のチームは存在しません。", teamID),
		Category: "team",
		Action:   "チームコードを確認してください。",
	}
}

// NewTeamNameTakenError はチーム名の重複エラーを生成する。
func NewTeamNameTakenError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNameTaken,
		Message:  fmt.Sprintf("チーム名 %s はすでに使われています。", name),
		Category: "team",
		Action:   "別のチーム名を指定してください。",
	}
}

// NewTeamAccessDeniedError はチーム閲覧権限エラーを生成する。
func NewTeamAccessDeniedError(teamID string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamAccessDenied,
		Message:  fmt.Sprintf("チーム %s へのアクセス権限がありません。", teamID),
		Category: "team",
		Action:   "自分が所属するチームのみ閲覧できます。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("無効なリクエストです: %s", reason),
		Category: "validation",
		Action:   "リクエストパラメータを確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternalError,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
