// Package model はドメインモデルを定義する。
package model

// Identity はIDトークンの検証によって得られた認証済みユーザーを表す。
// IDはプロバイダーが発行する安定したsubject識別子（subクレーム）。
// コア自身はIdentityを永続化しない。usersテーブルへの書き込みは
// Identityを消費する操作側（GET /api/user）が遅延的に行う。
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// User はデータストア上のユーザー行を表す。
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}
