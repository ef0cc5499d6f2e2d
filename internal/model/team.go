// Package model はドメインモデルを定義する。
package model

// Team は参加チームを表す。nameには一意性制約がある。
// film_name、film_descriptionはチームメンバーが後から設定する作品情報。
type Team struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	FilmName        string `json:"film_name"`
	FilmDescription string `json:"film_description"`
	HasFile         bool   `json:"has_file"`
}

// Membership はユーザーとチームの所属関係を表す。
// 不変条件: 1ユーザーのMembership行は常に高々1つ。
// user_connectionテーブルのUNIQUE制約で保証する。
type Membership struct {
	UserID string
	TeamID string
}
