// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/filmcrew/internal/model"
)

// ErrDuplicateTeamName はチーム名の一意性制約違反を表す。
// 並行するcreateのうち敗者側に返る。
var ErrDuplicateTeamName = errors.New("team name already taken")

// ErrDuplicateMembership は1ユーザー1チーム制約の違反を表す。
// 並行するjoin/createのうち敗者側に返る。
var ErrDuplicateMembership = errors.New("user already has a team membership")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// GetOrCreate はユーザー行を取得し、存在しない場合はIdentityから遅延作成する。
	GetOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error)

	// IsAdmin は指定ユーザーの管理者フラグを返す。行が存在しない場合はfalseを返す。
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// TeamRepository はチームと所属関係の永続化インターフェース。
// 1ユーザー1チームの不変条件はuser_connectionのUNIQUE制約で保証され、
// 制約違反はErrDuplicateMembership / ErrDuplicateTeamNameに変換される。
type TeamRepository interface {
	// FindByID は指定IDのチームを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Team, error)

	// FindByUserID はユーザーが所属するチームを取得する。未所属の場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Team, error)

	// ListAll は全チームを返す。
	ListAll(ctx context.Context) ([]*model.Team, error)

	// CreateWithMembership はチーム行と作成者の所属行を同一トランザクションで作成する。
	// どちらかの挿入が失敗した場合は両方ロールバックされ、孤児チームは残らない。
	// ユーザー行が未作成の場合はIdentityから同時に作成する。
	CreateWithMembership(ctx context.Context, team *model.Team, identity *model.Identity) error

	// AddMember はユーザーを既存チームに所属させる。
	// ユーザー行が未作成の場合はIdentityから同時に作成する。
	AddMember(ctx context.Context, teamID string, identity *model.Identity) error

	// RemoveMemberByUserID はユーザーの所属行を削除する。
	// 削除した行があった場合はtrueを返す。
	RemoveMemberByUserID(ctx context.Context, userID string) (bool, error)

	// HasMembership はユーザーが指定チームに所属しているかを返す。
	HasMembership(ctx context.Context, userID, teamID string) (bool, error)

	// ListMembers は指定チームの全メンバーを返す。メンバー不在の場合は空スライスを返す。
	ListMembers(ctx context.Context, teamID string) ([]*model.User, error)

	// UpdateFilm はチームの作品情報を更新する。
	UpdateFilm(ctx context.Context, teamID, filmName, filmDescription string) error
}
