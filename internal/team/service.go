// Package team はチームの作成・参加・脱退と作品情報の管理を提供する。
//
// 1ユーザー1チームの不変条件が中核で、サービス層の事前チェックは
// エラーメッセージの品質のためだけに存在する。実際の保証は
// リポジトリ層のデータベース制約が担うため、複数インスタンスで
// 同時に動作しても不変条件は破れない。
package team

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/filmcrew/internal/model"
	"github.com/hitoshi/filmcrew/internal/repository"
	"github.com/hitoshi/filmcrew/internal/security"
)

// Service はチーム操作のビジネスロジックを提供する。
// 戻り値のエラーは全て*model.APIErrorで、内部エラーの詳細は
// ログにのみ出力しクライアントには返さない。
type Service struct {
	teams     repository.TeamRepository
	users     repository.UserRepository
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger

	// テストでのID固定用
	newID func() string
}

// NewService はServiceを生成する。
func NewService(
	teams repository.TeamRepository,
	users repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *Service {
	return &Service{
		teams:     teams,
		users:     users,
		sanitizer: sanitizer,
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
	}
}

// Create は新しいチームを作成し、作成者を最初のメンバーとして登録する。
// チーム行と所属行は同一トランザクションで書き込まれるため、
// 所属の登録に失敗した場合でも孤児チームは残らない。
//
// 既に所属がある場合はInTeam、チーム名が使用済みの場合はTeamNameTakenを返す。
// 同名チームの同時作成では一方だけが成功し、敗者にはTeamNameTakenが返る。
func (s *Service) Create(ctx context.Context, identity *model.Identity, name string) (*model.Team, error) {
	if name == "" {
		return nil, model.NewInvalidRequestError("チーム名が指定されていません")
	}

	// 事前チェック。競合時の最終防衛線はデータベース制約。
	existing, err := s.teams.FindByUserID(ctx, identity.ID)
	if err != nil {
		s.logger.Error("チームの作成に失敗しました", "error", err, "user_id", identity.ID)
		return nil, model.NewInternalError()
	}
	if existing != nil {
		return nil, model.NewInTeamError()
	}

	team := &model.Team{
		ID:   s.newID(),
		Name: name,
	}

	if err := s.teams.CreateWithMembership(ctx, team, identity); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateTeamName):
			return nil, model.NewTeamNameTakenError(name)
		case errors.Is(err, repository.ErrDuplicateMembership):
			return nil, model.NewInTeamError()
		default:
			s.logger.Error("チームの作成に失敗しました", "error", err, "user_id", identity.ID, "team_name", name)
			return nil, model.NewInternalError()
		}
	}

	s.logger.Info("チームを作成しました", "team_id", team.ID, "team_name", name, "user_id", identity.ID)
	return team, nil
}

// Join はユーザーを既存チームに参加させる。
// 既に所属がある場合はInTeam、チームが存在しない場合はNoSuchTeamを返す。
// 同一ユーザーの同時joinでは一方だけが成功し、敗者にはInTeamが返る。
func (s *Service) Join(ctx context.Context, identity *model.Identity, teamID string) (*model.Team, error) {
	if teamID == "" {
		return nil, model.NewInvalidRequestError("チームIDが指定されていません")
	}

	existing, err := s.teams.FindByUserID(ctx, identity.ID)
	if err != nil {
		s.logger.Error("チームへの参加に失敗しました", "error", err, "user_id", identity.ID)
		return nil, model.NewInternalError()
	}
	if existing != nil {
		return nil, model.NewInTeamError()
	}

	target, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		s.logger.Error("チームへの参加に失敗しました", "error", err, "team_id", teamID)
		return nil, model.NewInternalError()
	}
	if target == nil {
		return nil, model.NewNoSuchTeamError(teamID)
	}

	if err := s.teams.AddMember(ctx, teamID, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateMembership) {
			return nil, model.NewInTeamError()
		}
		s.logger.Error("チームへの参加に失敗しました", "error", err, "team_id", teamID, "user_id", identity.ID)
		return nil, model.NewInternalError()
	}

	s.logger.Info("チームに参加しました", "team_id", teamID, "user_id", identity.ID)
	return target, nil
}

// Leave はユーザーを現在のチームから脱退させる。
// 所属行が実際に削除された場合のみ成功し、所属がなかった場合は
// NotInTeamを返す。削除の成否はDELETEの影響行数で判定するため、
// 確認と削除の間に他リクエストが割り込んでも誤った成功は返らない。
func (s *Service) Leave(ctx context.Context, identity *model.Identity) error {
	removed, err := s.teams.RemoveMemberByUserID(ctx, identity.ID)
	if err != nil {
		s.logger.Error("チームからの脱退に失敗しました", "error", err, "user_id", identity.ID)
		return model.NewInternalError()
	}
	if !removed {
		return model.NewNotInTeamError()
	}

	s.logger.Info("チームから脱退しました", "user_id", identity.ID)
	return nil
}

// GetTeam はユーザーが所属するチームを返す。未所属の場合はnilを返す。
func (s *Service) GetTeam(ctx context.Context, identity *model.Identity) (*model.Team, error) {
	team, err := s.teams.FindByUserID(ctx, identity.ID)
	if err != nil {
		s.logger.Error("チームの取得に失敗しました", "error", err, "user_id", identity.ID)
		return nil, model.NewInternalError()
	}
	return team, nil
}

// GetMembers は指定チームのメンバー一覧を返す。
// 閲覧できるのはそのチームのメンバーと管理者のみで、それ以外には
// TeamAccessDeniedを返す。管理者フラグの取得に失敗した場合は
// エラーをログに残した上で非管理者として扱う（フェイルクローズ）。
func (s *Service) GetMembers(ctx context.Context, identity *model.Identity, teamID string) ([]*model.User, error) {
	target, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		s.logger.Error("メンバー一覧の取得に失敗しました", "error", err, "team_id", teamID)
		return nil, model.NewInternalError()
	}
	if target == nil {
		return nil, model.NewNoSuchTeamError(teamID)
	}

	isAdmin, err := s.users.IsAdmin(ctx, identity.ID)
	if err != nil {
		s.logger.Error("管理者フラグの取得に失敗しました", "error", err, "user_id", identity.ID)
		isAdmin = false
	}

	if !isAdmin {
		member, err := s.teams.HasMembership(ctx, identity.ID, teamID)
		if err != nil {
			s.logger.Error("メンバー一覧の取得に失敗しました", "error", err, "team_id", teamID, "user_id", identity.ID)
			return nil, model.NewInternalError()
		}
		if !member {
			return nil, model.NewTeamAccessDeniedError(teamID)
		}
	}

	members, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		s.logger.Error("メンバー一覧の取得に失敗しました", "error", err, "team_id", teamID)
		return nil, model.NewInternalError()
	}
	return members, nil
}

// UpdateFilm はユーザーが所属するチームの作品情報を更新する。
// 入力はサニタイズされ、HTMLタグを除去したプレーンテキストとして保存される。
// 未所属の場合はNotInTeamを返す。
func (s *Service) UpdateFilm(ctx context.Context, identity *model.Identity, filmName, filmDescription string) (*model.Team, error) {
	current, err := s.teams.FindByUserID(ctx, identity.ID)
	if err != nil {
		s.logger.Error("作品情報の更新に失敗しました", "error", err, "user_id", identity.ID)
		return nil, model.NewInternalError()
	}
	if current == nil {
		return nil, model.NewNotInTeamError()
	}

	name := s.sanitizer.Sanitize(filmName)
	description := s.sanitizer.Sanitize(filmDescription)

	if err := s.teams.UpdateFilm(ctx, current.ID, name, description); err != nil {
		s.logger.Error("作品情報の更新に失敗しました", "error", err, "team_id", current.ID)
		return nil, model.NewInternalError()
	}

	current.FilmName = name
	current.FilmDescription = description

	s.logger.Info("作品情報を更新しました", "team_id", current.ID, "user_id", identity.ID)
	return current, nil
}

// ListAll は全チームを返す。管理画面からの利用を想定する。
func (s *Service) ListAll(ctx context.Context) ([]*model.Team, error) {
	teams, err := s.teams.ListAll(ctx)
	if err != nil {
		s.logger.Error("チーム一覧の取得に失敗しました", "error", err)
		return nil, model.NewInternalError()
	}
	return teams, nil
}
