package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/filmcrew/internal/model"
)

// uniqueViolation はPostgreSQLの一意性制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresTeamRepo はPostgreSQLを使用したチームリポジトリ。
// 1ユーザー1チームの不変条件はインプロセスのロックではなく
// user_connection."user"のUNIQUE制約で保証する。複数プロセスが
// ロードバランサー背後で並走しても制約は破れない。
type PostgresTeamRepo struct {
	db *sql.DB
}

// NewPostgresTeamRepo はPostgresTeamRepoを生成する。
func NewPostgresTeamRepo(db *sql.DB) *PostgresTeamRepo {
	return &PostgresTeamRepo{db: db}
}

// FindByID は指定IDのチームを取得する。見つからない場合はnilを返す。
func (r *PostgresTeamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	team := &model.Team{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, film_name, film_description, has_file FROM teams WHERE id = $1`,
		id,
	).Scan(&team.ID, &team.Name, &team.FilmName, &team.FilmDescription, &team.HasFile)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find team by ID: %w", err)
	}

	return team, nil
}

// FindByUserID はユーザーが所属するチームを取得する。未所属の場合はnilを返す。
func (r *PostgresTeamRepo) FindByUserID(ctx context.Context, userID string) (*model.Team, error) {
	team := &model.Team{}
	err := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.name, t.film_name, t.film_description, t.has_file
		 FROM user_connection uc JOIN teams t ON t.id = uc.team
		 WHERE uc."user" = $1`,
		userID,
	).Scan(&team.ID, &team.Name, &team.FilmName, &team.FilmDescription, &team.HasFile)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find team by user ID: %w", err)
	}

	return team, nil
}

// ListAll は全チームを名前順で返す。
func (r *PostgresTeamRepo) ListAll(ctx context.Context) ([]*model.Team, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, film_name, film_description, has_file FROM teams ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := []*model.Team{}
	for rows.Next() {
		team := &model.Team{}
		if err := rows.Scan(&team.ID, &team.Name, &team.FilmName, &team.FilmDescription, &team.HasFile); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team rows: %w", err)
	}

	return teams, nil
}

// CreateWithMembership はチーム行と作成者の所属行を同一トランザクションで作成する。
// チーム名の重複はErrDuplicateTeamName、所属の重複はErrDuplicateMembershipに
// 変換する。コミット前にどちらかが失敗した場合は全てロールバックされるため、
// メンバー0人の孤児チームが残ることはない。
func (r *PostgresTeamRepo) CreateWithMembership(ctx context.Context, team *model.Team, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureUserTx(ctx, tx, identity); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO teams (id, name, film_name, film_description, has_file)
		 VALUES ($1, $2, $3, $4, $5)`,
		team.ID, team.Name, team.FilmName, team.FilmDescription, team.HasFile,
	)
	if err != nil {
		if isUniqueViolation(err, "teams") {
			return ErrDuplicateTeamName
		}
		return fmt.Errorf("failed to insert team: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_connection ("user", team) VALUES ($1, $2)`,
		identity.ID, team.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "user_connection") {
			return ErrDuplicateMembership
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AddMember はユーザーを既存チームに所属させる。
// 所属の重複はErrDuplicateMembershipに変換する。
func (r *PostgresTeamRepo) AddMember(ctx context.Context, teamID string, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureUserTx(ctx, tx, identity); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_connection ("user", team) VALUES ($1, $2)`,
		identity.ID, teamID,
	)
	if err != nil {
		if isUniqueViolation(err, "user_connection") {
			return ErrDuplicateMembership
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RemoveMemberByUserID はユーザーの所属行を削除する。
// 削除した行があった場合はtrueを返す。
func (r *PostgresTeamRepo) RemoveMemberByUserID(ctx context.Context, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_connection WHERE "user" = $1`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete membership: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// HasMembership はユーザーが指定チームに所属しているかを返す。
func (r *PostgresTeamRepo) HasMembership(ctx context.Context, userID, teamID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_connection WHERE "user" = $1 AND team = $2)`,
		userID, teamID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return exists, nil
}

// ListMembers は指定チームの全メンバーを返す。メンバー不在の場合は空スライスを返す。
func (r *PostgresTeamRepo) ListMembers(ctx context.Context, teamID string) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, u.is_admin
		 FROM user_connection uc JOIN users u ON u.id = uc."user"
		 WHERE uc.team = $1`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*model.User{}
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member rows: %w", err)
	}

	return members, nil
}

// UpdateFilm はチームの作品情報を更新する。
func (r *PostgresTeamRepo) UpdateFilm(ctx context.Context, teamID, filmName, filmDescription string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET film_name = $2, film_description = $3 WHERE id = $1`,
		teamID, filmName, filmDescription,
	)
	if err != nil {
		return fmt.Errorf("failed to update film info: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("team not found: %s", teamID)
	}

	return nil
}

// ensureUserTx はトランザクション内でユーザー行の存在を保証する。
// usersへの遅延作成がまだ行われていないユーザーでも所属操作を可能にする。
func ensureUserTx(ctx context.Context, tx *sql.Tx, identity *model.Identity) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		identity.ID, identity.Name, identity.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure user row: %w", err)
	}
	return nil
}

// isUniqueViolation はerrが指定テーブルの一意性制約違反かを判定する。
func isUniqueViolation(err error, table string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != uniqueViolation {
		return false
	}
	// 制約名はテーブル名を接頭辞に持つ（例: teams_name_key, user_connection_user_key）
	return pqErr.Constraint == "" || strings.HasPrefix(pqErr.Constraint, table)
}

// compile-time interface check
var _ TeamRepository = (*PostgresTeamRepo)(nil)
