package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/filmcrew/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_admin FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// GetOrCreate はユーザー行を取得し、存在しない場合はIdentityから遅延作成する。
// 同一ユーザーの並行リクエストで両方が挿入を試みても、ON CONFLICTで
// 冪等に収束する。
func (r *PostgresUserRepo) GetOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error) {
	user, err := r.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		identity.ID, identity.Name, identity.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	user, err = r.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user not found after insert: %s", identity.ID)
	}
	return user, nil
}

// IsAdmin は指定ユーザーの管理者フラグを返す。行が存在しない場合はfalseを返す。
func (r *PostgresUserRepo) IsAdmin(ctx context.Context, id string) (bool, error) {
	var isAdmin bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_admin FROM users WHERE id = $1`,
		id,
	).Scan(&isAdmin)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check admin flag: %w", err)
	}

	return isAdmin, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
