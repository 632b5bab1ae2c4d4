package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/blogfront/internal/model"
)

// PostgresViewerSessionRepo はPostgreSQLを使用した閲覧者セッションリポジトリ。
type PostgresViewerSessionRepo struct {
	db *sql.DB
}

// NewPostgresViewerSessionRepo はPostgresViewerSessionRepoを生成する。
func NewPostgresViewerSessionRepo(db *sql.DB) *PostgresViewerSessionRepo {
	return &PostgresViewerSessionRepo{db: db}
}

// Create は閲覧者セッションを作成する。CreatedAt/UpdatedAtが未設定なら現在時刻を設定する。
func (r *PostgresViewerSessionRepo) Create(ctx context.Context, session *model.ViewerSession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO viewer_sessions (id, token, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.Token, session.ExpiresAt, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create viewer session: %w", err)
	}
	return nil
}

// FindByID は指定IDの閲覧者セッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresViewerSessionRepo) FindByID(ctx context.Context, id string) (*model.ViewerSession, error) {
	session := &model.ViewerSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, expires_at, created_at, updated_at
		 FROM viewer_sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.Token, &session.ExpiresAt, &session.CreatedAt, &session.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find viewer session: %w", err)
	}

	return session, nil
}

// UpdateToken はトークンと有効期限を更新する。
func (r *PostgresViewerSessionRepo) UpdateToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE viewer_sessions
		 SET token = $2, expires_at = $3, updated_at = now()
		 WHERE id = $1`,
		id, token, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update viewer session token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID は指定IDの閲覧者セッションを削除する。
func (r *PostgresViewerSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM viewer_sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete viewer session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ViewerSessionRepository = (*PostgresViewerSessionRepo)(nil)
