// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/blogfront/internal/model"
)

// ErrNotFound は更新対象の閲覧者セッションが存在しないことを示す。
var ErrNotFound = errors.New("viewer session not found")

// ViewerSessionRepository は閲覧者セッション（viewer_idとバックエンドトークンの対応）の
// 永続化インターフェース。
type ViewerSessionRepository interface {
	// Create は閲覧者セッションを作成する。
	Create(ctx context.Context, session *model.ViewerSession) error
	// FindByID は指定IDの閲覧者セッションを取得する。存在しない・期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ViewerSession, error)
	// UpdateToken はトークンを書き換え、有効期限を延長する。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdateToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// DeleteByID は指定IDの閲覧者セッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
