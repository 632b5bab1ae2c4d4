package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/repository"
)

// tokenStore は閲覧者セッションのレコードをsession.TokenStoreとして扱う。
type tokenStore struct {
	repo     repository.ViewerSessionRepository
	viewerID string
	maxAge   time.Duration
	now      func() time.Time
}

// Token は保存済みトークンを返す。レコードが無ければ空文字列。
func (s *tokenStore) Token(ctx context.Context) (string, error) {
	vs, err := s.repo.FindByID(ctx, s.viewerID)
	if err != nil {
		return "", err
	}
	if vs == nil {
		return "", nil
	}
	return vs.Token, nil
}

// SetToken はトークンを保存し、有効期限を延長する。レコードが無ければ作成する。
func (s *tokenStore) SetToken(ctx context.Context, token string) error {
	expiresAt := s.now().Add(s.maxAge)
	err := s.repo.UpdateToken(ctx, s.viewerID, token, expiresAt)
	if errors.Is(err, repository.ErrNotFound) {
		err = s.repo.Create(ctx, &model.ViewerSession{
			ID:        s.viewerID,
			Token:     token,
			ExpiresAt: expiresAt,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to store token for viewer %s: %w", s.viewerID, err)
	}
	return nil
}

// ClearToken はトークンを空にする。レコードが無ければ何もしない。
func (s *tokenStore) ClearToken(ctx context.Context) error {
	err := s.repo.UpdateToken(ctx, s.viewerID, "", s.now().Add(s.maxAge))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to clear token for viewer %s: %w", s.viewerID, err)
	}
	return nil
}
