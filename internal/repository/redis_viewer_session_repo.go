package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/blogfront/internal/model"
)

const redisViewerSessionPrefix = "blogfront:viewer:"

// RedisViewerSessionRepo はRedisを使用した閲覧者セッションリポジトリ。
// 有効期限はキーのTTLで管理するため、期限切れセッションの削除ジョブは不要。
type RedisViewerSessionRepo struct {
	client *redis.Client
	prefix string
}

// NewRedisViewerSessionRepo は接続URLからRedisViewerSessionRepoを生成し、疎通を確認する。
func NewRedisViewerSessionRepo(ctx context.Context, redisURL string) (*RedisViewerSessionRepo, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisViewerSessionRepoWithClient(client), nil
}

// NewRedisViewerSessionRepoWithClient は既存のクライアントからRedisViewerSessionRepoを生成する。
func NewRedisViewerSessionRepoWithClient(client *redis.Client) *RedisViewerSessionRepo {
	return &RedisViewerSessionRepo{
		client: client,
		prefix: redisViewerSessionPrefix,
	}
}

func (r *RedisViewerSessionRepo) key(id string) string {
	return r.prefix + id
}

// Create は閲覧者セッションを保存する。TTLはExpiresAtまでの残り時間。
func (r *RedisViewerSessionRepo) Create(ctx context.Context, session *model.ViewerSession) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}
	if err := r.save(ctx, session); err != nil {
		return fmt.Errorf("failed to create viewer session: %w", err)
	}
	return nil
}

// FindByID は閲覧者セッションを取得する。存在しない場合はnilを返す。
func (r *RedisViewerSessionRepo) FindByID(ctx context.Context, id string) (*model.ViewerSession, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find viewer session: %w", err)
	}

	var session model.ViewerSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode viewer session: %w", err)
	}
	return &session, nil
}

// UpdateToken はトークンと有効期限を更新する。
func (r *RedisViewerSessionRepo) UpdateToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	session, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrNotFound
	}

	session.Token = token
	session.ExpiresAt = expiresAt
	session.UpdatedAt = time.Now()
	if err := r.save(ctx, session); err != nil {
		return fmt.Errorf("failed to update viewer session token: %w", err)
	}
	return nil
}

// DeleteByID は閲覧者セッションを削除する。
func (r *RedisViewerSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete viewer session: %w", err)
	}
	return nil
}

// Ping はRedisへの疎通を確認する。
func (r *RedisViewerSessionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close はRedis接続を閉じる。
func (r *RedisViewerSessionRepo) Close() error {
	return r.client.Close()
}

func (r *RedisViewerSessionRepo) save(ctx context.Context, session *model.ViewerSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("viewer session %s already expired", session.ID)
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(session.ID), raw, ttl).Err()
}

// compile-time interface check
var _ ViewerSessionRepository = (*RedisViewerSessionRepo)(nil)
