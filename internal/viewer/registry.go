package viewer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/blogfront/internal/like"
	"github.com/hitoshi/blogfront/internal/metrics"
	"github.com/hitoshi/blogfront/internal/repository"
	"github.com/hitoshi/blogfront/internal/session"
)

// Backend はViewerが必要とするバックエンドAPI。
type Backend interface {
	session.AuthClient
	like.Client
}

// RegistryConfig はRegistryの設定。
type RegistryConfig struct {
	Backend Backend
	Repo    repository.ViewerSessionRepository
	// SessionMaxAge はトークン保存時に設定する閲覧者セッションの有効期間。
	SessionMaxAge time.Duration
	Logger        *slog.Logger
	Metrics       metrics.MetricsCollector
}

type registryEntry struct {
	viewer   *Viewer
	lastSeen time.Time
}

// Registry はviewer_idからViewerへの対応をプロセス内で保持する。並行呼び出しに対して安全。
type Registry struct {
	cfg RegistryConfig
	now func() time.Time

	mu      sync.Mutex
	viewers map[string]*registryEntry
}

// NewRegistry はRegistryを生成する。
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		cfg:     cfg,
		now:     time.Now,
		viewers: make(map[string]*registryEntry),
	}
}

// Get は閲覧者のViewerを返す。初めて見る閲覧者の場合は生成し、
// 保存済みトークンからセッションを解決してから返す。
func (r *Registry) Get(ctx context.Context, viewerID string) *Viewer {
	r.mu.Lock()
	e, ok := r.viewers[viewerID]
	if !ok {
		e = &registryEntry{viewer: r.newViewer(viewerID)}
		r.viewers[viewerID] = e
	}
	e.lastSeen = r.now()
	count := len(r.viewers)
	r.mu.Unlock()

	if !ok {
		r.cfg.Metrics.SetActiveViewers(count)
	}
	e.viewer.ensureResolved(ctx)
	return e.viewer
}

// Len は保持している閲覧者数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Sweep はidle以上アクセスの無い閲覧者を破棄し、破棄した件数を返す。
// いいねの確定待ちが残っている閲覧者は、結果を失わないよう次回以降まで残す。
// トークンは永続化されているため、次回アクセス時に再度解決される。
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	removed := 0
	for id, e := range r.viewers {
		if e.lastSeen.Before(cutoff) && !e.viewer.Likes.Pending() {
			delete(r.viewers, id)
			removed++
		}
	}
	count := len(r.viewers)
	r.mu.Unlock()

	r.cfg.Metrics.SetActiveViewers(count)
	return removed
}

// RunSweeper はctxが終了するまでinterval間隔でSweepを実行する。
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(idle); removed > 0 {
				r.cfg.Logger.Info("idle viewers swept",
					slog.Int("removed", removed),
					slog.Int("active", r.Len()),
				)
			}
		}
	}
}

func (r *Registry) newViewer(viewerID string) *Viewer {
	store := &tokenStore{
		repo:     r.cfg.Repo,
		viewerID: viewerID,
		maxAge:   r.cfg.SessionMaxAge,
		now:      r.now,
	}
	logger := r.cfg.Logger.With(slog.String("viewer_id", viewerID))
	return &Viewer{
		ID:      viewerID,
		Session: session.NewManager(r.cfg.Backend, store, logger, r.cfg.Metrics),
		Likes:   like.NewToggler(r.cfg.Backend, logger, r.cfg.Metrics),
	}
}
