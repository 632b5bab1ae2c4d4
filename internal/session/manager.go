// Package session は閲覧者の認証状態（セッション）を管理する。
//
// Managerは永続化されたトークンから認証済みユーザーを導出し、
// ログイン・ユーザー登録・ログアウトを提供する。状態遷移は次の通り:
//
//	Resolving → Authenticated | Unauthenticated
//	Unauthenticated → Authenticated   (ログイン・登録成功)
//	Authenticated → Unauthenticated   (ログアウト・再確認失敗)
//
// Resolvingは生成直後にのみ存在する。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/metrics"
	"github.com/hitoshi/blogfront/internal/model"
)

// State はセッションの状態。
type State int

const (
	// StateResolving は起動直後、トークンの確認中。
	StateResolving State = iota
	// StateAuthenticated はバックエンドが確認したユーザーを保持している。
	StateAuthenticated
	// StateUnauthenticated は未ログイン。
	StateUnauthenticated
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ErrIdentityUnavailable はログイン成功後のユーザー取得に失敗したことを示す。
// このときトークンは破棄され、セッションは未ログインのまま。
var ErrIdentityUnavailable = errors.New("session: identity lookup failed after login")

// AuthClient はManagerが利用するバックエンド認証API。
type AuthClient interface {
	Me(ctx context.Context, token string) (*model.Identity, error)
	Login(ctx context.Context, creds model.Credentials) (string, error)
	Register(ctx context.Context, creds model.Credentials) (*backend.RegisterResult, error)
}

// TokenStore はバックエンドのアクセストークンの永続化先。
// トークンを書き換えるのはManagerのみ。
type TokenStore interface {
	// Token は保存済みトークンを返す。未保存の場合は空文字列。
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Manager は1閲覧者分のセッションを管理する。並行呼び出しに対して安全。
type Manager struct {
	auth    AuthClient
	store   TokenStore
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	// opMu はResolve/Login/Register/Logoutを直列化する。
	opMu sync.Mutex

	mu       sync.RWMutex
	state    State
	identity *model.Identity
	token    string
}

// NewManager はStateResolvingのManagerを生成する。
func NewManager(auth AuthClient, store TokenStore, logger *slog.Logger, mc metrics.MetricsCollector) *Manager {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Manager{
		auth:    auth,
		store:   store,
		logger:  logger,
		metrics: mc,
		state:   StateResolving,
	}
}

// State は現在の状態を返す。
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity は認証済みユーザーを返す。未ログインの場合はnil, false。
func (m *Manager) Identity() (*model.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated || m.identity == nil {
		return nil, false
	}
	identity := *m.identity
	return &identity, true
}

// Token は認証済みの場合のみトークンを返す。それ以外は空文字列。
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return ""
	}
	return m.token
}

// Resolve は保存済みトークンからユーザーを取得し、状態を確定する。
// トークンが無ければネットワーク呼び出しをせずに未ログインとなる。
// 取得に失敗した場合はトークンを破棄する。エラーは呼び出し元に返さない。
func (m *Manager) Resolve(ctx context.Context) State {
	state, _ := m.Restore(ctx)
	return state
}

// Restore はResolveと同じ手順で状態を確定する。
// 保存先からトークンを読めなかった場合は、未ログインとしたうえでそのエラーを返す。
// トークンは破棄しないため、呼び出し元は後で再試行できる。
func (m *Manager) Restore(ctx context.Context) (State, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.resolve(ctx)
}

func (m *Manager) resolve(ctx context.Context) (State, error) {
	token, err := m.store.Token(ctx)
	if err != nil {
		m.logger.Error("failed to read session token", slog.String("error", err.Error()))
		m.setUnauthenticated()
		return StateUnauthenticated, fmt.Errorf("failed to read session token: %w", err)
	}
	if token == "" {
		m.setUnauthenticated()
		return StateUnauthenticated, nil
	}

	identity, err := m.auth.Me(ctx, token)
	if err != nil {
		m.logger.Info("session token rejected",
			slog.String("kind", backend.Classify(err).String()),
			slog.String("error", err.Error()),
		)
		m.discardToken(ctx)
		m.setUnauthenticated()
		return StateUnauthenticated, nil
	}

	m.setAuthenticated(token, identity)
	return StateAuthenticated, nil
}

// Login はログインAPIを呼び出し、トークンを保存してからユーザーを取得し直す。
// ログインAPIの失敗はそのまま返す。ユーザー取得に失敗した場合はErrIdentityUnavailable。
func (m *Manager) Login(ctx context.Context, creds model.Credentials) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	token, err := m.auth.Login(ctx, creds)
	if err != nil {
		return err
	}
	if err := m.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	if state, _ := m.resolve(ctx); state != StateAuthenticated {
		return ErrIdentityUnavailable
	}
	return nil
}

// Register はユーザー登録APIを呼び出し、トークンを保存してレスポンスのユーザーで認証済みにする。
// 登録APIの失敗はそのまま返す。
func (m *Manager) Register(ctx context.Context, creds model.Credentials) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	res, err := m.auth.Register(ctx, creds)
	if err != nil {
		return err
	}
	if err := m.store.SetToken(ctx, res.AccessToken); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	identity := res.User
	m.setAuthenticated(res.AccessToken, &identity)
	return nil
}

// Logout はトークンとユーザーをローカルで破棄する。バックエンドは呼び出さない。
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.discardToken(ctx)
	m.setUnauthenticated()
}

func (m *Manager) discardToken(ctx context.Context) {
	if err := m.store.ClearToken(ctx); err != nil {
		m.logger.Error("failed to clear session token", slog.String("error", err.Error()))
	}
}

func (m *Manager) setAuthenticated(token string, identity *model.Identity) {
	m.mu.Lock()
	m.state = StateAuthenticated
	m.token = token
	m.identity = identity
	m.mu.Unlock()
	m.metrics.RecordSessionTransition(StateAuthenticated.String())
}

func (m *Manager) setUnauthenticated() {
	m.mu.Lock()
	changed := m.state != StateUnauthenticated
	m.state = StateUnauthenticated
	m.token = ""
	m.identity = nil
	m.mu.Unlock()
	if changed {
		m.metrics.RecordSessionTransition(StateUnauthenticated.String())
	}
}
