// Package viewer は閲覧者（ブラウザ）ごとの状態を束ねる。
//
// Viewerは1つのセッション管理と1つのいいね切り替えを持つ明示的なコンテキストで、
// Registryがviewer_idごとにプロセス内で保持する。
package viewer

import (
	"context"
	"sync"

	"github.com/hitoshi/blogfront/internal/like"
	"github.com/hitoshi/blogfront/internal/session"
)

// Viewer は閲覧者1人分の状態。
type Viewer struct {
	ID      string
	Session *session.Manager
	Likes   *like.Toggler

	resolveMu sync.Mutex
	resolved  bool
}

// ensureResolved はセッションの初回解決を行う。
// 保存先からトークンを読めなかった場合は未解決のまま残し、次のアクセスで再試行する。
// 解決はリクエストの切断に左右されないよう、ctxのキャンセルを引き継がない。
func (v *Viewer) ensureResolved(ctx context.Context) {
	v.resolveMu.Lock()
	defer v.resolveMu.Unlock()

	if v.resolved {
		return
	}
	// 解決前にログイン・登録で状態が確定していれば読み直さない
	if v.Session.State() == session.StateAuthenticated {
		v.resolved = true
		return
	}
	if _, err := v.Session.Restore(context.WithoutCancel(ctx)); err != nil {
		return
	}
	v.resolved = true
}

// Token は認証済みの場合のバックエンドトークンを返す。未ログインなら空文字列。
func (v *Viewer) Token() string {
	return v.Session.Token()
}

// Authenticated は認証済みかを返す。
func (v *Viewer) Authenticated() bool {
	return v.Session.State() == session.StateAuthenticated
}
