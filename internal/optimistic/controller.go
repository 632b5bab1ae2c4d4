// Package optimistic は楽観的更新（Optimistic Update）を制御する。
//
// Controllerはローカル状態を即座に書き換えてからリモート更新を発行し、
// 成功時はサーバーの応答で上書き、失敗時は更新前のスナップショットへ戻す。
// 対象（target）ごとに進行中フラグを持ち、同一対象への同時更新は受け付けない。
package optimistic

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/metrics"
)

var (
	// ErrAuthRequired は未ログインのため更新を受け付けなかったことを示す。
	ErrAuthRequired = errors.New("optimistic: authentication required")
	// ErrInFlight は同一対象の更新が進行中のため何もしなかったことを示す。
	ErrInFlight = errors.New("optimistic: mutation already in flight")
	// ErrNotSeeded は対象の現在の状態が未取得のため何もしなかったことを示す。
	// Seedで状態を取り直すまで更新は受け付けない。
	ErrNotSeeded = errors.New("optimistic: target state is not known")
)

// Remote は対になるリモート更新操作。どちらもサーバー上の確定状態を返す。
type Remote[S any] interface {
	Apply(ctx context.Context, token, target string) (S, error)
	Undo(ctx context.Context, token, target string) (S, error)
}

// Messages は利用者向けメッセージ。
type Messages struct {
	AuthRequired string
	NotSeeded    string
	Fallback     string
}

// Config はControllerの設定。
type Config[S any] struct {
	// Kind はメトリクスとログに使う更新種別（例: "like"）。
	Kind   string
	Remote Remote[S]
	// Invert は現在の状態から楽観的な次状態を求める純粋関数。
	Invert func(S) S
	// Forward は次状態に対してApplyを呼ぶ場合にtrueを返す。falseならUndo。
	Forward  func(S) bool
	Messages Messages
	Logger   *slog.Logger
	Metrics  metrics.MetricsCollector
}

// View は対象1件分の表示用状態。
type View[S any] struct {
	State   S
	Pending bool
	Message string
}

// Attempt は進行中の更新1回分。リクエスト完了まで存在する。
type Attempt[S any] struct {
	Previous   S
	Optimistic S

	done   chan struct{}
	result View[S]
	err    error
}

// Done は更新完了時にcloseされるチャネルを返す。
func (a *Attempt[S]) Done() <-chan struct{} {
	return a.done
}

// Wait は更新完了まで待ち、完了後の表示状態とリモート更新のエラーを返す。
// ctxが先に終了した場合はctx.Err()を返す。更新自体は継続する。
func (a *Attempt[S]) Wait(ctx context.Context) (View[S], error) {
	select {
	case <-a.done:
		return a.result, a.err
	case <-ctx.Done():
		var zero View[S]
		return zero, ctx.Err()
	}
}

type entry[S any] struct {
	state   S
	pending bool
	message string
	// seeded はSeed済みで、その後Resetされていない場合にtrue。
	seeded bool
}

// Controller は楽観的更新を対象ごとに管理する。並行呼び出しに対して安全。
type Controller[S any] struct {
	cfg Config[S]

	mu      sync.Mutex
	entries map[string]*entry[S]
}

// New はControllerを生成する。
func New[S any](cfg Config[S]) *Controller[S] {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller[S]{
		cfg:     cfg,
		entries: make(map[string]*entry[S]),
	}
}

// Seed は対象の初期状態を設定する。更新中の対象は変更しない。
func (c *Controller[S]) Seed(target string, state S) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(target)
	if e.pending {
		return
	}
	e.state = state
	e.seeded = true
}

// View は対象の現在の表示状態を返す。
func (c *Controller[S]) View(target string) View[S] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[target]
	if !ok {
		return View[S]{}
	}
	return e.view()
}

// Forget は対象の状態を破棄する。更新中の対象は破棄しない。
func (c *Controller[S]) Forget(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[target]; ok && !e.pending {
		delete(c.entries, target)
	}
}

// Reset は更新中でないすべての対象の状態を破棄する。
// ログイン・ログアウトで閲覧者の前提が変わったときに使う。
// 更新中の対象も未取得扱いになり、完了後に再度Seedされるまで更新を受け付けない。
func (c *Controller[S]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for target, e := range c.entries {
		if !e.pending {
			delete(c.entries, target)
			continue
		}
		e.seeded = false
	}
}

// Pending は更新中の対象が1件以上あればtrueを返す。
func (c *Controller[S]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.pending {
			return true
		}
	}
	return false
}

// Trigger は対象の状態を反転し、対応するリモート更新を非同期に発行する。
// tokenが空ならErrAuthRequired、対象が更新中ならErrInFlight、
// 対象の状態が未取得ならErrNotSeededを返し、いずれも状態変更・ネットワーク呼び出しを行わない。
func (c *Controller[S]) Trigger(ctx context.Context, target, token string) (*Attempt[S], error) {
	c.mu.Lock()
	e := c.entry(target)

	if token == "" {
		e.message = c.cfg.Messages.AuthRequired
		c.mu.Unlock()
		c.cfg.Metrics.RecordMutation(c.cfg.Kind, metrics.OutcomeRejectedAuth)
		return nil, ErrAuthRequired
	}
	if e.pending {
		c.mu.Unlock()
		c.cfg.Metrics.RecordMutation(c.cfg.Kind, metrics.OutcomeRejectedInFlight)
		return nil, ErrInFlight
	}
	if !e.seeded {
		e.message = c.cfg.Messages.NotSeeded
		c.mu.Unlock()
		c.cfg.Metrics.RecordMutation(c.cfg.Kind, metrics.OutcomeRejectedNotSeeded)
		return nil, ErrNotSeeded
	}

	attempt := &Attempt[S]{
		Previous:   e.state,
		Optimistic: c.cfg.Invert(e.state),
		done:       make(chan struct{}),
	}
	e.message = ""
	e.state = attempt.Optimistic
	e.pending = true
	c.mu.Unlock()

	go c.commit(context.WithoutCancel(ctx), target, token, attempt)

	return attempt, nil
}

func (c *Controller[S]) commit(ctx context.Context, target, token string, attempt *Attempt[S]) {
	var (
		confirmed S
		err       error
	)
	if c.cfg.Forward(attempt.Optimistic) {
		confirmed, err = c.cfg.Remote.Apply(ctx, token, target)
	} else {
		confirmed, err = c.cfg.Remote.Undo(ctx, token, target)
	}

	c.mu.Lock()
	e := c.entry(target)
	if err != nil {
		e.state = attempt.Previous
		e.message = backend.MessageOf(err, c.cfg.Messages.Fallback)
	} else {
		e.state = confirmed
	}
	e.pending = false
	attempt.result = e.view()
	attempt.err = err
	c.mu.Unlock()
	close(attempt.done)

	if err != nil {
		c.cfg.Logger.Warn("optimistic mutation rolled back",
			slog.String("kind", c.cfg.Kind),
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		c.cfg.Metrics.RecordMutation(c.cfg.Kind, metrics.OutcomeRolledBack)
		return
	}
	c.cfg.Metrics.RecordMutation(c.cfg.Kind, metrics.OutcomeReconciled)
}

// entry は対象のエントリを返す。無ければ作成する。c.muを保持して呼ぶこと。
func (c *Controller[S]) entry(target string) *entry[S] {
	e, ok := c.entries[target]
	if !ok {
		e = &entry[S]{}
		c.entries[target] = e
	}
	return e
}

func (e *entry[S]) view() View[S] {
	return View[S]{State: e.state, Pending: e.pending, Message: e.message}
}
