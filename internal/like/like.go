// Package like はブログへのいいね切り替えを提供する。
package like

import (
	"context"
	"log/slog"

	"github.com/hitoshi/blogfront/internal/metrics"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/optimistic"
)

// 画面に表示するメッセージ。
const (
	MsgAuthRequired = "You must be logged in to like this post."
	MsgReload       = "Please reload the post and try again."
	MsgFailed       = "Unable to update like. Please try again."
)

// Kind はメトリクス上の更新種別。
const Kind = "like"

// Client はいいねAPIのクライアント。
type Client interface {
	Like(ctx context.Context, token, blogID string) (*model.LikeResponse, error)
	Unlike(ctx context.Context, token, blogID string) (*model.LikeResponse, error)
}

// remote はClientをoptimistic.Remoteに適合させる。
type remote struct {
	client Client
}

func (r remote) Apply(ctx context.Context, token, blogID string) (model.LikeState, error) {
	res, err := r.client.Like(ctx, token, blogID)
	if err != nil {
		return model.LikeState{}, err
	}
	return res.State(), nil
}

func (r remote) Undo(ctx context.Context, token, blogID string) (model.LikeState, error) {
	res, err := r.client.Unlike(ctx, token, blogID)
	if err != nil {
		return model.LikeState{}, err
	}
	return res.State(), nil
}

// Toggler は閲覧者1人分のいいね状態をブログごとに管理する。
type Toggler struct {
	ctrl *optimistic.Controller[model.LikeState]
}

// NewToggler はTogglerを生成する。
func NewToggler(client Client, logger *slog.Logger, mc metrics.MetricsCollector) *Toggler {
	return &Toggler{
		ctrl: optimistic.New(optimistic.Config[model.LikeState]{
			Kind:    Kind,
			Remote:  remote{client: client},
			Invert:  model.LikeState.Toggled,
			Forward: func(next model.LikeState) bool { return next.Liked },
			Messages: optimistic.Messages{
				AuthRequired: MsgAuthRequired,
				NotSeeded:    MsgReload,
				Fallback:     MsgFailed,
			},
			Logger:  logger,
			Metrics: mc,
		}),
	}
}

// Seed はブログ詳細の取得結果から初期状態を設定する。
// 件数は常にサーバーの値を使う。Likedがnilの場合はこのプロセスで最後に確認した値を引き継ぐ。
func (t *Toggler) Seed(detail *model.BlogDetail) {
	state := model.LikeState{
		Liked: t.ctrl.View(detail.ID).State.Liked,
		Count: detail.LikeCount,
	}
	if detail.Liked != nil {
		state.Liked = *detail.Liked
	}
	t.ctrl.Seed(detail.ID, state)
}

// Toggle はいいね状態を切り替える。tokenが空の場合はoptimistic.ErrAuthRequired、
// 更新中の場合はoptimistic.ErrInFlight、Seed前またはReset後の場合はoptimistic.ErrNotSeededを返す。
func (t *Toggler) Toggle(ctx context.Context, blogID, token string) (*optimistic.Attempt[model.LikeState], error) {
	return t.ctrl.Trigger(ctx, blogID, token)
}

// View はブログの現在のいいね表示状態を返す。
func (t *Toggler) View(blogID string) optimistic.View[model.LikeState] {
	return t.ctrl.View(blogID)
}

// Reset は保持しているいいね状態を破棄する。更新中のブログは残す。
// 以後はブログ詳細を取り直すまでToggleを受け付けない。
func (t *Toggler) Reset() {
	t.ctrl.Reset()
}

// Pending はいいねの確定待ちが残っていればtrueを返す。
func (t *Toggler) Pending() bool {
	return t.ctrl.Pending()
}
