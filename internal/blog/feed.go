package blog

import (
	"context"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/model"
)

// Nav はフィードのページ移動方向。
type Nav string

const (
	NavNone Nav = ""
	NavPrev Nav = "prev"
	NavNext Nav = "next"
)

// ParseNav はクエリ値をNavに変換する。未知の値はfalse。
func ParseNav(s string) (Nav, bool) {
	switch Nav(s) {
	case NavNone, NavPrev, NavNext:
		return Nav(s), true
	}
	return NavNone, false
}

// FeedView はフィード1ページ分の表示内容。
type FeedView struct {
	Page       int
	TotalPages int
	Total      int
	Items      []model.FeedBlog
	// Info は先頭・末尾を越えて移動しようとした場合の案内メッセージ。
	Info string
}

// HasPrev は前のページがあるかを返す。
func (v *FeedView) HasPrev() bool { return v.Page > 1 }

// HasNext は次のページがあるかを返す。
func (v *FeedView) HasNext() bool { return v.Page < v.TotalPages }

// Feed は公開フィードを取得する。navが指定された場合はpageから1ページ移動する。
// 先頭より前へは移動せず、案内メッセージを付けて1ページ目を返す。
// 末尾より後ろへ移動しようとした場合は、案内メッセージを付けて最終ページを返す。
func (s *Service) Feed(ctx context.Context, page int, nav Nav) (*FeedView, error) {
	if page < 1 {
		page = 1
	}

	target := page
	info := ""
	switch nav {
	case NavPrev:
		if page == 1 {
			info = MsgAlreadyFirstPage
		} else {
			target = page - 1
		}
	case NavNext:
		target = page + 1
	}

	res, err := s.client.PublicFeed(ctx, target, s.pageSize)
	if err != nil {
		return nil, model.NewBackendFailedError(backend.MessageOf(err, MsgFeedFailed))
	}

	if nav == NavNext && target > res.TotalPages() {
		info = MsgAlreadyLastPage
		target = res.TotalPages()
		if res, err = s.client.PublicFeed(ctx, target, s.pageSize); err != nil {
			return nil, model.NewBackendFailedError(backend.MessageOf(err, MsgFeedFailed))
		}
	}

	items := res.Items
	if items == nil {
		items = []model.FeedBlog{}
	}
	return &FeedView{
		Page:       target,
		TotalPages: res.TotalPages(),
		Total:      res.Total,
		Items:      items,
		Info:       info,
	}, nil
}
