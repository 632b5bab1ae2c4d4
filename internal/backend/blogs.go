package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/blogfront/internal/model"
)

// PublicFeed は公開フィードの指定ページを取得する。
// GET /public/feed?page=&limit=
func (c *Client) PublicFeed(ctx context.Context, page, limit int) (*model.FeedPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var feed model.FeedPage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/public/feed?" + q.Encode(),
		route:  "/public/feed",
	}, &feed)
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

// PublicBlog はスラッグで公開ブログの詳細を取得する。存在しない場合は404のStatusError。
// GET /public/blogs/{slug}
func (c *Client) PublicBlog(ctx context.Context, slug string) (*model.BlogDetail, error) {
	var detail model.BlogDetail
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/public/blogs/" + url.PathEscape(slug),
		route:  "/public/blogs/{slug}",
	}, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// MyBlogs はログインユーザー自身のブログ一覧を取得する。
// GET /blogs/my
func (c *Client) MyBlogs(ctx context.Context, token string) ([]model.Blog, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var blogs []model.Blog
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/blogs/my",
		route:  "/blogs/my",
		token:  token,
	}, &blogs)
	if err != nil {
		return nil, err
	}
	return blogs, nil
}

// CreateBlog はブログを作成する。
// POST /blogs
func (c *Client) CreateBlog(ctx context.Context, token string, payload model.CreateBlogPayload) (*model.Blog, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var blog model.Blog
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/blogs",
		route:  "/blogs",
		token:  token,
		body:   payload,
	}, &blog)
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

// UpdateBlog はブログを部分更新する。
// PATCH /blogs/{id}
func (c *Client) UpdateBlog(ctx context.Context, token, id string, payload model.UpdateBlogPayload) (*model.Blog, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var blog model.Blog
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/blogs/" + url.PathEscape(id),
		route:  "/blogs/{id}",
		token:  token,
		body:   payload,
	}, &blog)
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

// DeleteBlog はブログを削除する。
// DELETE /blogs/{id}
func (c *Client) DeleteBlog(ctx context.Context, token, id string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/blogs/" + url.PathEscape(id),
		route:  "/blogs/{id}",
		token:  token,
	}, nil)
}

// Like はブログにいいねし、サーバー側の最新状態を返す。
// POST /blogs/{id}/like
func (c *Client) Like(ctx context.Context, token, blogID string) (*model.LikeResponse, error) {
	return c.like(ctx, http.MethodPost, token, blogID)
}

// Unlike はブログのいいねを取り消し、サーバー側の最新状態を返す。
// DELETE /blogs/{id}/like
func (c *Client) Unlike(ctx context.Context, token, blogID string) (*model.LikeResponse, error) {
	return c.like(ctx, http.MethodDelete, token, blogID)
}

func (c *Client) like(ctx context.Context, method, token, blogID string) (*model.LikeResponse, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var resp model.LikeResponse
	err := c.do(ctx, request{
		method: method,
		path:   "/blogs/" + url.PathEscape(blogID) + "/like",
		route:  "/blogs/{id}/like",
		token:  token,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Comments はブログのコメント一覧を取得する。
// GET /blogs/{id}/comments
func (c *Client) Comments(ctx context.Context, blogID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/blogs/" + url.PathEscape(blogID) + "/comments",
		route:  "/blogs/{id}/comments",
	}, &comments)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment はブログにコメントを投稿する。
// POST /blogs/{id}/comments
func (c *Client) CreateComment(ctx context.Context, token, blogID, content string) (*model.Comment, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var comment model.Comment
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/blogs/" + url.PathEscape(blogID) + "/comments",
		route:  "/blogs/{id}/comments",
		token:  token,
		body:   model.CreateCommentPayload{Content: content},
	}, &comment)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
