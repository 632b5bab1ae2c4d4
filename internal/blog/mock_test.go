package blog

import (
	"context"
	"errors"

	"github.com/hitoshi/blogfront/internal/model"
)

// mockClient はBackendClientのモック。未設定の関数はエラーを返す。
type mockClient struct {
	publicFeedFn    func(ctx context.Context, page, limit int) (*model.FeedPage, error)
	publicBlogFn    func(ctx context.Context, slug string) (*model.BlogDetail, error)
	myBlogsFn       func(ctx context.Context, token string) ([]model.Blog, error)
	createBlogFn    func(ctx context.Context, token string, payload model.CreateBlogPayload) (*model.Blog, error)
	updateBlogFn    func(ctx context.Context, token, id string, payload model.UpdateBlogPayload) (*model.Blog, error)
	deleteBlogFn    func(ctx context.Context, token, id string) error
	commentsFn      func(ctx context.Context, blogID string) ([]model.Comment, error)
	createCommentFn func(ctx context.Context, token, blogID, content string) (*model.Comment, error)

	feedPages []int
	calls     int
}

var errNotMocked = errors.New("not mocked")

func (m *mockClient) PublicFeed(ctx context.Context, page, limit int) (*model.FeedPage, error) {
	m.calls++
	m.feedPages = append(m.feedPages, page)
	if m.publicFeedFn == nil {
		return nil, errNotMocked
	}
	return m.publicFeedFn(ctx, page, limit)
}

func (m *mockClient) PublicBlog(ctx context.Context, slug string) (*model.BlogDetail, error) {
	m.calls++
	if m.publicBlogFn == nil {
		return nil, errNotMocked
	}
	return m.publicBlogFn(ctx, slug)
}

func (m *mockClient) MyBlogs(ctx context.Context, token string) ([]model.Blog, error) {
	m.calls++
	if m.myBlogsFn == nil {
		return nil, errNotMocked
	}
	return m.myBlogsFn(ctx, token)
}

func (m *mockClient) CreateBlog(ctx context.Context, token string, payload model.CreateBlogPayload) (*model.Blog, error) {
	m.calls++
	if m.createBlogFn == nil {
		return nil, errNotMocked
	}
	return m.createBlogFn(ctx, token, payload)
}

func (m *mockClient) UpdateBlog(ctx context.Context, token, id string, payload model.UpdateBlogPayload) (*model.Blog, error) {
	m.calls++
	if m.updateBlogFn == nil {
		return nil, errNotMocked
	}
	return m.updateBlogFn(ctx, token, id, payload)
}

func (m *mockClient) DeleteBlog(ctx context.Context, token, id string) error {
	m.calls++
	if m.deleteBlogFn == nil {
		return errNotMocked
	}
	return m.deleteBlogFn(ctx, token, id)
}

func (m *mockClient) Comments(ctx context.Context, blogID string) ([]model.Comment, error) {
	m.calls++
	if m.commentsFn == nil {
		return nil, errNotMocked
	}
	return m.commentsFn(ctx, blogID)
}

func (m *mockClient) CreateComment(ctx context.Context, token, blogID, content string) (*model.Comment, error) {
	m.calls++
	if m.createCommentFn == nil {
		return nil, errNotMocked
	}
	return m.createCommentFn(ctx, token, blogID, content)
}

// identitySanitizer は入力をそのまま返すサニタイザ。
type identitySanitizer struct{}

func (identitySanitizer) Sanitize(s string) string { return s }
