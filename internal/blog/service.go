// Package blog はブログの閲覧・コメント・ダッシュボード管理のドメインロジックを提供する。
//
// データはすべて外部バックエンドが保持しており、このパッケージは
// 入力検証、表示用の整形、エラーの利用者向けメッセージへの変換のみを行う。
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/security"
)

// 利用者向けメッセージ。
const (
	MsgFeedFailed        = "Failed to load feed"
	MsgAlreadyFirstPage  = "You are already on the first page."
	MsgAlreadyLastPage   = "You have reached the last page."
	MsgCommentsFailed    = "Failed to load comments."
	MsgCommentFailed     = "Failed to post comment."
	MsgCommentLoginFirst = "You must be logged in to post a comment."
	MsgMyBlogsFailed     = "Failed to load your blogs."
	MsgBlogCreated       = "Blog created successfully."
	MsgBlogUpdated       = "Blog updated successfully."
	MsgBlogSaveFailed    = "Failed to save blog."
	MsgBlogDeleteFailed  = "Failed to delete blog."
)

const (
	descriptionLength = 160
	previewLength     = 120
)

// BackendClient はServiceが利用するバックエンドAPI。
type BackendClient interface {
	PublicFeed(ctx context.Context, page, limit int) (*model.FeedPage, error)
	PublicBlog(ctx context.Context, slug string) (*model.BlogDetail, error)
	MyBlogs(ctx context.Context, token string) ([]model.Blog, error)
	CreateBlog(ctx context.Context, token string, payload model.CreateBlogPayload) (*model.Blog, error)
	UpdateBlog(ctx context.Context, token, id string, payload model.UpdateBlogPayload) (*model.Blog, error)
	DeleteBlog(ctx context.Context, token, id string) error
	Comments(ctx context.Context, blogID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, token, blogID, content string) (*model.Comment, error)
}

// Detail はブログ詳細ページの表示内容。
type Detail struct {
	Blog *model.BlogDetail
	// ContentHTML はサニタイズ済みの本文。
	ContentHTML string
	// Description はsummary、無ければ本文の抜粋。
	Description string
	AuthorName  string
}

// CommentView はコメント1件の表示内容。
type CommentView struct {
	Comment        model.Comment
	AuthorName     string
	AuthorInitials string
}

// DashboardBlog はダッシュボード一覧の1行。
type DashboardBlog struct {
	Blog        model.Blog
	StatusLabel string
	// Preview はsummary、無ければ本文の抜粋。
	Preview string
}

// Service はブログ関連のサービス層。
type Service struct {
	client    BackendClient
	sanitizer security.ContentSanitizerService
	pageSize  int
}

// NewService はServiceを生成する。pageSizeが0以下の場合は10。
func NewService(client BackendClient, sanitizer security.ContentSanitizerService, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Service{
		client:    client,
		sanitizer: sanitizer,
		pageSize:  pageSize,
	}
}

// Detail はslugでブログ詳細を取得する。存在しない場合はBLOG_NOT_FOUNDの*model.APIError。
func (s *Service) Detail(ctx context.Context, slug string) (*Detail, error) {
	blog, err := s.client.PublicBlog(ctx, slug)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, model.NewBlogNotFoundError(slug)
		}
		return nil, fmt.Errorf("failed to load blog %s: %w", slug, err)
	}

	return &Detail{
		Blog:        blog,
		ContentHTML: s.sanitizer.Sanitize(blog.Content),
		Description: summaryOrExcerpt(blog.Summary, blog.Content, descriptionLength),
		AuthorName:  blog.Author.DisplayName(),
	}, nil
}

// Comments はブログのコメント一覧を取得する。
func (s *Service) Comments(ctx context.Context, blogID string) ([]CommentView, error) {
	comments, err := s.client.Comments(ctx, blogID)
	if err != nil {
		return nil, model.NewCommentFailedError(MsgCommentsFailed)
	}

	views := make([]CommentView, len(comments))
	for i, c := range comments {
		views[i] = newCommentView(c)
	}
	return views, nil
}

// PostComment はコメントを投稿する。tokenが空の場合はネットワーク呼び出しをせずにUNAUTHORIZED。
// 本文は前後の空白を除去して送信する。
func (s *Service) PostComment(ctx context.Context, token, blogID, content string) (*CommentView, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError(MsgCommentLoginFirst)
	}
	if err := ValidateComment(content); err != nil {
		return nil, err
	}

	created, err := s.client.CreateComment(ctx, token, blogID, strings.TrimSpace(content))
	if err != nil {
		if backend.Classify(err) == backend.KindUnauthorized {
			return nil, model.NewUnauthorizedError(MsgCommentLoginFirst)
		}
		return nil, model.NewCommentFailedError(backend.MessageOf(err, MsgCommentFailed))
	}

	view := newCommentView(*created)
	return &view, nil
}

// MyBlogs はログインユーザー自身のブログ一覧を取得する。
func (s *Service) MyBlogs(ctx context.Context, token string) ([]DashboardBlog, error) {
	blogs, err := s.client.MyBlogs(ctx, token)
	if err != nil {
		if backend.Classify(err) == backend.KindUnauthorized {
			return nil, model.NewUnauthorizedError("")
		}
		return nil, model.NewBackendFailedError(MsgMyBlogsFailed)
	}

	rows := make([]DashboardBlog, len(blogs))
	for i := range blogs {
		rows[i] = DashboardBlog{
			Blog:        blogs[i],
			StatusLabel: blogs[i].StatusLabel(),
			Preview:     summaryOrExcerpt(blogs[i].Summary, blogs[i].Content, previewLength),
		}
	}
	return rows, nil
}

// Create はブログを作成する。
func (s *Service) Create(ctx context.Context, token string, in BlogInput) (*model.Blog, error) {
	if err := ValidateBlogInput(in); err != nil {
		return nil, err
	}
	in = in.Normalize()

	blog, err := s.client.CreateBlog(ctx, token, model.CreateBlogPayload{
		Title:       in.Title,
		Content:     in.Content,
		IsPublished: in.IsPublished,
	})
	if err != nil {
		return nil, saveError(err)
	}
	return blog, nil
}

// Update はブログを更新する。フォームの全項目を送信する。
func (s *Service) Update(ctx context.Context, token, id string, in BlogInput) (*model.Blog, error) {
	if err := ValidateBlogInput(in); err != nil {
		return nil, err
	}
	in = in.Normalize()

	blog, err := s.client.UpdateBlog(ctx, token, id, model.UpdateBlogPayload{
		Title:       &in.Title,
		Content:     &in.Content,
		IsPublished: &in.IsPublished,
	})
	if err != nil {
		return nil, saveError(err)
	}
	return blog, nil
}

// Delete はブログを削除する。
func (s *Service) Delete(ctx context.Context, token, id string) error {
	if err := s.client.DeleteBlog(ctx, token, id); err != nil {
		switch backend.Classify(err) {
		case backend.KindUnauthorized:
			return model.NewUnauthorizedError("")
		case backend.KindNotFound:
			return model.NewBlogNotFoundError(id)
		}
		return model.NewBackendFailedError(backend.MessageOf(err, MsgBlogDeleteFailed))
	}
	return nil
}

func saveError(err error) error {
	switch backend.Classify(err) {
	case backend.KindUnauthorized:
		return model.NewUnauthorizedError("")
	case backend.KindConflict:
		return model.NewValidationError(backend.MessageOf(err, MsgBlogSaveFailed))
	}
	return model.NewBackendFailedError(backend.MessageOf(err, MsgBlogSaveFailed))
}

func newCommentView(c model.Comment) CommentView {
	return CommentView{
		Comment:        c,
		AuthorName:     c.Author.DisplayName(),
		AuthorInitials: c.Author.Initials(),
	}
}

func summaryOrExcerpt(summary *string, content string, n int) string {
	if summary != nil && strings.TrimSpace(*summary) != "" {
		return strings.TrimSpace(*summary)
	}
	return security.Excerpt(content, n)
}

// IsNotFound はBLOG_NOT_FOUNDエラーかを判定する。
func IsNotFound(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeBlogNotFound
}
