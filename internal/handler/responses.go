package handler

import (
	"time"

	"github.com/hitoshi/blogfront/internal/blog"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/optimistic"
	"github.com/hitoshi/blogfront/internal/session"
)

// identityResponse はログインユーザーのAPIレスポンス。
type identityResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName"`
	Initial     string `json:"initial"`
}

// sessionResponse はセッション状態のAPIレスポンス。
type sessionResponse struct {
	State   string            `json:"state"`
	User    *identityResponse `json:"user,omitempty"`
	Message string            `json:"message,omitempty"`
}

func newSessionResponse(m *session.Manager) sessionResponse {
	resp := sessionResponse{State: m.State().String()}
	if id, ok := m.Identity(); ok {
		resp.User = &identityResponse{
			ID:          id.ID,
			Email:       id.Email,
			Name:        id.Name,
			DisplayName: id.DisplayName(),
			Initial:     id.Initial(),
		}
	}
	return resp
}

// likeResponse はいいね状態のAPIレスポンス。
type likeResponse struct {
	Liked   bool   `json:"liked"`
	Count   int    `json:"count"`
	Pending bool   `json:"pending"`
	Message string `json:"message,omitempty"`
}

func newLikeResponse(v optimistic.View[model.LikeState]) likeResponse {
	return likeResponse{
		Liked:   v.State.Liked,
		Count:   v.State.Count,
		Pending: v.Pending,
		Message: v.Message,
	}
}

// feedItemResponse はフィードのカード1件分。
type feedItemResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Summary        string    `json:"summary,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	LikeCount      int       `json:"likeCount"`
	CommentCount   int       `json:"commentCount"`
	AuthorName     string    `json:"authorName"`
	AuthorInitials string    `json:"authorInitials"`
}

// feedResponse はフィード1ページ分のAPIレスポンス。
type feedResponse struct {
	Page       int                `json:"page"`
	TotalPages int                `json:"totalPages"`
	Total      int                `json:"total"`
	HasPrev    bool               `json:"hasPrev"`
	HasNext    bool               `json:"hasNext"`
	Items      []feedItemResponse `json:"items"`
	Info       string             `json:"info,omitempty"`
}

func newFeedResponse(v *blog.FeedView) feedResponse {
	items := make([]feedItemResponse, len(v.Items))
	for i, b := range v.Items {
		items[i] = feedItemResponse{
			ID:             b.ID,
			Title:          b.Title,
			Slug:           b.Slug,
			Summary:        deref(b.Summary),
			CreatedAt:      b.CreatedAt,
			LikeCount:      b.LikeCount,
			CommentCount:   b.CommentCount,
			AuthorName:     b.Author.DisplayName(),
			AuthorInitials: b.Author.Initials(),
		}
	}
	return feedResponse{
		Page:       v.Page,
		TotalPages: v.TotalPages,
		Total:      v.Total,
		HasPrev:    v.HasPrev(),
		HasNext:    v.HasNext(),
		Items:      items,
		Info:       v.Info,
	}
}

// blogDetailResponse はブログ詳細のAPIレスポンス。
type blogDetailResponse struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Slug         string       `json:"slug"`
	ContentHTML  string       `json:"contentHtml"`
	Description  string       `json:"description"`
	CreatedAt    time.Time    `json:"createdAt"`
	CommentCount int          `json:"commentCount"`
	AuthorName   string       `json:"authorName"`
	Like         likeResponse `json:"like"`
}

func newBlogDetailResponse(d *blog.Detail, like optimistic.View[model.LikeState]) blogDetailResponse {
	return blogDetailResponse{
		ID:           d.Blog.ID,
		Title:        d.Blog.Title,
		Slug:         d.Blog.Slug,
		ContentHTML:  d.ContentHTML,
		Description:  d.Description,
		CreatedAt:    d.Blog.CreatedAt,
		CommentCount: d.Blog.CommentCount,
		AuthorName:   d.AuthorName,
		Like:         newLikeResponse(like),
	}
}

// commentResponse はコメント1件のAPIレスポンス。
type commentResponse struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	AuthorName     string    `json:"authorName"`
	AuthorInitials string    `json:"authorInitials"`
}

func newCommentResponse(c blog.CommentView) commentResponse {
	return commentResponse{
		ID:             c.Comment.ID,
		Content:        c.Comment.Content,
		CreatedAt:      c.Comment.CreatedAt,
		AuthorName:     c.AuthorName,
		AuthorInitials: c.AuthorInitials,
	}
}

// dashboardBlogResponse はダッシュボードのブログ1件分のAPIレスポンス。
type dashboardBlogResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	IsPublished bool      `json:"isPublished"`
	Status      string    `json:"status"`
	Preview     string    `json:"preview,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newDashboardBlogResponse(b *model.Blog, preview string) dashboardBlogResponse {
	return dashboardBlogResponse{
		ID:          b.ID,
		Title:       b.Title,
		Slug:        b.Slug,
		Content:     b.Content,
		IsPublished: b.IsPublished,
		Status:      b.StatusLabel(),
		Preview:     preview,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// blogSavedResponse はブログ作成・更新のAPIレスポンス。
type blogSavedResponse struct {
	Blog    dashboardBlogResponse `json:"blog"`
	Message string                `json:"message"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
