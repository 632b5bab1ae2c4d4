package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/blogfront/internal/blog"
	"github.com/hitoshi/blogfront/internal/model"
)

// DashboardService はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardService interface {
	MyBlogs(ctx context.Context, token string) ([]blog.DashboardBlog, error)
	Create(ctx context.Context, token string, in blog.BlogInput) (*model.Blog, error)
	Update(ctx context.Context, token, id string, in blog.BlogInput) (*model.Blog, error)
	Delete(ctx context.Context, token, id string) error
}

// DashboardHandler はログインユーザー自身のブログ管理のHTTPハンドラー。
// すべてのルートはrequireAuthの内側に置く。
type DashboardHandler struct {
	service DashboardService
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// blogFormRequest はブログ作成・更新リクエストのボディ。
type blogFormRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsPublished bool   `json:"isPublished"`
}

func (req blogFormRequest) input() blog.BlogInput {
	return blog.BlogInput{
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: req.IsPublished,
	}
}

// ListBlogs は自分のブログ一覧を返す。
// GET /api/dashboard/blogs
func (h *DashboardHandler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	rows, err := h.service.MyBlogs(r.Context(), v.Token())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]dashboardBlogResponse, len(rows))
	for i := range rows {
		resp[i] = newDashboardBlogResponse(&rows[i].Blog, rows[i].Preview)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateBlog はブログを作成する。
// POST /api/dashboard/blogs
func (h *DashboardHandler) CreateBlog(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	var req blogFormRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.service.Create(r.Context(), v.Token(), req.input())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, blogSavedResponse{
		Blog:    newDashboardBlogResponse(created, ""),
		Message: blog.MsgBlogCreated,
	})
}

// UpdateBlog はブログを更新する。
// PATCH /api/dashboard/blogs/{id}
func (h *DashboardHandler) UpdateBlog(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	var req blogFormRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), v.Token(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, blogSavedResponse{
		Blog:    newDashboardBlogResponse(updated, ""),
		Message: blog.MsgBlogUpdated,
	})
}

// DeleteBlog はブログを削除する。
// DELETE /api/dashboard/blogs/{id}
func (h *DashboardHandler) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), v.Token(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
