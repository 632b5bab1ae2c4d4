package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/blogfront/internal/blog"
	"github.com/hitoshi/blogfront/internal/middleware"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/optimistic"
)

// BlogService はブログ閲覧ハンドラーが必要とするサービスインターフェース。
type BlogService interface {
	Detail(ctx context.Context, slug string) (*blog.Detail, error)
	Comments(ctx context.Context, blogID string) ([]blog.CommentView, error)
	PostComment(ctx context.Context, token, blogID, content string) (*blog.CommentView, error)
}

// BlogHandler はブログ詳細・いいね・コメントのHTTPハンドラー。
type BlogHandler struct {
	service BlogService
	logger  *slog.Logger
}

// NewBlogHandler はBlogHandlerを生成する。
func NewBlogHandler(service BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{service: service, logger: logger}
}

// createCommentRequest はコメント投稿リクエストのボディ。
type createCommentRequest struct {
	Content string `json:"content"`
}

// GetBlog はブログ詳細を返し、閲覧者のいいね状態を初期化する。
// 存在しない場合は404とフィードへの遷移先を返す。
// GET /api/blogs/{slug}
func (h *BlogHandler) GetBlog(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Detail(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		var apiErr *model.APIError
		if blog.IsNotFound(err) && errors.As(err, &apiErr) {
			middleware.WriteErrorResponseWithRedirect(w, http.StatusNotFound, apiErr, "/feed")
			return
		}
		handleServiceError(w, err)
		return
	}

	v.Likes.Seed(detail.Blog)
	writeJSON(w, http.StatusOK, newBlogDetailResponse(detail, v.Likes.View(detail.Blog.ID)))
}

// GetLike は閲覧者のいいね表示状態を返す。リクエスト中の場合はpendingがtrue。
// GET /api/blogs/{id}/like
func (h *BlogHandler) GetLike(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newLikeResponse(v.Likes.View(chi.URLParam(r, "id"))))
}

// ToggleLike はいいね状態を楽観的に切り替える。
//
// 通常はリモート更新の完了を待って確定状態（失敗時は巻き戻した状態とメッセージ）を返す。
// wait=falseの場合は楽観的な状態を202で即座に返し、結果はGetLikeで取得する。
// 未ログインは401、同じブログの更新中と、ログイン・ログアウト後に詳細を取り直していない場合は409で、
// いずれも状態は変更しない。
// POST /api/blogs/{id}/like
func (h *BlogHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}
	blogID := chi.URLParam(r, "id")

	attempt, err := v.Likes.Toggle(r.Context(), blogID, v.Token())
	switch {
	case errors.Is(err, optimistic.ErrAuthRequired):
		writeJSON(w, http.StatusUnauthorized, newLikeResponse(v.Likes.View(blogID)))
		return
	case errors.Is(err, optimistic.ErrInFlight), errors.Is(err, optimistic.ErrNotSeeded):
		writeJSON(w, http.StatusConflict, newLikeResponse(v.Likes.View(blogID)))
		return
	case err != nil:
		handleServiceError(w, err)
		return
	}

	if r.URL.Query().Get("wait") == "false" {
		writeJSON(w, http.StatusAccepted, newLikeResponse(v.Likes.View(blogID)))
		return
	}

	view, err := attempt.Wait(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			// 接続が切れても更新は継続する
			h.logger.Info("client left before like settled",
				slog.String("viewer_id", v.ID),
				slog.String("blog_id", blogID),
			)
			return
		}
		writeJSON(w, http.StatusBadGateway, newLikeResponse(view))
		return
	}
	writeJSON(w, http.StatusOK, newLikeResponse(view))
}

// ListComments はブログのコメント一覧を返す。
// GET /api/blogs/{id}/comments
func (h *BlogHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.Comments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]commentResponse, len(comments))
	for i, c := range comments {
		resp[i] = newCommentResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateComment はコメントを投稿する。
// POST /api/blogs/{id}/comments
func (h *BlogHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	var req createCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.service.PostComment(r.Context(), v.Token(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newCommentResponse(*comment))
}
