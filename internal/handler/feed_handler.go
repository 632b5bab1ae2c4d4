package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/blogfront/internal/blog"
	"github.com/hitoshi/blogfront/internal/middleware"
	"github.com/hitoshi/blogfront/internal/model"
)

// FeedService はフィードハンドラーが必要とするサービスインターフェース。
type FeedService interface {
	Feed(ctx context.Context, page int, nav blog.Nav) (*blog.FeedView, error)
}

// FeedHandler は公開フィードのHTTPハンドラー。
type FeedHandler struct {
	service FeedService
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedService) *FeedHandler {
	return &FeedHandler{service: service}
}

// GetFeed は公開フィードを1ページ返す。
// GET /api/feed?page=N[&nav=prev|next]
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidParameterError("page", raw))
			return
		}
		page = n
	}

	nav, ok := blog.ParseNav(q.Get("nav"))
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidParameterError("nav", q.Get("nav")))
		return
	}

	view, err := h.service.Feed(r.Context(), page, nav)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newFeedResponse(view))
}
