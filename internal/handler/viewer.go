package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/blogfront/internal/middleware"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/viewer"
)

// ViewerSource はviewer_idからViewerを取り出す。viewer.Registryが実装する。
type ViewerSource interface {
	Get(ctx context.Context, viewerID string) *viewer.Viewer
}

type viewerContextKey struct{}

// withViewer は閲覧者IDに対応するViewerを解決し、コンテキストに格納するミドルウェアを返す。
// 閲覧者ミドルウェアの後に配置すること。
func withViewer(viewers ViewerSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewerID, err := middleware.ViewerIDFromContext(r.Context())
			if err != nil {
				middleware.WriteInternalServerError(w)
				return
			}
			v := viewers.Get(r.Context(), viewerID)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerContextKey{}, v)))
		})
	}
}

// requireAuth はログイン済みの閲覧者のみを通すルートガード。
// 未ログインの場合は401とログイン画面への遷移先を返す。
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := currentViewer(w, r)
		if !ok {
			return
		}
		if !v.Authenticated() {
			middleware.WriteErrorResponseWithRedirect(w, http.StatusUnauthorized, model.NewUnauthorizedError(""), "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentViewer はリクエストのViewerを返す。見つからない場合は500を書き込みfalseを返す。
func currentViewer(w http.ResponseWriter, r *http.Request) (*viewer.Viewer, bool) {
	v, ok := r.Context().Value(viewerContextKey{}).(*viewer.Viewer)
	if !ok || v == nil {
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return v, true
}
