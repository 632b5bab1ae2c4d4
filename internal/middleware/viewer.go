// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blogfront/internal/model"
)

const viewerCookieName = "viewer_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// viewerIDContextKey はリクエストコンテキストに閲覧者IDを格納するためのキー。
	viewerIDContextKey = contextKey("viewer_id")
	// viewerSlotContextKey はロギングミドルウェアへ閲覧者IDを書き戻すためのキー。
	viewerSlotContextKey = contextKey("viewer_slot")
)

// viewerSlot は外側のミドルウェアが内側で決まった閲覧者IDを受け取るための入れ物。
type viewerSlot struct {
	id string
}

func contextWithViewerSlot(ctx context.Context, slot *viewerSlot) context.Context {
	return context.WithValue(ctx, viewerSlotContextKey, slot)
}

// ViewerSessionStore は閲覧者セッションの検索・作成に必要なインターフェース。
// repository.ViewerSessionRepositoryの部分集合として定義する。
type ViewerSessionStore interface {
	FindByID(ctx context.Context, id string) (*model.ViewerSession, error)
	Create(ctx context.Context, session *model.ViewerSession) error
}

// ViewerCookieConfig は閲覧者Cookieの設定。
type ViewerCookieConfig struct {
	Secure bool
	Domain string
	MaxAge time.Duration
}

// NewViewerMiddleware はHTTP Only Cookieから閲覧者IDを読み取り、コンテキストに注入するミドルウェアを返す。
// Cookieが無い、または対応する閲覧者セッションが期限切れの場合は、新しいIDで
// 閲覧者セッションを作成してCookieを発行する。未ログインの閲覧者も対象とする。
func NewViewerMiddleware(store ViewerSessionStore, config ViewerCookieConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if cookie, err := r.Cookie(viewerCookieName); err == nil && cookie.Value != "" {
				vs, err := store.FindByID(ctx, cookie.Value)
				if err != nil {
					logger.Error("failed to find viewer session",
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				if vs != nil {
					next.ServeHTTP(w, r.WithContext(ContextWithViewerID(ctx, vs.ID)))
					return
				}
			}

			vs := &model.ViewerSession{
				ID:        uuid.NewString(),
				ExpiresAt: time.Now().Add(config.MaxAge),
			}
			if err := store.Create(ctx, vs); err != nil {
				logger.Error("failed to create viewer session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			SetViewerCookie(w, vs.ID, config)

			next.ServeHTTP(w, r.WithContext(ContextWithViewerID(ctx, vs.ID)))
		})
	}
}

// SetViewerCookie は閲覧者Cookieを発行する。有効期間はconfig.MaxAge。
// 閲覧者セッションの有効期限を延長したときにも呼び、Cookieの期限を揃える。
func SetViewerCookie(w http.ResponseWriter, viewerID string, config ViewerCookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     viewerCookieName,
		Value:    viewerID,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   int(config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ViewerIDFromContext はリクエストコンテキストから閲覧者IDを取得する。
// 閲覧者ミドルウェアを通過したリクエストでのみ有効。
func ViewerIDFromContext(ctx context.Context) (string, error) {
	viewerID, ok := ctx.Value(viewerIDContextKey).(string)
	if !ok || viewerID == "" {
		return "", fmt.Errorf("viewer ID not found in context")
	}
	return viewerID, nil
}

// ContextWithViewerID はコンテキストに閲覧者IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithViewerID(ctx context.Context, viewerID string) context.Context {
	if slot, ok := ctx.Value(viewerSlotContextKey).(*viewerSlot); ok {
		slot.id = viewerID
	}
	return context.WithValue(ctx, viewerIDContextKey, viewerID)
}
