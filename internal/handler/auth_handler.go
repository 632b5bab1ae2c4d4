// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/middleware"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/session"
)

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
// バックエンドのトークンはサーバー側の閲覧者セッションに保存し、ブラウザには渡さない。
type AuthHandler struct {
	cookie middleware.ViewerCookieConfig
	logger *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
// cookieは閲覧者セッションの期限を延長したときに閲覧者Cookieを発行し直すために使う。
func NewAuthHandler(cookie middleware.ViewerCookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{cookie: cookie, logger: logger}
}

// Login はメールアドレスとパスワードでログインする。
// 成功時は閲覧者セッションの有効期限が延びるため、閲覧者Cookieも同じ期間で発行し直す。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := v.Session.Login(r.Context(), creds); err != nil {
		h.logger.Warn("login failed",
			slog.String("viewer_id", v.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, loginFailureStatus(err), model.NewLoginFailedError(session.LoginErrorMessage(err)))
		return
	}
	v.Likes.Reset()
	middleware.SetViewerCookie(w, v.ID, h.cookie)

	writeJSON(w, http.StatusOK, newSessionResponse(v.Session))
}

// Register はアカウントを作成し、そのままログイン状態にする。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := v.Session.Register(r.Context(), creds); err != nil {
		h.logger.Warn("register failed",
			slog.String("viewer_id", v.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, registerFailureStatus(err), model.NewRegisterFailedError(session.RegisterErrorMessage(err)))
		return
	}
	v.Likes.Reset()
	middleware.SetViewerCookie(w, v.ID, h.cookie)

	resp := newSessionResponse(v.Session)
	resp.Message = session.MsgRegisterSucceeded
	writeJSON(w, http.StatusCreated, resp)
}

// Logout はローカルのセッションのみを破棄する。バックエンドへの通知は行わない。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}

	v.Session.Logout(r.Context())
	v.Likes.Reset()
	middleware.SetViewerCookie(w, v.ID, h.cookie)

	writeJSON(w, http.StatusOK, newSessionResponse(v.Session))
}

// Me は現在のセッション状態を返す。未ログインでも200。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	v, ok := currentViewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(v.Session))
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (model.Credentials, bool) {
	var creds model.Credentials
	if !decodeJSON(w, r, &creds) {
		return creds, false
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Email and password are required."))
		return creds, false
	}
	return creds, true
}

// loginFailureStatus はバックエンドが認証情報を拒否した場合は401、それ以外は502を返す。
func loginFailureStatus(err error) int {
	if errors.Is(err, session.ErrIdentityUnavailable) {
		return http.StatusBadGateway
	}
	if sc := backend.StatusCode(err); sc >= 400 && sc < 500 {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}

func registerFailureStatus(err error) int {
	if backend.Classify(err) == backend.KindConflict {
		return http.StatusConflict
	}
	if sc := backend.StatusCode(err); sc >= 400 && sc < 500 {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
