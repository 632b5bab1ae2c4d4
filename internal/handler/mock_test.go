package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/blog"
	"github.com/hitoshi/blogfront/internal/middleware"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/repository"
	"github.com/hitoshi/blogfront/internal/viewer"
)

// --- モック定義 ---

// memoryRepo はViewerSessionRepositoryのインメモリ実装。
type memoryRepo struct {
	mu       sync.Mutex
	sessions map[string]model.ViewerSession
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: make(map[string]model.ViewerSession)}
}

func (r *memoryRepo) Create(_ context.Context, s *model.ViewerSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*model.ViewerSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *memoryRepo) UpdateToken(_ context.Context, id, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Token = token
	s.ExpiresAt = expiresAt
	r.sessions[id] = s
	return nil
}

func (r *memoryRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// mockBackend はviewer.Backendのモック実装。
type mockBackend struct {
	meFn       func(ctx context.Context, token string) (*model.Identity, error)
	loginFn    func(ctx context.Context, creds model.Credentials) (string, error)
	registerFn func(ctx context.Context, creds model.Credentials) (*backend.RegisterResult, error)
	likeFn     func(ctx context.Context, token, blogID string) (*model.LikeResponse, error)
	unlikeFn   func(ctx context.Context, token, blogID string) (*model.LikeResponse, error)
}

func (m *mockBackend) Me(ctx context.Context, token string) (*model.Identity, error) {
	if m.meFn != nil {
		return m.meFn(ctx, token)
	}
	return nil, &backend.StatusError{StatusCode: http.StatusUnauthorized}
}

func (m *mockBackend) Login(ctx context.Context, creds model.Credentials) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return "", &backend.StatusError{StatusCode: http.StatusUnauthorized}
}

func (m *mockBackend) Register(ctx context.Context, creds model.Credentials) (*backend.RegisterResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, creds)
	}
	return nil, &backend.StatusError{StatusCode: http.StatusInternalServerError}
}

func (m *mockBackend) Like(ctx context.Context, token, blogID string) (*model.LikeResponse, error) {
	if m.likeFn != nil {
		return m.likeFn(ctx, token, blogID)
	}
	return &model.LikeResponse{Liked: true}, nil
}

func (m *mockBackend) Unlike(ctx context.Context, token, blogID string) (*model.LikeResponse, error) {
	if m.unlikeFn != nil {
		return m.unlikeFn(ctx, token, blogID)
	}
	return &model.LikeResponse{Liked: false}, nil
}

// loggedInBackend は"tok-alice"をaliceとして認めるバックエンドのモックを返す。
func loggedInBackend() *mockBackend {
	alice := &model.Identity{ID: "u1", Email: "alice@example.com", Name: "Alice"}
	return &mockBackend{
		meFn: func(ctx context.Context, token string) (*model.Identity, error) {
			if token == "tok-alice" {
				return alice, nil
			}
			return nil, &backend.StatusError{StatusCode: http.StatusUnauthorized}
		},
		loginFn: func(ctx context.Context, creds model.Credentials) (string, error) {
			if creds.Email == "alice@example.com" && creds.Password == "secret" {
				return "tok-alice", nil
			}
			return "", &backend.StatusError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
		},
	}
}

// mockBlogService はFeedService・BlogService・DashboardServiceのモック実装。
type mockBlogService struct {
	feedFn        func(ctx context.Context, page int, nav blog.Nav) (*blog.FeedView, error)
	detailFn      func(ctx context.Context, slug string) (*blog.Detail, error)
	commentsFn    func(ctx context.Context, blogID string) ([]blog.CommentView, error)
	postCommentFn func(ctx context.Context, token, blogID, content string) (*blog.CommentView, error)
	myBlogsFn     func(ctx context.Context, token string) ([]blog.DashboardBlog, error)
	createFn      func(ctx context.Context, token string, in blog.BlogInput) (*model.Blog, error)
	updateFn      func(ctx context.Context, token, id string, in blog.BlogInput) (*model.Blog, error)
	deleteFn      func(ctx context.Context, token, id string) error
}

func (m *mockBlogService) Feed(ctx context.Context, page int, nav blog.Nav) (*blog.FeedView, error) {
	if m.feedFn != nil {
		return m.feedFn(ctx, page, nav)
	}
	return &blog.FeedView{Page: page, TotalPages: 1}, nil
}

func (m *mockBlogService) Detail(ctx context.Context, slug string) (*blog.Detail, error) {
	if m.detailFn != nil {
		return m.detailFn(ctx, slug)
	}
	return nil, model.NewBlogNotFoundError(slug)
}

func (m *mockBlogService) Comments(ctx context.Context, blogID string) ([]blog.CommentView, error) {
	if m.commentsFn != nil {
		return m.commentsFn(ctx, blogID)
	}
	return nil, nil
}

func (m *mockBlogService) PostComment(ctx context.Context, token, blogID, content string) (*blog.CommentView, error) {
	if m.postCommentFn != nil {
		return m.postCommentFn(ctx, token, blogID, content)
	}
	return &blog.CommentView{}, nil
}

func (m *mockBlogService) MyBlogs(ctx context.Context, token string) ([]blog.DashboardBlog, error) {
	if m.myBlogsFn != nil {
		return m.myBlogsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockBlogService) Create(ctx context.Context, token string, in blog.BlogInput) (*model.Blog, error) {
	if m.createFn != nil {
		return m.createFn(ctx, token, in)
	}
	return &model.Blog{}, nil
}

func (m *mockBlogService) Update(ctx context.Context, token, id string, in blog.BlogInput) (*model.Blog, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, token, id, in)
	}
	return &model.Blog{ID: id}, nil
}

func (m *mockBlogService) Delete(ctx context.Context, token, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token, id)
	}
	return nil
}

// --- テストヘルパー ---

// testEnv はルーター全体をテストするための環境。
type testEnv struct {
	router   http.Handler
	repo     *memoryRepo
	registry *viewer.Registry
}

func newTestEnv(t *testing.T, be viewer.Backend, svc *mockBlogService) *testEnv {
	t.Helper()
	return newTestEnvWithLimits(t, be, svc, middleware.RateLimiterConfigPerMinute(6000, 6000))
}

func newTestEnvWithLimits(t *testing.T, be viewer.Backend, svc *mockBlogService, limits middleware.RateLimiterConfig) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	repo := newMemoryRepo()
	registry := viewer.NewRegistry(viewer.RegistryConfig{
		Backend:       be,
		Repo:          repo,
		SessionMaxAge: time.Hour,
		Logger:        logger,
	})
	rl := middleware.NewRateLimiter(limits)
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		Logger:            logger,
		ViewerStore:       repo,
		ViewerCookie:      middleware.ViewerCookieConfig{MaxAge: time.Hour},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Viewers:           registry,
		Feed:              svc,
		Blogs:             svc,
		Dashboard:         svc,
	})
	return &testEnv{router: router, repo: repo, registry: registry}
}

// browser はCookieを保持してリクエストを送るテスト用クライアント。
// 書き込み系リクエストにはCSRFトークンを自動で付与する。
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, env *testEnv) *browser {
	t.Helper()
	b := &browser{t: t, handler: env.router, cookies: make(map[string]*http.Cookie)}
	if w := b.do(http.MethodGet, "/api/csrf-token", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /api/csrf-token status = %d", w.Code)
	}
	return b
}

func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			b.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	if c, ok := b.cookies["csrf_token"]; ok {
		req.Header.Set("X-CSRF-Token", c.Value)
	}

	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) viewerID() string {
	if c, ok := b.cookies["viewer_id"]; ok {
		return c.Value
	}
	return ""
}

func (b *browser) login() {
	b.t.Helper()
	w := b.do(http.MethodPost, "/api/auth/login", model.Credentials{Email: "alice@example.com", Password: "secret"})
	if w.Code != http.StatusOK {
		b.t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return v
}
