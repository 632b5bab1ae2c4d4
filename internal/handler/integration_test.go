package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/blogfront/internal/backend"
	"github.com/hitoshi/blogfront/internal/blog"
	"github.com/hitoshi/blogfront/internal/like"
	"github.com/hitoshi/blogfront/internal/metrics"
	"github.com/hitoshi/blogfront/internal/middleware"
	"github.com/hitoshi/blogfront/internal/model"
	"github.com/hitoshi/blogfront/internal/security"
	"github.com/hitoshi/blogfront/internal/viewer"
)

// fakeBlogAPI はブログバックエンドREST APIのインメモリ実装。
type fakeBlogAPI struct {
	mu        sync.Mutex
	likedBy   map[string]bool
	comments  []model.Comment
	failLikes bool
}

func newFakeBlogAPI() *fakeBlogAPI {
	// 他の閲覧者による5件のいいねが既にある
	return &fakeBlogAPI{likedBy: map[string]bool{"u2": true, "u3": true, "u4": true, "u5": true, "u6": true}}
}

func (f *fakeBlogAPI) handler() http.Handler {
	mux := http.NewServeMux()
	alice := model.Identity{ID: "u1", Email: "alice@example.com", Name: "Alice Liddell"}

	userOf := func(r *http.Request) (string, bool) {
		return alice.ID, r.Header.Get("Authorization") == "Bearer tok-alice"
	}
	reply := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		switch {
		case creds.Email != alice.Email:
			reply(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		case creds.Password != "secret":
			reply(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		default:
			reply(w, http.StatusOK, map[string]string{"accessToken": "tok-alice"})
		}
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userOf(r); !ok {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		reply(w, http.StatusOK, alice)
	})
	mux.HandleFunc("GET /public/feed", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, http.StatusOK, model.FeedPage{
			Page:  1,
			Limit: 10,
			Total: 1,
			Items: []model.FeedBlog{{ID: "b1", Title: "Hello World", Slug: "hello-world", LikeCount: len(f.likedBy), Author: model.Author{ID: "u9", Email: "writer@example.com"}}},
		})
	})
	mux.HandleFunc("GET /public/blogs/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("slug") != "hello-world" {
			reply(w, http.StatusNotFound, map[string]string{"message": "Blog not found"})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, http.StatusOK, model.BlogDetail{
			ID:        "b1",
			Title:     "Hello World",
			Slug:      "hello-world",
			Content:   `<p>Welcome <strong>readers</strong></p><script>alert("x")</script>`,
			LikeCount: len(f.likedBy),
			Author:    model.Author{ID: "u9", Email: "writer@example.com"},
		})
	})
	toggle := func(liked bool) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userOf(r)
			if !ok {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
				return
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.failLikes {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if liked {
				f.likedBy[userID] = true
			} else {
				delete(f.likedBy, userID)
			}
			reply(w, http.StatusOK, model.LikeResponse{Liked: liked, LikeCount: len(f.likedBy)})
		}
	}
	mux.HandleFunc("POST /blogs/{id}/like", toggle(true))
	mux.HandleFunc("DELETE /blogs/{id}/like", toggle(false))
	mux.HandleFunc("GET /blogs/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, http.StatusOK, f.comments)
	})
	mux.HandleFunc("POST /blogs/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userOf(r); !ok {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		var payload model.CreateCommentPayload
		json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		defer f.mu.Unlock()
		c := model.Comment{ID: "c1", Content: payload.Content, CreatedAt: time.Now(), Author: model.Author{ID: alice.ID, Email: alice.Email, Name: alice.Name}}
		f.comments = append(f.comments, c)
		reply(w, http.StatusCreated, c)
	})
	return mux
}

func (f *fakeBlogAPI) setFailLikes(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLikes = fail
}

// newIntegrationEnv は実際のバックエンドクライアント・サービスでルーターを組み立てる。
func newIntegrationEnv(t *testing.T, api *fakeBlogAPI) (*testEnv, *prometheus.Registry) {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	mc := metrics.NewCollector(reg)

	client := backend.NewClient(&http.Client{Timeout: 5 * time.Second}, server.URL, logger, mc)
	service := blog.NewService(client, security.NewContentSanitizer(), 10)

	repo := newMemoryRepo()
	registry := viewer.NewRegistry(viewer.RegistryConfig{
		Backend:       client,
		Repo:          repo,
		SessionMaxAge: time.Hour,
		Logger:        logger,
		Metrics:       mc,
	})
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		Logger:            logger,
		ViewerStore:       repo,
		ViewerCookie:      middleware.ViewerCookieConfig{MaxAge: time.Hour},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		Viewers:           registry,
		Feed:              service,
		Blogs:             service,
		Dashboard:         service,
		HealthCheck:       nil,
		Metrics:           metrics.Handler(reg),
	})
	return &testEnv{router: router, repo: repo, registry: registry}, reg
}

func TestIntegration_LikeLifecycle(t *testing.T) {
	api := newFakeBlogAPI()
	env, _ := newIntegrationEnv(t, api)
	b := newBrowser(t, env)

	// 未ログインでもフィードと詳細は閲覧できる
	feed := decodeBody[feedResponse](t, b.do(http.MethodGet, "/api/feed", nil))
	if len(feed.Items) != 1 || feed.Items[0].LikeCount != 5 || feed.Items[0].AuthorName != "writer" {
		t.Fatalf("feed = %+v", feed)
	}
	detail := decodeBody[blogDetailResponse](t, b.do(http.MethodGet, "/api/blogs/hello-world", nil))
	if detail.Like != (likeResponse{Liked: false, Count: 5}) {
		t.Fatalf("anonymous like = %+v", detail.Like)
	}
	if strings.Contains(detail.ContentHTML, "script") || !strings.Contains(detail.ContentHTML, "<strong>readers</strong>") {
		t.Errorf("contentHtml = %q", detail.ContentHTML)
	}
	if detail.Description != "Welcome readers" {
		t.Errorf("description = %q", detail.Description)
	}

	// 未ログインのいいねは拒否され、状態は変わらない
	w := b.do(http.MethodPost, "/api/blogs/b1/like", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous like status = %d", w.Code)
	}

	b.login()
	b.do(http.MethodGet, "/api/blogs/hello-world", nil)

	// 5 → 6
	w = b.do(http.MethodPost, "/api/blogs/b1/like", nil)
	if got := decodeBody[likeResponse](t, w); w.Code != http.StatusOK || got != (likeResponse{Liked: true, Count: 6}) {
		t.Fatalf("like status = %d, state = %+v", w.Code, got)
	}

	// 失敗時はスナップショットへ戻る: 6 → 5 → 6
	api.setFailLikes(true)
	w = b.do(http.MethodPost, "/api/blogs/b1/like", nil)
	want := likeResponse{Liked: true, Count: 6, Message: like.MsgFailed}
	if got := decodeBody[likeResponse](t, w); w.Code != http.StatusBadGateway || got != want {
		t.Fatalf("failed unlike status = %d, state = %+v, want %+v", w.Code, got, want)
	}

	// 次の試行でメッセージは消える
	api.setFailLikes(false)
	w = b.do(http.MethodPost, "/api/blogs/b1/like", nil)
	if got := decodeBody[likeResponse](t, w); got != (likeResponse{Liked: false, Count: 5}) {
		t.Errorf("unlike state = %+v", got)
	}
}

func TestIntegration_LoginErrorsAndSessionRestore(t *testing.T) {
	api := newFakeBlogAPI()
	env, _ := newIntegrationEnv(t, api)
	b := newBrowser(t, env)

	w := b.do(http.MethodPost, "/api/auth/login", model.Credentials{Email: "nobody@example.com", Password: "x"})
	if body := decodeBody[middleware.ErrorResponseBody](t, w); body.Message != "Email not found. Please register first." {
		t.Errorf("unknown email message = %q", body.Message)
	}
	w = b.do(http.MethodPost, "/api/auth/login", model.Credentials{Email: "alice@example.com", Password: "wrong"})
	if body := decodeBody[middleware.ErrorResponseBody](t, w); body.Message != "Invalid password." {
		t.Errorf("wrong password message = %q", body.Message)
	}

	b.login()

	// プロセス内の閲覧者を破棄しても、保存済みトークンから復元される
	env.registry.Sweep(-time.Hour)
	me := decodeBody[sessionResponse](t, b.do(http.MethodGet, "/api/auth/me", nil))
	if me.State != "authenticated" || me.User == nil || me.User.DisplayName != "Alice Liddell" {
		t.Errorf("restored session = %+v", me)
	}
}

func TestIntegration_CommentFlow(t *testing.T) {
	api := newFakeBlogAPI()
	env, _ := newIntegrationEnv(t, api)
	b := newBrowser(t, env)

	w := b.do(http.MethodPost, "/api/blogs/b1/comments", createCommentRequest{Content: "Nice post"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous comment status = %d, want 401", w.Code)
	}

	b.login()
	w = b.do(http.MethodPost, "/api/blogs/b1/comments", createCommentRequest{Content: "  Nice post  "})
	if w.Code != http.StatusCreated {
		t.Fatalf("comment status = %d, body = %s", w.Code, w.Body.String())
	}

	comments := decodeBody[[]commentResponse](t, b.do(http.MethodGet, "/api/blogs/b1/comments", nil))
	if len(comments) != 1 || comments[0].Content != "Nice post" || comments[0].AuthorInitials != "AL" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestIntegration_MetricsEndpoint(t *testing.T) {
	api := newFakeBlogAPI()
	env, _ := newIntegrationEnv(t, api)
	b := newBrowser(t, env)
	b.login()
	b.do(http.MethodGet, "/api/blogs/hello-world", nil)
	b.do(http.MethodPost, "/api/blogs/b1/like", nil)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{
		"blogfront_backend_requests_total",
		`blogfront_optimistic_mutations_total{kind="like",outcome="reconciled"} 1`,
		`blogfront_session_transitions_total{state="authenticated"}`,
		"blogfront_active_viewers 1",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
