package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/blogfront/internal/middleware"
)

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name  string
		check HealthCheckFunc
		want  int
	}{
		{"no check", nil, http.StatusOK},
		{"store reachable", func(ctx context.Context) error { return nil }, http.StatusOK},
		{"store down", func(ctx context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
			defer rl.Stop()
			router := NewRouter(&RouterDeps{
				ViewerStore: repo,
				RateLimiter: rl,
				HealthCheck: tt.check,
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if len(repo.sessions) != 0 {
				t.Error("/health should not create viewer sessions")
			}
		})
	}
}

func TestRouter_APIIssuesViewerAndCSRFCookies(t *testing.T) {
	env := newTestEnv(t, loggedInBackend(), &mockBlogService{})

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	names := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		names[c.Name] = true
	}
	if !names["viewer_id"] || !names["csrf_token"] {
		t.Errorf("cookies = %v, want viewer_id and csrf_token", names)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestRouter_Preflight(t *testing.T) {
	env := newTestEnv(t, loggedInBackend(), &mockBlogService{})

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/blogs/b1/like", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	env := newTestEnv(t, loggedInBackend(), &mockBlogService{})

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRouter_ReusesViewerAcrossRequests(t *testing.T) {
	env := newTestEnv(t, loggedInBackend(), &mockBlogService{})
	b := newBrowser(t, env)
	first := b.viewerID()

	b.do(http.MethodGet, "/api/feed", nil)

	if b.viewerID() != first {
		t.Errorf("viewer ID changed from %q to %q", first, b.viewerID())
	}
	if env.registry.Len() != 1 {
		t.Errorf("registry size = %d, want 1", env.registry.Len())
	}
	if n := env.registry.Sweep(time.Hour); n != 0 {
		t.Errorf("Sweep removed %d active viewers", n)
	}
}
