package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

type stubLimiter struct {
	decision ports.RateDecision
	err      error
	key      string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (ports.RateDecision, error) {
	s.key = key
	return s.decision, s.err
}

func TestRateLimit_Allows(t *testing.T) {
	limiter := &stubLimiter{decision: ports.RateDecision{Allowed: true, Remaining: 4}}
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	c, rec := newContext(req)

	called := false
	if err := RateLimit(limiter, "login", 5, time.Minute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatal("next not called")
	}
	if limiter.key != "login:203.0.113.9" {
		t.Errorf("unexpected limiter key %q", limiter.key)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "4" || rec.Header().Get("X-RateLimit-Limit") != "5" {
		t.Errorf("unexpected headers: %v", rec.Header())
	}
}

func TestRateLimit_Rejects(t *testing.T) {
	limiter := &stubLimiter{decision: ports.RateDecision{Allowed: false, ResetAt: time.Now().Add(30 * time.Second)}}
	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/login", nil))

	called := false
	err := RateLimit(limiter, "login", 5, time.Minute, zerolog.Nop())(okHandler(&called))(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if called {
		t.Fatal("next must not run")
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis: connection refused")}
	c, _ := newContext(httptest.NewRequest(http.MethodPost, "/register", nil))

	called := false
	if err := RateLimit(limiter, "register", 5, time.Minute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("expected fail-open, got %v", err)
	}
	if !called {
		t.Fatal("next not called")
	}
}
