package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"truckbooks/internal/platform/clock"
	"truckbooks/internal/requestctx"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	return req
}

func serveCode(h http.Handler, req *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	userCtx := requestctx.WithUser(context.Background(), requestctx.User{UserID: "user-1", Role: "dispatcher"})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/statements/stmt-1/status", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	if code := serveCode(limited, first); code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/statements/stmt-1/status", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	if code := serveCode(limited, second); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by user key, got %d", code)
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	first := httptest.NewRequest(http.MethodGet, "/api/v1/statements", nil)
	first.RemoteAddr = "203.0.113.10:4444"
	if code := serveCode(limited, first); code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/v1/statements", nil)
	second.RemoteAddr = "203.0.113.10:5555"
	if code := serveCode(limited, second); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by ip key, got %d", code)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	limited := RateLimit(1, time.Minute, WithClock(clk))(noContent())

	if code := serveCode(limited, loginRequest("a@example.com", "192.0.2.20:1111")); code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	clk.Advance(30 * time.Second)
	if code := serveCode(limited, loginRequest("a@example.com", "192.0.2.20:1111")); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", code)
	}
	clk.Advance(31 * time.Second)
	if code := serveCode(limited, loginRequest("a@example.com", "192.0.2.20:1111")); code != http.StatusNoContent {
		t.Fatalf("expected request after window reset to pass, got %d", code)
	}
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	limited := RateLimit(1, time.Minute, WithClock(clk))(noContent())

	serveCode(limited, loginRequest("a@example.com", "192.0.2.30:1234"))
	clk.Advance(15500 * time.Millisecond)

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, loginRequest("a@example.com", "192.0.2.30:1234"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttled response, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("expected Retry-After 45, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected no remaining requests, got %q", got)
	}
}

func TestLimiterDropsExpiredBuckets(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	l := newLimiter("test", 5, time.Minute, WithClock(clk))
	l.take("a")
	l.take("b")
	clk.Advance(2 * time.Minute)
	l.take("c")
	if len(l.buckets) != 1 {
		t.Fatalf("expected expired buckets to be dropped, have %d", len(l.buckets))
	}
}

func TestLoginLimitedPerEmailAcrossHosts(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	if code := serveCode(limited, loginRequest("Owner@Example.com", "192.0.2.1:1000")); code != http.StatusNoContent {
		t.Fatalf("expected first login to pass, got %d", code)
	}
	if code := serveCode(limited, loginRequest("owner@example.com", "192.0.2.2:1000")); code != http.StatusTooManyRequests {
		t.Fatalf("expected same email from another host to be throttled, got %d", code)
	}
}

func TestLoginEmailKeyRestoresBody(t *testing.T) {
	req := loginRequest("ana@example.com", "192.0.2.9:1000")
	if key := loginEmailKey(req); key != "email:ana@example.com" {
		t.Fatalf("unexpected key %q", key)
	}
	body, err := io.ReadAll(req.Body)
	if err != nil || !strings.Contains(string(body), `"password":"x"`) {
		t.Fatalf("expected body to be readable again, got %q %v", body, err)
	}

	plain := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("email=ana"))
	plain.RemoteAddr = "192.0.2.9:1000"
	if key := loginEmailKey(plain); key != "ip:192.0.2.9" {
		t.Fatalf("expected ip fallback, got %q", key)
	}
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/statements", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		if code := serveCode(limited, req); code != http.StatusNoContent {
			t.Fatalf("expected read route request %d to bypass sensitive limits, got %d", i+1, code)
		}
	}

	userCtx := requestctx.WithUser(context.Background(), requestctx.User{UserID: "owner-1", Role: "owner"})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/statements/stmt-1/status", nil).WithContext(userCtx)
		req.RemoteAddr = "198.51.100.41:9999"
		code := serveCode(limited, req)
		if i < 2 && code != http.StatusNoContent {
			t.Fatalf("expected sensitive request %d to pass, got %d", i+1, code)
		}
		if i == 2 && code != http.StatusTooManyRequests {
			t.Fatalf("expected third sensitive request to be throttled, got %d", code)
		}
	}
}

func TestSensitiveRateScope(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   sensitiveScope
	}{
		{http.MethodPost, "/api/v1/auth/login", sensitiveScopeAuth},
		{http.MethodPost, "/api/v1/auth/mfa/enable", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/auth/refresh", sensitiveScopeNone},
		{http.MethodPost, "/api/v1/statements", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/statements/", sensitiveScopeActor},
		{http.MethodGet, "/api/v1/statements", sensitiveScopeNone},
		{http.MethodPost, "/api/v1/statements/abc/status", sensitiveScopeActor},
		{http.MethodPut, "/api/v1/statements/abc/notes", sensitiveScopeNone},
		{http.MethodPost, "/api/v1/loads", sensitiveScopeNone},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := sensitiveRateScope(req); got != tc.want {
			t.Fatalf("%s %s: expected %q, got %q", tc.method, tc.path, tc.want, got)
		}
	}
}
