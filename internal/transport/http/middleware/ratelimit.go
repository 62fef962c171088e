package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"truckbooks/internal/platform/clock"
	"truckbooks/internal/transport/http/api"
	"truckbooks/internal/transport/http/shared"
)

const loginPeekBytes = 16 * 1024

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*limiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(l *limiter) {
		if fn != nil {
			l.key = fn
		}
	}
}

func WithClock(clk clock.Clock) RateLimitOption {
	return func(l *limiter) {
		if clk != nil {
			l.clock = clk
		}
	}
}

// RateLimit applies a fixed window per signed-in user, or per client IP for
// anonymous calls.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	l := newLimiter("global", limit, window, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SensitiveMutationRateLimit adds tighter windows to login attempts, MFA code
// checks, and statement generation and status changes. Login is limited by IP and by the
// submitted email so one address cannot be sprayed from many hosts.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	loginLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	loginByIP := newLimiter("login_ip", loginLimit, window, append(opts, WithKeyFunc(clientIPKey))...)
	loginByEmail := newLimiter("login_email", loginLimit, window, append(opts, WithKeyFunc(loginEmailKey))...)
	byActor := newLimiter("statement_mutation", mutationLimit, window, opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !loginByIP.allow(w, r) || !loginByEmail.allow(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !byActor.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

type bucket struct {
	start time.Time
	hits  int
}

type limiter struct {
	name   string
	limit  int
	window time.Duration
	key    RateLimitKeyFunc
	clock  clock.Clock

	mu      sync.Mutex
	buckets map[string]bucket
	sweepAt time.Time
}

func newLimiter(name string, limit int, window time.Duration, opts ...RateLimitOption) *limiter {
	l := &limiter{
		name:    name,
		limit:   limit,
		window:  window,
		key:     actorOrIPKey,
		clock:   clock.System{},
		buckets: map[string]bucket{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type verdict struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

// take counts one hit for key. Expired buckets are dropped once per window.
func (l *limiter) take(key string) verdict {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.sweepAt) {
		for k, b := range l.buckets {
			if !now.Before(b.start.Add(l.window)) {
				delete(l.buckets, k)
			}
		}
		l.sweepAt = now.Add(l.window)
	}

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.start.Add(l.window)) {
		b = bucket{start: now}
	}
	b.hits++
	l.buckets[key] = b
	return verdict{
		allowed:   b.hits <= l.limit,
		remaining: max(l.limit-b.hits, 0),
		resetIn:   b.start.Add(l.window).Sub(now),
	}
}

func (l *limiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}
	key := l.key(r)
	if key == "" {
		key = clientIPKey(r)
	}
	v := l.take(key)
	resetSec := ceilSeconds(v.resetIn)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if v.allowed {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded",
		"limiter", l.name,
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", l.limit,
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	return "ip:" + shared.ClientIP(r)
}

// loginEmailKey peeks at the JSON body for the email and restores the body
// for the handler.
func loginEmailKey(r *http.Request) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return clientIPKey(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, loginPeekBytes))
	if err != nil {
		return clientIPKey(r)
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &payload) != nil || strings.TrimSpace(payload.Email) == "" {
		return clientIPKey(r)
	}
	return "email:" + strings.ToLower(strings.TrimSpace(payload.Email))
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}
	path, _ := strings.CutPrefix(r.URL.Path, "/api/v1")
	segments := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(segments) == 2 && segments[0] == "auth" && segments[1] == "login":
		return sensitiveScopeAuth
	case len(segments) == 3 && segments[0] == "auth" && segments[1] == "mfa":
		return sensitiveScopeActor
	case len(segments) == 1 && segments[0] == "statements" && r.Method == http.MethodPost:
		return sensitiveScopeActor
	case len(segments) == 3 && segments[0] == "statements" && segments[2] == "status":
		return sensitiveScopeActor
	}
	return sensitiveScopeNone
}
