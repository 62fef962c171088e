package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"truckbooks/internal/requestctx"
)

type mapBackend struct {
	hashes    map[string]string
	responses map[string]StoredResponse
}

func newMapBackend() *mapBackend {
	return &mapBackend{hashes: map[string]string{}, responses: map[string]StoredResponse{}}
}

func (m *mapBackend) Check(_ context.Context, userID, endpoint, key, hash string) (StoredResponse, bool, error) {
	id := userID + "|" + endpoint + "|" + key
	stored, ok := m.hashes[id]
	if !ok {
		return StoredResponse{}, false, nil
	}
	if stored != hash {
		return StoredResponse{}, false, ErrIdempotencyConflict
	}
	return m.responses[id], true, nil
}

func (m *mapBackend) Save(_ context.Context, userID, endpoint, key, hash string, response StoredResponse) error {
	id := userID + "|" + endpoint + "|" + key
	m.hashes[id] = hash
	m.responses[id] = response
	return nil
}

type countingHandler struct {
	calls  int
	status int
}

func (c *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls++
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c.status)
	_, _ = fmt.Fprintf(w, `{"call":%d}`, c.calls)
}

func idempotentRequest(body, key string, withUser bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/statements", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	if withUser {
		req = req.WithContext(requestctx.WithUser(req.Context(), requestctx.User{UserID: "u1", Role: "owner"}))
	}
	return req
}

func TestIdempotentReplaysSuccess(t *testing.T) {
	backend := newMapBackend()
	next := &countingHandler{status: http.StatusCreated}
	h := Idempotent("statements.generate", backend)(next)

	if code := serveCode(h, idempotentRequest(`{"a":1}`, "k1", true)); code != http.StatusCreated {
		t.Fatalf("expected first request to pass, got %d", code)
	}

	replay := httptest.NewRecorder()
	h.ServeHTTP(replay, idempotentRequest(`{"a":1}`, "k1", true))
	if replay.Code != http.StatusCreated || replay.Body.String() != `{"call":1}` {
		t.Fatalf("expected stored response, got %d %q", replay.Code, replay.Body.String())
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay header")
	}

	if code := serveCode(h, idempotentRequest(`{"a":2}`, "k1", true)); code != http.StatusConflict {
		t.Fatalf("expected conflict for changed payload, got %d", code)
	}
	if next.calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", next.calls)
	}
}

func TestIdempotentSkipsFailures(t *testing.T) {
	backend := newMapBackend()
	next := &countingHandler{status: http.StatusBadRequest}
	h := Idempotent("statements.generate", backend)(next)

	serveCode(h, idempotentRequest(`{}`, "k2", true))
	serveCode(h, idempotentRequest(`{}`, "k2", true))
	if next.calls != 2 || len(backend.hashes) != 0 {
		t.Fatalf("expected failed responses to stay unsaved, calls=%d saved=%d", next.calls, len(backend.hashes))
	}
}

func TestIdempotentPassThrough(t *testing.T) {
	next := &countingHandler{status: http.StatusCreated}
	h := Idempotent("statements.generate", newMapBackend())(next)

	serveCode(h, idempotentRequest(`{}`, "", true))
	serveCode(h, idempotentRequest(`{}`, "k3", false))
	if next.calls != 2 {
		t.Fatalf("expected requests without key or user to pass through, calls=%d", next.calls)
	}
}

func TestIdempotentRejectsLongKey(t *testing.T) {
	next := &countingHandler{status: http.StatusCreated}
	h := Idempotent("statements.generate", newMapBackend())(next)
	if code := serveCode(h, idempotentRequest(`{}`, strings.Repeat("k", 129), true)); code != http.StatusBadRequest {
		t.Fatalf("expected long key to be rejected, got %d", code)
	}
	if next.calls != 0 {
		t.Fatal("handler should not run for rejected keys")
	}
}
