package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware_SetsHeadersAndRejects(t *testing.T) {
	store := NewMemoryStore()
	budgets := Budgets{
		Default: Budget{MaxRequests: 60, Window: time.Minute},
		Routes: map[string]Budget{
			"/api/enrich": {MaxRequests: 2, Window: time.Minute},
		},
	}

	handler := Middleware(store, budgets, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/enrich", nil)
		req.Header.Set("X-API-Key", "k1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		rec := do()
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q, want 2", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on rejection")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestMiddleware_ClientsIsolatedByAPIKey(t *testing.T) {
	store := NewMemoryStore()
	budgets := Budgets{Default: Budget{MaxRequests: 1, Window: time.Minute}}

	handler := Middleware(store, budgets, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("alice"); code != http.StatusOK {
		t.Fatalf("alice first request: %d", code)
	}
	if code := do("bob"); code != http.StatusOK {
		t.Errorf("bob limited by alice's usage: %d", code)
	}
	if code := do("alice"); code != http.StatusTooManyRequests {
		t.Errorf("alice second request: %d, want 429", code)
	}
}
