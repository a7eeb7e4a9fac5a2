package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStreamPoolTryAcquire(t *testing.T) {
	p := NewStreamPool(2)

	r1, ok := p.TryAcquire()
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}
	r2, ok := p.TryAcquire()
	if !ok {
		t.Fatal("expected second acquire to succeed")
	}
	if _, ok := p.TryAcquire(); ok {
		t.Fatal("expected third acquire to fail")
	}
	if p.Active() != 2 {
		t.Fatalf("expected 2 active, got %d", p.Active())
	}

	r1()
	r1() // second release is a no-op
	if p.Active() != 1 {
		t.Fatalf("expected 1 active after release, got %d", p.Active())
	}
	r2()
	if p.Active() != 0 {
		t.Fatalf("expected 0 active, got %d", p.Active())
	}
}

func TestStreamPoolMinimumLimit(t *testing.T) {
	if got := NewStreamPool(0).Cap(); got != 1 {
		t.Errorf("expected limit clamped to 1, got %d", got)
	}
}

func TestStreamPoolLimitNil(t *testing.T) {
	var p *StreamPool
	called := false
	h := p.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if !called {
		t.Error("nil pool should admit requests")
	}
}

func TestStreamPoolLimitRejects(t *testing.T) {
	p := NewStreamPool(1)
	release, _ := p.TryAcquire()
	defer release()

	h := p.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not run when pool is full")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}
