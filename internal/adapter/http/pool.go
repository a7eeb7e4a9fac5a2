package http

import (
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// StreamPool caps the number of concurrently open event streams (SSE and
// WebSocket). Every open stream holds one subscription and one goroutine, so
// the cap bounds both.
type StreamPool struct {
	sem    *semaphore.Weighted
	limit  int
	active atomic.Int64
}

// NewStreamPool creates a StreamPool that admits at most limit streams.
func NewStreamPool(limit int) *StreamPool {
	if limit < 1 {
		limit = 1
	}
	return &StreamPool{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// TryAcquire takes a slot without waiting. The returned release func must be
// called exactly once when ok is true.
func (p *StreamPool) TryAcquire() (release func(), ok bool) {
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	p.active.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			p.active.Add(-1)
			p.sem.Release(1)
		}
	}, true
}

// Limit is middleware that rejects the request with 503 when no slot is free.
// A nil pool admits everything.
func (p *StreamPool) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			next.ServeHTTP(w, r)
			return
		}
		release, ok := p.TryAcquire()
		if !ok {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "too many open streams")
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}

// Active returns the number of streams currently holding a slot.
func (p *StreamPool) Active() int {
	return int(p.active.Load())
}

// Cap returns the configured limit.
func (p *StreamPool) Cap() int {
	return p.limit
}
