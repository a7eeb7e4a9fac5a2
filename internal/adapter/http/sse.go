package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultSSEKeepAlive is the default interval between keep-alive comments.
const DefaultSSEKeepAlive = 15 * time.Second

var errStreamingUnsupported = errors.New("streaming unsupported")

// sseWriter serializes Server-Sent Events onto one response. Writes from the
// event loop and the keep-alive ticker are guarded by mu.
type sseWriter struct {
	mu sync.Mutex
	w  http.ResponseWriter
	rc *http.ResponseController
}

// startSSE writes the event-stream headers, clears the server write deadline
// and flushes so the client sees the 200 immediately.
func startSSE(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)
	// Streams outlive any server-wide write timeout. Writers that cannot
	// set deadlines have none to clear.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		return nil, errStreamingUnsupported
	}
	return &sseWriter{w: w, rc: rc}, nil
}

// event writes one event with a JSON data payload.
func (s *sseWriter) event(id, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal sse data: %w", err)
	}

	var b strings.Builder
	if id != "" {
		fmt.Fprintf(&b, "id: %s\n", id)
	}
	if name != "" {
		fmt.Fprintf(&b, "event: %s\n", name)
	}
	fmt.Fprintf(&b, "data: %s\n\n", payload)
	return s.write(b.String())
}

// comment writes an SSE comment line, ignored by clients.
func (s *sseWriter) comment(text string) error {
	return s.write(": " + text + "\n\n")
}

func (s *sseWriter) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return err
	}
	return s.rc.Flush()
}

// keepAlive sends a comment every interval until stop is closed. It returns
// immediately when interval is not positive.
func (s *sseWriter) keepAlive(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.comment("keep-alive"); err != nil {
				return
			}
		}
	}
}
