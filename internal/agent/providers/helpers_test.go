package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
)

// recordedRequest is what a test server saw.
type recordedRequest struct {
	Path string
	Body []byte
}

// streamServer replays lines on the given path and records every request.
type streamServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newStreamServer(t *testing.T, routes map[string]http.HandlerFunc) *streamServer {
	t.Helper()
	s := &streamServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, recordedRequest{Path: r.URL.Path, Body: body})
		s.mu.Unlock()

		handler, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *streamServer) lastRequest(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i].Body
		}
	}
	return nil
}

func (s *streamServer) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// replay writes lines with a flush after each, mimicking a live stream.
func replay(contentType string, lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintln(w, line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func respondStatus(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

// sse renders Anthropic-style event/data pairs.
func sse(pairs ...string) []string {
	var lines []string
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, "event: "+pairs[i], "data: "+pairs[i+1], "")
	}
	return lines
}

func collect(t *testing.T, p agent.Provider, conversation []agent.Message) ([]agent.Event, error) {
	t.Helper()
	ch, err := p.Stream(context.Background(), conversation, nil)
	if err != nil {
		return nil, err
	}
	return agent.Collect(ch)
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
