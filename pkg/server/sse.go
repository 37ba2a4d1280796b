package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// sseWriter delivers stream output as Server-Sent Events. It implements
// chat.Sink.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &sseWriter{w: w, f: f}, nil
}

// Start writes the SSE headers and the conversation ID before any data
// flows.
func (s *sseWriter) Start(conversationID int64) error {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Conversation-Id", strconv.FormatInt(conversationID, 10))
	s.w.WriteHeader(http.StatusOK)
	s.f.Flush()
	return nil
}

// Send writes one delta as an SSE event. Multi-line deltas become multiple
// data: lines within the same event, per the SSE framing rules.
func (s *sseWriter) Send(delta string) error {
	var b strings.Builder
	for _, line := range strings.Split(delta, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// Done writes the stream terminator.
func (s *sseWriter) Done() {
	_, _ = s.w.Write([]byte("data: [DONE]\n\n"))
	s.f.Flush()
}
