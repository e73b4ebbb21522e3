// Package sse writes server-sent event streams to HTTP clients.
package sse

import (
	"fmt"
	"net/http"
)

// Event is one server-sent event.
type Event struct {
	Type string
	Data string
}

func (e Event) format() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, e.Data)
}

// Stream is a per-request event stream bound to one response writer.
type Stream struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewStream prepares w for event streaming and returns the stream. It
// fails when the response writer cannot flush incrementally.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &Stream{w: w, f: f}, nil
}

// Send writes one event and flushes it to the client.
func (s *Stream) Send(e Event) error {
	if _, err := fmt.Fprint(s.w, e.format()); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// Comment writes an SSE comment line, used for keepalives.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}
