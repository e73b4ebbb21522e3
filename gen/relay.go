package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is one chat-style turn of the generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Request is one generation call: the conversation turns plus the
// persona/scope selector the upstream uses to pick its behavior.
type Request struct {
	Messages []Message
	Persona  string
}

// Config holds the upstream generation service settings.
type Config struct {
	URL     string
	APIKey  string
	Persona string
	// Timeout bounds the whole session, connect through final event.
	// Zero means 2 minutes.
	Timeout time.Duration
}

// Configured reports whether the relay has an upstream to talk to.
func (c Config) Configured() bool { return c.URL != "" }

// Relay opens one long-lived request per generation call and feeds the
// response bytes through a Decoder as they arrive, yielding events on the
// session channel. The caller is never blocked waiting for the full
// response, only for the next available event.
type Relay struct {
	http *http.Client
	cfg  Config
}

func NewRelay(cfg Config) *Relay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Persona == "" {
		cfg.Persona = "podcast"
	}
	return &Relay{
		http: &http.Client{}, // per-session deadline comes from the context
		cfg:  cfg,
	}
}

type upstreamRequest struct {
	Persona  string    `json:"persona"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Generate opens the upstream stream and returns the session immediately.
// Decoded events become available on Session.Events as bytes arrive.
// Cancelling ctx closes the upstream connection and ends the session in
// StateCancelled without further events. Errors establishing the
// connection are returned directly; everything after that is reported as
// stream events and session state.
func (r *Relay) Generate(ctx context.Context, req Request) (*Session, error) {
	if !r.cfg.Configured() {
		return nil, errors.New("gen: upstream not configured")
	}

	persona := req.Persona
	if persona == "" {
		persona = r.cfg.Persona
	}
	body, err := json.Marshal(upstreamRequest{
		Persona:  persona,
		Messages: req.Messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if r.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.http.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open generation stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("generation upstream returned status %d", resp.StatusCode)
	}

	sess := newSession()
	sess.setState(StateStreaming)
	slog.Info("generation stream opened", "session_id", sess.ID, "persona", persona)

	go func() {
		defer cancel()
		defer resp.Body.Close()
		defer close(sess.events)
		r.pump(ctx, sess, resp.Body)
	}()

	return sess, nil
}

// pump is the relay loop: read, feed the decoder, emit whatever completed.
func (r *Relay) pump(ctx context.Context, sess *Session, body io.Reader) {
	dec := NewDecoder()
	buf := make([]byte, 4096)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				if !r.emit(ctx, sess, ev) {
					return
				}
			}
			if dec.Done() {
				break
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				// Caller navigated away or the deadline elapsed: the
				// upstream connection is already closed, report the
				// session as cancelled, not failed.
				r.settleCancelled(sess)
				return
			}
			if readErr != io.EOF {
				slog.Warn("generation stream read failed",
					"session_id", sess.ID, "error", readErr)
			}
			break
		}
	}

	for _, ev := range dec.Finish() {
		if !r.emit(ctx, sess, ev) {
			return
		}
	}

	if dec.Finished() {
		sess.finish(StateCompleted)
		slog.Info("generation completed", "session_id", sess.ID)
		return
	}
	sess.finish(StateFailed)
	slog.Warn("generation failed", "session_id", sess.ID)
}

// emit delivers one event unless the caller has gone away. Reports
// whether pumping should continue.
func (r *Relay) emit(ctx context.Context, sess *Session, ev StreamEvent) bool {
	if ev.Type == EventError {
		sess.finish(StateFailed)
	}
	select {
	case sess.events <- ev:
		return ev.Type != EventError
	case <-ctx.Done():
		r.settleCancelled(sess)
		return false
	}
}

func (r *Relay) settleCancelled(sess *Session) {
	sess.finish(StateCancelled)
	slog.Info("generation cancelled", "session_id", sess.ID)
}
