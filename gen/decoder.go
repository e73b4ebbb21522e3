// Package gen relays podcast-script generation requests to an upstream
// streaming text-generation service and decodes its event stream.
package gen

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

// ErrStreamEnded reports a generation stream that closed without ever
// carrying a final result. Absence of a result is a failure, never an
// implicit empty success.
var ErrStreamEnded = errors.New("gen: stream ended without result")

// EventType discriminates the StreamEvent variants.
type EventType string

const (
	// EventDelta carries an incremental text fragment.
	EventDelta EventType = "delta"
	// EventFinal carries the complete generated text, exactly once.
	EventFinal EventType = "final"
	// EventError terminates a failed session.
	EventError EventType = "error"
)

// StreamEvent is one decoded event from the generation stream, consumed
// in arrival order.
type StreamEvent struct {
	Type EventType
	Text string
	Err  error
}

const (
	doneMarker    = "[DONE]"
	typeDelta     = "response"
	typeFinal     = "final_response"
	maxBufferSize = 4 << 20 // 4 MiB: runaway frames fail the session
)

// framePayload is the structured payload of one data-carrying line.
type framePayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Decoder reassembles logical events from an irregularly framed byte
// stream. Chunk boundaries carry no meaning: one physical read may hold
// several events, or an event may be split across reads, so bytes are
// accumulated and rescanned for complete line-delimited frames. An
// incomplete tail is retained, never interpreted.
//
// A Decoder tracks one session and is not safe for concurrent use.
type Decoder struct {
	buf      bytes.Buffer
	done     bool // terminal: final emitted, end marker seen, or overflow
	finished bool // a final event was emitted
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Finished reports whether a final event has been emitted.
func (d *Decoder) Finished() bool { return d.finished }

// Done reports whether the decoder has reached a terminal state and will
// ignore further input.
func (d *Decoder) Done() bool { return d.done }

// Feed appends raw bytes and returns any events completed by them.
func (d *Decoder) Feed(p []byte) []StreamEvent {
	if d.done {
		return nil
	}
	d.buf.Write(p)
	if d.buf.Len() > maxBufferSize {
		d.done = true
		return []StreamEvent{{Type: EventError, Err: errors.New("gen: frame exceeds buffer limit")}}
	}

	var events []StreamEvent
	for !d.done {
		line, ok := d.nextLine()
		if !ok {
			break
		}
		if ev := d.decodeLine(line); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// Finish signals end-of-stream. If no final result was ever decoded it
// returns the terminal error event.
func (d *Decoder) Finish() []StreamEvent {
	if d.finished || d.done {
		d.done = true
		return nil
	}
	d.done = true
	return []StreamEvent{{Type: EventError, Err: ErrStreamEnded}}
}

// nextLine pops one complete delimited line off the buffer. Returns
// ok=false when only a partial frame remains buffered.
func (d *Decoder) nextLine() (string, bool) {
	raw := d.buf.Bytes()
	i := bytes.IndexByte(raw, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(raw[:i], "\r"))
	d.buf.Next(i + 1)
	return line, true
}

// decodeLine interprets one complete frame. Control and heartbeat lines
// are discarded; a data line that fails to parse is skipped rather than
// failing the session, since upstreams are known to interleave junk with
// data.
func (d *Decoder) decodeLine(line string) *StreamEvent {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return nil
	}
	data, ok := strings.CutPrefix(line, "data:")
	if !ok {
		// event:/id:/retry: framing fields carry no payload
		return nil
	}
	data = strings.TrimSpace(data)

	if data == doneMarker {
		if !d.finished {
			d.done = true
			return &StreamEvent{Type: EventError, Err: ErrStreamEnded}
		}
		d.done = true
		return nil
	}

	var payload framePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		slog.Debug("skipping undecodable stream line", "error", err)
		return nil
	}

	switch payload.Type {
	case typeFinal:
		d.finished = true
		d.done = true
		return &StreamEvent{Type: EventFinal, Text: cleanText(payload.Content)}
	case typeDelta:
		return &StreamEvent{Type: EventDelta, Text: payload.Content}
	default:
		return nil
	}
}

// cleanText undoes the upstream's double encoding: one level of string
// quoting is unwrapped if present, then escaped newline, quote, and
// backslash sequences are replaced.
func cleanText(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i++
		case '"':
			b.WriteByte('"')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
