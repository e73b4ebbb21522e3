package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"hncast/gen"
	"hncast/sse"
)

type GenerateHandler struct {
	relay *gen.Relay
}

func NewGenerateHandler(relay *gen.Relay) *GenerateHandler {
	return &GenerateHandler{relay: relay}
}

type generateRequest struct {
	StoryID  int      `json:"story_id"`
	Title    string   `json:"title"`
	Comments []string `json:"comments"`
}

// Generate handles POST /api/generate. It relays the upstream generation
// stream to the client as SSE. The client sees at most one `final` event
// carrying the complete script; a failed session surfaces as a single
// `error` event, never a truncated script.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	nonEmpty := 0
	for _, c := range req.Comments {
		if c != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		writeError(w, "no comments provided", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sess, err := h.relay.Generate(ctx, gen.ScriptRequest(req.Title, req.Comments))
	if err != nil {
		slog.Error("error opening generation stream", "story_id", req.StoryID, "error", err)
		writeError(w, "failed to open generation stream", http.StatusBadGateway)
		return
	}

	stream, err := sse.NewStream(w)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("relaying generation stream",
		"session_id", sess.ID, "story_id", req.StoryID, "comments", nonEmpty)

	for ev := range sess.Events() {
		if err := h.send(stream, ev); err != nil {
			// Client went away; ctx cancellation tears down the
			// upstream connection.
			return
		}
	}

	final, _ := json.Marshal(map[string]string{
		"session_id": sess.ID,
		"state":      string(sess.State()),
	})
	stream.Send(sse.Event{Type: "done", Data: string(final)})
}

func (h *GenerateHandler) send(stream *sse.Stream, ev gen.StreamEvent) error {
	switch ev.Type {
	case gen.EventFinal:
		data, _ := json.Marshal(map[string]string{"text": ev.Text})
		return stream.Send(sse.Event{Type: "final", Data: string(data)})
	case gen.EventDelta:
		data, _ := json.Marshal(map[string]string{"text": ev.Text})
		return stream.Send(sse.Event{Type: "delta", Data: string(data)})
	case gen.EventError:
		data, _ := json.Marshal(map[string]string{"error": ev.Err.Error()})
		return stream.Send(sse.Event{Type: "error", Data: string(data)})
	default:
		return nil
	}
}
