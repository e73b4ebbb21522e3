package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hncast/sse"
	"hncast/worker"
)

const (
	rateLimitWindow   = 30 * time.Second
	rateLimitCapacity = 10000 // max entries before forced sweep
	rateLimitSweepAge = 60 * time.Second
)

type RefreshHandler struct {
	refresher *worker.Refresher
	broker    *sse.Broker

	mu        sync.Mutex
	lastFetch map[int]time.Time // rate limit tracking, bounded with TTL eviction
}

func NewRefreshHandler(refresher *worker.Refresher, broker *sse.Broker) *RefreshHandler {
	return &RefreshHandler{
		refresher: refresher,
		broker:    broker,
		lastFetch: make(map[int]time.Time),
	}
}

// Refresh handles POST /api/stories/{id}/refresh: it re-fetches the story
// and its comment tree in the background and answers 202 immediately.
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	// Rate limit: 1 request per story per 30 seconds.
	h.mu.Lock()
	now := time.Now()
	if len(h.lastFetch) > rateLimitCapacity {
		h.sweepLocked(now)
	}
	if last, ok := h.lastFetch[id]; ok && now.Sub(last) < rateLimitWindow {
		h.mu.Unlock()
		writeError(w, "rate limited, retry after 30s", http.StatusTooManyRequests)
		return
	}
	h.lastFetch[id] = now
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "accepted",
		"story_id": id,
	})

	// Background work uses a detached context, not the request's.
	go h.doRefresh(context.Background(), id)
}

// sweepLocked removes entries older than rateLimitSweepAge. Must be
// called with h.mu held.
func (h *RefreshHandler) sweepLocked(now time.Time) {
	for id, t := range h.lastFetch {
		if now.Sub(t) > rateLimitSweepAge {
			delete(h.lastFetch, id)
		}
	}
}

func (h *RefreshHandler) doRefresh(ctx context.Context, id int) {
	if _, err := h.refresher.RefreshStorySingleflight(ctx, id); err != nil {
		slog.Error("refresh: error fetching story", "story_id", id, "error", err)
		return
	}
	if _, _, err := h.refresher.RefreshCommentsSingleflight(ctx, id); err != nil {
		slog.Error("refresh: error resolving comments", "story_id", id, "error", err)
	}

	data, _ := json.Marshal(map[string]interface{}{
		"story_id":  id,
		"timestamp": time.Now().Unix(),
	})
	h.broker.Publish("story_refreshed", string(data))
}
