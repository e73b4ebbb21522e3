package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"hncast/hn"
	"hncast/store"
	"hncast/worker"
)

type CommentsHandler struct {
	comments  *store.CommentStore
	refresher *worker.Refresher
	ttl       time.Duration
}

func NewCommentsHandler(comments *store.CommentStore, refresher *worker.Refresher, ttl time.Duration) *CommentsHandler {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CommentsHandler{comments: comments, refresher: refresher, ttl: ttl}
}

// GetComments handles GET /api/stories/{id}/comments. Comments come back
// flat in breadth-first discovery order with depth markers; the client
// rebuilds indentation from depth. ?refresh=true bypasses the cache.
func (h *CommentsHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	force := r.URL.Query().Get("refresh") == "true"

	var (
		comments  []store.Comment
		fetchedAt int64
		failed    int
	)

	if !force {
		comments, fetchedAt, err = h.comments.GetByStory(ctx, id)
		if err != nil {
			writeError(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	stale := fetchedAt < time.Now().Add(-h.ttl).Unix()
	if force || len(comments) == 0 || stale {
		fresh, freshFailed, refreshErr := h.refresher.RefreshCommentsSingleflight(ctx, id)
		switch {
		case refreshErr == nil:
			comments = fresh
			failed = freshFailed
			fetchedAt = store.NowUnix()
		case errors.Is(refreshErr, hn.ErrNotFound):
			writeError(w, "story not found", http.StatusNotFound)
			return
		case len(comments) > 0:
			// Refresh failed but a stale copy exists: serve it.
			slog.Warn("comment refresh failed, serving stale cache",
				"story_id", id, "error", refreshErr)
		default:
			slog.Error("comment resolution failed", "story_id", id, "error", refreshErr)
			writeError(w, "failed to resolve comments", http.StatusBadGateway)
			return
		}
	}

	if comments == nil {
		comments = []store.Comment{}
	}
	writeJSON(w, r, map[string]interface{}{
		"story_id":   id,
		"fetched_at": fetchedAt,
		"count":      len(comments),
		"failed":     failed,
		"comments":   comments,
	})
}
