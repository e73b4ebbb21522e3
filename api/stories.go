package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/singleflight"

	"hncast/fetch"
	"hncast/hn"
	"hncast/store"
	"hncast/worker"
)

const pageSize = 30

type StoriesHandler struct {
	client    *hn.Client
	agg       *fetch.Aggregator
	stories   *store.StoryStore
	topList   *store.TopList
	refresher *worker.Refresher
	sfTop     singleflight.Group
}

func NewStoriesHandler(client *hn.Client, agg *fetch.Aggregator, stories *store.StoryStore, topList *store.TopList, refresher *worker.Refresher) *StoriesHandler {
	return &StoriesHandler{
		client:    client,
		agg:       agg,
		stories:   stories,
		topList:   topList,
		refresher: refresher,
	}
}

// ListStories handles GET /api/stories?page=N. The response preserves
// front-page rank order and flags IDs that failed to resolve instead of
// dropping the whole page.
func (h *StoriesHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	pageIDs, total := h.topList.Page(page, pageSize)
	if total == 0 {
		// Cold start: the poller hasn't populated the list yet.
		// Concurrent cold-start requests share one upstream call.
		_, err, _ := h.sfTop.Do("top", func() (interface{}, error) {
			ids, err := h.client.TopStories(ctx)
			if err != nil {
				return nil, err
			}
			h.topList.Set(ids)
			return nil, nil
		})
		if err != nil {
			slog.Error("error fetching top story ids", "error", err)
			writeError(w, "failed to fetch top stories", http.StatusBadGateway)
			return
		}
		pageIDs, total = h.topList.Page(page, pageSize)
	}

	cached, err := h.stories.GetByIDs(ctx, pageIDs)
	if err != nil {
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	var missing []int
	for _, id := range pageIDs {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	var failed []int
	if len(missing) > 0 {
		res := h.agg.ResolveAll(ctx, missing)
		now := store.NowUnix()
		for id, item := range res.Items {
			if item.Title == "" || item.Dead || item.Deleted {
				continue
			}
			st := store.FromItem(item, now)
			cached[id] = st
			if err := h.stories.Upsert(ctx, st); err != nil {
				slog.Error("error caching story", "story_id", id, "error", err)
			}
		}
		failed = res.Failed()
	}

	stories := make([]*store.Story, 0, len(pageIDs))
	for i, id := range pageIDs {
		st, ok := cached[id]
		if !ok {
			continue
		}
		rank := (page-1)*pageSize + i + 1
		st.Rank = &rank
		stories = append(stories, st)
	}

	if failed == nil {
		failed = []int{}
	}
	writeJSON(w, r, map[string]interface{}{
		"stories":    stories,
		"page":       page,
		"total":      total,
		"failed_ids": failed,
	})
}

// GetStory handles GET /api/stories/{id}.
func (h *StoriesHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}

	story, err := h.stories.GetByID(ctx, id)
	if err != nil {
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if story == nil {
		story, err = h.refresher.RefreshStorySingleflight(ctx, id)
		if err != nil {
			if errors.Is(err, hn.ErrNotFound) {
				writeError(w, "story not found", http.StatusNotFound)
				return
			}
			slog.Error("on-demand story fetch failed", "story_id", id, "error", err)
			writeError(w, "failed to fetch story", http.StatusBadGateway)
			return
		}
	}

	writeJSON(w, r, story)
}
