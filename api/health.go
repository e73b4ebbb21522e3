package api

import (
	"net/http"

	"hncast/gen"
	"hncast/store"
)

type HealthHandler struct {
	stories  *store.StoryStore
	comments *store.CommentStore
	topList  *store.TopList
	genCfg   gen.Config
}

func NewHealthHandler(stories *store.StoryStore, comments *store.CommentStore, topList *store.TopList, genCfg gen.Config) *HealthHandler {
	return &HealthHandler{stories: stories, comments: comments, topList: topList, genCfg: genCfg}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storyCount, _ := h.stories.Count(ctx)
	commentCount, _ := h.comments.Count(ctx)

	resp := map[string]interface{}{
		"status":                "ok",
		"service":               "hncast",
		"generation_configured": h.genCfg.Configured(),
		"stories_cached":        storyCount,
		"comments_cached":       commentCount,
		"top_list_size":         h.topList.Len(),
	}
	if t := h.topList.UpdatedAt(); !t.IsZero() {
		resp["top_list_updated_at"] = t.Unix()
	}
	writeJSON(w, r, resp)
}
