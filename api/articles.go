package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"hncast/hn"
	"hncast/store"
	"hncast/worker"
)

type ArticlesHandler struct {
	articles  *store.ArticleStore
	stories   *store.StoryStore
	refresher *worker.Refresher
}

func NewArticlesHandler(articles *store.ArticleStore, stories *store.StoryStore, refresher *worker.Refresher) *ArticlesHandler {
	return &ArticlesHandler{articles: articles, stories: stories, refresher: refresher}
}

// GetArticle handles GET /api/stories/{id}/article.
func (h *ArticlesHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
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
			slog.Error("on-demand story fetch for article failed", "story_id", id, "error", err)
			writeError(w, "failed to fetch story", http.StatusBadGateway)
			return
		}
	}

	if story.URL == nil {
		writeError(w, "story has no URL", http.StatusNotFound)
		return
	}

	article, err := h.articles.GetByStoryID(ctx, id)
	if err != nil {
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if article == nil {
		slog.Info("on-demand article extraction", "story_id", id)
		h.refresher.ExtractArticleSingleflight(ctx, id, *story.URL)

		article, err = h.articles.GetByStoryID(ctx, id)
		if err != nil {
			writeError(w, "internal error", http.StatusInternalServerError)
			return
		}
		if article == nil {
			writeError(w, "article not found", http.StatusNotFound)
			return
		}
	}

	writeJSON(w, r, article)
}
