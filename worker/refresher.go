// Package worker holds the background refresh workers and the shared
// refresh logic the API reuses for on-demand fetches.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"hncast/fetch"
	"hncast/hn"
	"hncast/readability"
	"hncast/store"
)

// Refresher pulls fresh data from HN into the cache. Concurrent callers
// asking for the same story or comment tree share one upstream
// resolution via singleflight.
type Refresher struct {
	client   *hn.Client
	resolver *fetch.Resolver
	stories  *store.StoryStore
	comments *store.CommentStore
	articles *store.ArticleStore

	sfStory    singleflight.Group
	sfComments singleflight.Group
	sfArticle  singleflight.Group
}

func NewRefresher(client *hn.Client, resolver *fetch.Resolver, stories *store.StoryStore, comments *store.CommentStore, articles *store.ArticleStore) *Refresher {
	return &Refresher{
		client:   client,
		resolver: resolver,
		stories:  stories,
		comments: comments,
		articles: articles,
	}
}

// RefreshStory fetches one story from HN and caches it.
func (f *Refresher) RefreshStory(ctx context.Context, id int) (*store.Story, error) {
	item, err := f.client.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.IsStory() {
		return nil, fmt.Errorf("item %d is not a story: %w", id, hn.ErrNotFound)
	}

	st := store.FromItem(item, store.NowUnix())
	if err := f.stories.Upsert(ctx, st); err != nil {
		return nil, fmt.Errorf("cache story %d: %w", id, err)
	}
	return st, nil
}

// RefreshStorySingleflight is RefreshStory with concurrent callers for
// the same ID sharing one fetch.
func (f *Refresher) RefreshStorySingleflight(ctx context.Context, id int) (*store.Story, error) {
	v, err, _ := f.sfStory.Do(fmt.Sprintf("story-%d", id), func() (interface{}, error) {
		return f.RefreshStory(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Story), nil
}

// RefreshComments resolves a story's full comment tree breadth-first and
// replaces the cached set. It returns the comments in discovery order
// plus the number of IDs that failed to resolve.
func (f *Refresher) RefreshComments(ctx context.Context, storyID int) ([]store.Comment, int, error) {
	item, err := f.client.Item(ctx, storyID)
	if err != nil {
		return nil, 0, err
	}

	nodes, failed, err := f.resolver.Resolve(ctx, item)
	if err != nil {
		return nil, failed, fmt.Errorf("resolve comments for story %d: %w", storyID, err)
	}

	now := store.NowUnix()
	if err := f.comments.ReplaceForStory(ctx, storyID, nodes, now); err != nil {
		// Cache write failures degrade to uncached serving, they don't
		// lose the resolved data.
		slog.Error("error caching comments", "story_id", storyID, "error", err)
	}

	comments := make([]store.Comment, len(nodes))
	for i, n := range nodes {
		comments[i] = store.FromNode(n, storyID, now)
	}
	return comments, failed, nil
}

type commentsResult struct {
	comments []store.Comment
	failed   int
}

// RefreshCommentsSingleflight is RefreshComments with concurrent callers
// for the same story sharing one resolution.
func (f *Refresher) RefreshCommentsSingleflight(ctx context.Context, storyID int) ([]store.Comment, int, error) {
	v, err, _ := f.sfComments.Do(fmt.Sprintf("comments-%d", storyID), func() (interface{}, error) {
		comments, failed, err := f.RefreshComments(ctx, storyID)
		return commentsResult{comments: comments, failed: failed}, err
	})
	if err != nil {
		return nil, 0, err
	}
	res := v.(commentsResult)
	return res.comments, res.failed, nil
}

// ExtractArticle fetches reader-mode content for a story URL and caches
// the outcome, including failures.
func (f *Refresher) ExtractArticle(ctx context.Context, storyID int, url string) {
	now := store.NowUnix()
	article, err := readability.Extract(ctx, url)
	if err != nil {
		slog.Error("article extraction failed", "story_id", storyID, "error", err)
		if upsertErr := f.articles.Upsert(ctx, &store.Article{
			StoryID:          storyID,
			ExtractionFailed: true,
			FetchedAt:        now,
		}); upsertErr != nil {
			slog.Error("error caching failed extraction", "story_id", storyID, "error", upsertErr)
		}
		return
	}

	if err := f.articles.Upsert(ctx, &store.Article{
		StoryID:   storyID,
		Content:   &article.Content,
		Title:     &article.Title,
		Excerpt:   &article.Excerpt,
		Byline:    &article.Byline,
		FetchedAt: now,
	}); err != nil {
		slog.Error("error caching article", "story_id", storyID, "error", err)
	}
}

// ExtractArticleSingleflight dedupes concurrent extractions per story.
func (f *Refresher) ExtractArticleSingleflight(ctx context.Context, storyID int, url string) {
	f.sfArticle.Do(fmt.Sprintf("article-%d", storyID), func() (interface{}, error) { //nolint:errcheck
		f.ExtractArticle(ctx, storyID, url)
		return nil, nil
	})
}
