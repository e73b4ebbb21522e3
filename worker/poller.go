package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hncast/fetch"
	"hncast/hn"
	"hncast/sse"
	"hncast/store"
)

// Poller periodically refreshes the top-story list and eagerly caches the
// first page of stories through the aggregator.
type Poller struct {
	client   *hn.Client
	agg      *fetch.Aggregator
	stories  *store.StoryStore
	topList  *store.TopList
	broker   *sse.Broker
	eager    int // stories cached eagerly per poll
	interval time.Duration
}

func NewPoller(client *hn.Client, agg *fetch.Aggregator, stories *store.StoryStore, topList *store.TopList, broker *sse.Broker, eager int, interval time.Duration) *Poller {
	if eager < 1 {
		eager = 50
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		client:   client,
		agg:      agg,
		stories:  stories,
		topList:  topList,
		broker:   broker,
		eager:    eager,
		interval: interval,
	}
}

// Start begins the polling loop. It runs until the context is cancelled.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		p.poll(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("poller: shutting down")
				return
			case <-ticker.C:
				p.poll(ctx)
			}
		}
	}()
}

func (p *Poller) poll(ctx context.Context) {
	slog.Info("polling HN top stories")
	start := time.Now()

	topIDs, err := p.client.TopStories(ctx)
	if err != nil {
		slog.Error("error fetching top stories", "error", err)
		return
	}

	// Update the shared TopList immediately so the API can paginate
	// before the eager fetch finishes.
	p.topList.Set(topIDs)

	eager := p.eager
	if len(topIDs) < eager {
		eager = len(topIDs)
	}

	res := p.agg.ResolveAll(ctx, topIDs[:eager])
	if n := len(res.Failures); n > 0 {
		slog.Warn("poll: some stories failed to resolve", "failed", n)
	}

	now := store.NowUnix()
	var cached []int
	for _, item := range res.InOrder(topIDs[:eager]) {
		if item.Title == "" || item.Dead || item.Deleted {
			continue
		}
		if err := p.stories.Upsert(ctx, store.FromItem(item, now)); err != nil {
			slog.Error("error caching story", "story_id", item.ID, "error", err)
			continue
		}
		cached = append(cached, item.ID)
	}

	if err := p.stories.SwapRanks(ctx, cached); err != nil {
		slog.Error("error swapping ranks", "error", err)
	}

	slog.Info("poll complete", "stories_cached", len(cached), "elapsed", time.Since(start))

	if len(cached) > 0 {
		data, _ := json.Marshal(map[string]interface{}{
			"story_ids": cached,
			"timestamp": now,
		})
		p.broker.Publish("stories_updated", string(data))
	}
}
