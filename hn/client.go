package hn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

const maxBodySize = 1 << 20 // 1 MiB

// Client fetches items from the HN Firebase API. The API only exposes
// one-item-at-a-time lookups; fan-out and concurrency limits live in the
// fetch package, not here. The client applies a per-call timeout and
// normalizes failures into the Err* sentinels. It never retries.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
}

// NewClient returns a client for the given API base URL. timeout bounds
// each individual call; zero means 15 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:    &http.Client{},
		baseURL: baseURL,
		timeout: timeout,
	}
}

// TopStories returns up to 500 top story IDs.
func (c *Client) TopStories(ctx context.Context) ([]int, error) {
	body, err := c.get(ctx, c.baseURL+"/topstories.json", "top stories")
	if err != nil {
		return nil, err
	}

	var ids []int
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("decode top stories: %w", ErrMalformed)
	}
	return ids, nil
}

// Item fetches a single HN item by ID. A missing or deleted-beyond-recall
// item (the API returns a literal null) is reported as ErrNotFound.
func (c *Client) Item(ctx context.Context, id int) (*Item, error) {
	what := fmt.Sprintf("item %d", id)
	body, err := c.get(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), what)
	if err != nil {
		return nil, err
	}

	if isNull(body) {
		return nil, fmt.Errorf("fetch %s: %w", what, ErrNotFound)
	}

	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, ErrMalformed)
	}
	if item.ID == 0 {
		return nil, fmt.Errorf("decode %s: missing id: %w", what, ErrMalformed)
	}
	return &item, nil
}

func (c *Client) get(ctx context.Context, url, what string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", what, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", what, classify(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", what, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: status %d: %w", what, resp.StatusCode, ErrTransport)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, classify(err))
	}
	return body, nil
}

// classify maps low-level request failures onto the error taxonomy.
// Context cancellation passes through untouched so callers can tell a
// caller-initiated abort apart from an upstream timeout.
func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return context.Canceled
	default:
		return ErrTransport
	}
}

func isNull(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null"))
}
