package hn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestItem(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/8863.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":8863,"type":"story","by":"dhouston","time":1175714200,"title":"My YC app","score":111,"kids":[8952,9224],"descendants":71}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	item, err := c.Item(context.Background(), 8863)
	if err != nil {
		t.Fatalf("Item returned error: %v", err)
	}
	if item.ID != 8863 {
		t.Fatalf("unexpected id: %d", item.ID)
	}
	if item.Title != "My YC app" {
		t.Fatalf("unexpected title: %s", item.Title)
	}
	if len(item.Kids) != 2 || item.Kids[0] != 8952 {
		t.Fatalf("unexpected kids: %v", item.Kids)
	}
	if !item.IsStory() {
		t.Fatal("expected item to be a story")
	}
}

func TestItemNullBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Item(context.Background(), 123)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestItemNotFoundStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Item(context.Background(), 123)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestItemMalformed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": not json`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Item(context.Background(), 123)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestItemMissingID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"story"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Item(context.Background(), 123)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestItemTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewClient(server.URL, 50*time.Millisecond)
	_, err := c.Item(context.Background(), 123)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestItemCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	c := NewClient(server.URL, time.Second)
	_, err := c.Item(ctx, 123)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatal("cancellation must not be reported as a timeout")
	}
}

func TestTopStories(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/topstories.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[101,102,103]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	ids, err := c.TopStories(context.Background())
	if err != nil {
		t.Fatalf("TopStories returned error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 101 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewClient(server.URL, time.Second)
	_, err := c.Item(context.Background(), 123)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
