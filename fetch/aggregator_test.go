package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hncast/hn"
)

// fakeClient resolves items from a fixture map with optional per-ID
// latency and failures.
type fakeClient struct {
	mu       sync.Mutex
	items    map[int]*hn.Item
	errs     map[int]error
	delay    map[int]time.Duration
	calls    map[int]int
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func newFakeClient(items map[int]*hn.Item) *fakeClient {
	return &fakeClient{
		items: items,
		errs:  map[int]error{},
		delay: map[int]time.Duration{},
		calls: map[int]int{},
	}
}

func (f *fakeClient) Item(ctx context.Context, id int) (*hn.Item, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls[id]++
	d := f.delay[id]
	err := f.errs[id]
	item := f.items[id]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("fetch item %d: %w", id, hn.ErrTimeout)
			}
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, hn.ErrNotFound)
	}
	return item, nil
}

func comment(id, parent int, kids ...int) *hn.Item {
	return &hn.Item{ID: id, Type: "comment", By: "user", Text: fmt.Sprintf("comment %d", id), Parent: parent, Kids: kids}
}

func TestResolveAllAccountsForEveryID(t *testing.T) {
	t.Parallel()

	items := map[int]*hn.Item{}
	var ids []int
	for i := 1; i <= 20; i++ {
		items[i] = &hn.Item{ID: i, Type: "story", Title: fmt.Sprintf("story %d", i)}
		ids = append(ids, i)
	}
	fake := newFakeClient(items)
	fake.errs[7] = fmt.Errorf("fetch item 7: %w", hn.ErrTransport)
	fake.errs[13] = fmt.Errorf("fetch item 13: %w", hn.ErrNotFound)

	agg := NewAggregator(fake, 5)
	res := agg.ResolveAll(context.Background(), ids)

	if got := len(res.Items) + len(res.Failures); got != len(ids) {
		t.Fatalf("expected %d outcomes, got %d", len(ids), got)
	}
	for _, id := range ids {
		_, okItem := res.Items[id]
		_, okFail := res.Failures[id]
		if okItem == okFail {
			t.Fatalf("id %d must appear in exactly one map (item=%v fail=%v)", id, okItem, okFail)
		}
	}
	if !errors.Is(res.Failures[7], hn.ErrTransport) {
		t.Fatalf("expected transport failure for 7, got %v", res.Failures[7])
	}
	if !errors.Is(res.Failures[13], hn.ErrNotFound) {
		t.Fatalf("expected not-found failure for 13, got %v", res.Failures[13])
	}
}

func TestResolveAllEnforcesConcurrencyBound(t *testing.T) {
	t.Parallel()

	items := map[int]*hn.Item{}
	var ids []int
	for i := 1; i <= 12; i++ {
		items[i] = &hn.Item{ID: i, Type: "story", Title: "t"}
		ids = append(ids, i)
	}
	fake := newFakeClient(items)
	for _, id := range ids {
		fake.delay[id] = 5 * time.Millisecond
	}

	for _, limit := range []int{1, 3} {
		fake.maxSeen.Store(0)
		agg := NewAggregator(fake, limit)
		res := agg.ResolveAll(context.Background(), ids)
		if len(res.Items) != len(ids) {
			t.Fatalf("limit %d: expected all items resolved, got %d", limit, len(res.Items))
		}
		if max := fake.maxSeen.Load(); max > int64(limit) {
			t.Fatalf("limit %d: observed %d in-flight calls", limit, max)
		}
	}
}

func TestResolveAllIsolatesSlowID(t *testing.T) {
	t.Parallel()

	items := map[int]*hn.Item{}
	var ids []int
	for i := 1; i <= 10; i++ {
		items[i] = &hn.Item{ID: i, Type: "story", Title: "t"}
		ids = append(ids, i)
	}
	fake := newFakeClient(items)
	fake.delay[5] = time.Hour // never completes within the deadline

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	agg := NewAggregator(fake, 10)
	res := agg.ResolveAll(ctx, ids)

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("aggregation blocked on slow ID: took %v", elapsed)
	}
	if len(res.Items) != 9 {
		t.Fatalf("expected 9 successes, got %d", len(res.Items))
	}
	if !errors.Is(res.Failures[5], hn.ErrTimeout) {
		t.Fatalf("expected timeout failure for slow ID, got %v", res.Failures[5])
	}
}

func TestResolveAllDeduplicates(t *testing.T) {
	t.Parallel()

	fake := newFakeClient(map[int]*hn.Item{
		1: {ID: 1, Type: "story", Title: "t"},
	})
	agg := NewAggregator(fake, 2)
	res := agg.ResolveAll(context.Background(), []int{1, 1, 1})

	if len(res.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(res.Items))
	}
	if fake.calls[1] != 1 {
		t.Fatalf("expected 1 upstream call, got %d", fake.calls[1])
	}
}

func TestResolveAllEmptyInput(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(newFakeClient(nil), 4)
	res := agg.ResolveAll(context.Background(), nil)
	if len(res.Items) != 0 || len(res.Failures) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestInOrder(t *testing.T) {
	t.Parallel()

	fake := newFakeClient(map[int]*hn.Item{
		1: {ID: 1, Type: "story", Title: "a"},
		2: {ID: 2, Type: "story", Title: "b"},
		3: {ID: 3, Type: "story", Title: "c"},
	})
	fake.errs[2] = fmt.Errorf("fetch item 2: %w", hn.ErrTransport)

	agg := NewAggregator(fake, 3)
	res := agg.ResolveAll(context.Background(), []int{3, 2, 1})

	ordered := res.InOrder([]int{3, 2, 1})
	if len(ordered) != 2 {
		t.Fatalf("expected 2 ordered items, got %d", len(ordered))
	}
	if ordered[0].ID != 3 || ordered[1].ID != 1 {
		t.Fatalf("unexpected order: %d, %d", ordered[0].ID, ordered[1].ID)
	}
}
