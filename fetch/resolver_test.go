package fetch

import (
	"context"
	"fmt"
	"testing"

	"hncast/hn"
)

func newResolver(fake *fakeClient, cfg ResolverConfig) *Resolver {
	return NewResolver(NewAggregator(fake, 4), cfg)
}

func TestResolveTreeDiscoveryOrder(t *testing.T) {
	t.Parallel()

	// story
	//  |- 10 -- 100
	//  |- 11 -- 110, 111
	fake := newFakeClient(map[int]*hn.Item{
		10:  comment(10, 1, 100),
		11:  comment(11, 1, 110, 111),
		100: comment(100, 10),
		110: comment(110, 11),
		111: comment(111, 11),
	})
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: []int{10, 11}}

	r := newResolver(fake, ResolverConfig{MaxDepth: 10, MaxNodes: 100})
	nodes, failed, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if failed != 0 {
		t.Fatalf("expected no failures, got %d", failed)
	}

	wantIDs := []int{10, 11, 100, 110, 111}
	wantDepths := []int{1, 1, 2, 2, 2}
	if len(nodes) != len(wantIDs) {
		t.Fatalf("expected %d nodes, got %d", len(wantIDs), len(nodes))
	}
	for i, n := range nodes {
		if n.ID != wantIDs[i] || n.Depth != wantDepths[i] {
			t.Fatalf("node %d: got id=%d depth=%d, want id=%d depth=%d",
				i, n.ID, n.Depth, wantIDs[i], wantDepths[i])
		}
	}
}

func TestResolveTreeSharedChildFetchedOnce(t *testing.T) {
	t.Parallel()

	// Both 10 and 11 list 100 as a child. It must be fetched and
	// reported exactly once.
	fake := newFakeClient(map[int]*hn.Item{
		10:  comment(10, 1, 100),
		11:  comment(11, 1, 100),
		100: comment(100, 10),
	})
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: []int{10, 11}}

	r := newResolver(fake, ResolverConfig{MaxDepth: 10, MaxNodes: 100})
	nodes, _, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	count := 0
	for _, n := range nodes {
		if n.ID == 100 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("shared child appeared %d times", count)
	}
	if fake.calls[100] != 1 {
		t.Fatalf("shared child fetched %d times", fake.calls[100])
	}
}

func TestResolveTreeZeroBudgets(t *testing.T) {
	t.Parallel()

	fake := newFakeClient(map[int]*hn.Item{10: comment(10, 1)})
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: []int{10}}

	for _, cfg := range []ResolverConfig{
		{MaxDepth: 0, MaxNodes: 100},
		{MaxDepth: 10, MaxNodes: 0},
	} {
		r := newResolver(fake, cfg)
		nodes, failed, err := r.Resolve(context.Background(), root)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if len(nodes) != 0 || failed != 0 {
			t.Fatalf("cfg %+v: expected empty resolution, got %d nodes %d failed", cfg, len(nodes), failed)
		}
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no fetches with a zero budget, got %v", fake.calls)
	}
}

func TestResolveTreeMaxDepth(t *testing.T) {
	t.Parallel()

	fake := newFakeClient(map[int]*hn.Item{
		10:   comment(10, 1, 100),
		100:  comment(100, 10, 1000),
		1000: comment(1000, 100),
	})
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: []int{10}}

	r := newResolver(fake, ResolverConfig{MaxDepth: 2, MaxNodes: 100})
	nodes, _, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes within depth 2, got %d", len(nodes))
	}
	for _, n := range nodes {
		if n.ID == 1000 {
			t.Fatal("node beyond max depth was included")
		}
	}
}

func TestResolveTreeMaxNodes(t *testing.T) {
	t.Parallel()

	items := map[int]*hn.Item{}
	var kids []int
	for i := 10; i < 30; i++ {
		items[i] = comment(i, 1)
		kids = append(kids, i)
	}
	fake := newFakeClient(items)
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: kids}

	r := newResolver(fake, ResolverConfig{MaxDepth: 10, MaxNodes: 5})
	nodes, _, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(nodes) != 5 {
		t.Fatalf("expected node cap of 5, got %d", len(nodes))
	}
}

func TestResolveTreeDeletedComment(t *testing.T) {
	t.Parallel()

	deleted := comment(10, 1, 100)
	deleted.Deleted = true
	fixture := map[int]*hn.Item{
		10:  deleted,
		100: comment(100, 10),
	}
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: []int{10}}

	// Default policy: a deleted comment hides its subtree.
	fake := newFakeClient(fixture)
	r := newResolver(fake, ResolverConfig{MaxDepth: 10, MaxNodes: 100})
	nodes, failed, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(nodes) != 0 || failed != 0 {
		t.Fatalf("expected empty resolution under deleted parent, got %d nodes %d failed", len(nodes), failed)
	}

	// ExpandDeleted keeps walking through it; the deleted comment
	// itself stays excluded.
	fake = newFakeClient(fixture)
	r = newResolver(fake, ResolverConfig{MaxDepth: 10, MaxNodes: 100, ExpandDeleted: true})
	nodes, _, err = r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != 100 {
		t.Fatalf("expected only the live child, got %+v", nodes)
	}
}

func TestResolveTreeFailedCommentSkipsSubtree(t *testing.T) {
	t.Parallel()

	fake := newFakeClient(map[int]*hn.Item{
		10: comment(10, 1, 100),
		11: comment(11, 1),
		// 10's fetch fails; 100 must never be requested.
		100: comment(100, 10),
	})
	fake.errs[10] = fmt.Errorf("fetch item 10: %w", hn.ErrTransport)
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: []int{10, 11}}

	r := newResolver(fake, ResolverConfig{MaxDepth: 10, MaxNodes: 100})
	nodes, failed, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if failed != 1 {
		t.Fatalf("expected 1 failure, got %d", failed)
	}
	if len(nodes) != 1 || nodes[0].ID != 11 {
		t.Fatalf("expected sibling to survive, got %+v", nodes)
	}
	if fake.calls[100] != 0 {
		t.Fatal("subtree under failed comment was fetched")
	}
}

func TestResolveTreeCycleTerminates(t *testing.T) {
	t.Parallel()

	// 10 and 100 reference each other.
	fake := newFakeClient(map[int]*hn.Item{
		10:  comment(10, 1, 100),
		100: comment(100, 10, 10),
	})
	root := &hn.Item{ID: 1, Type: "story", Title: "t", Kids: []int{10}}

	r := newResolver(fake, ResolverConfig{MaxDepth: 50, MaxNodes: 100})
	nodes, _, err := r.Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if fake.calls[10] != 1 {
		t.Fatalf("cycle caused refetch: %d calls", fake.calls[10])
	}
}
