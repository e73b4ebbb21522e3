// Package fetch resolves flat ID lists and comment trees against the HN
// API with bounded parallelism.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hncast/hn"
)

// ItemClient is the single-item lookup the aggregator fans out over.
// *hn.Client satisfies it.
type ItemClient interface {
	Item(ctx context.Context, id int) (*hn.Item, error)
}

// Result maps every requested ID to either a resolved item or a failure.
// An ID appears in exactly one of the two maps, never both, never neither.
type Result struct {
	Items    map[int]*hn.Item
	Failures map[int]error
}

// Failed returns the IDs that could not be resolved.
func (r *Result) Failed() []int {
	ids := make([]int, 0, len(r.Failures))
	for id := range r.Failures {
		ids = append(ids, id)
	}
	return ids
}

// InOrder rebuilds rank-preserving order from the caller's original ID
// sequence, skipping failures. Completion order inside the aggregator is
// nondeterministic, so display order is always reconstructed here.
func (r *Result) InOrder(ids []int) []*hn.Item {
	items := make([]*hn.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := r.Items[id]; ok {
			items = append(items, item)
		}
	}
	return items
}

// Aggregator fetches batches of items with at most `limit` calls in
// flight at once. Each call is isolated: one slow or failing ID never
// blocks or poisons the rest of the batch.
type Aggregator struct {
	client ItemClient
	limit  int
}

// NewAggregator returns an aggregator with the given concurrency limit.
// The limit bounds simultaneous upstream calls; values below 1 are
// clamped to 1.
func NewAggregator(client ItemClient, limit int) *Aggregator {
	if limit < 1 {
		limit = 1
	}
	return &Aggregator{client: client, limit: limit}
}

// ResolveAll fetches all ids, dispatching the next pending ID as
// capacity frees up. It returns only once every ID has been resolved or
// has definitively failed. When ctx expires mid-batch, IDs still pending
// are marked failed with hn.ErrTimeout (or context.Canceled on abort)
// rather than silently dropped. Duplicate input IDs are fetched once.
func (a *Aggregator) ResolveAll(ctx context.Context, ids []int) *Result {
	res := &Result{
		Items:    make(map[int]*hn.Item, len(ids)),
		Failures: make(map[int]error),
	}

	uniq := dedupe(ids)
	if len(uniq) == 0 {
		return res
	}

	type outcome struct {
		item *hn.Item
		err  error
	}
	outcomes := make([]outcome, len(uniq))

	g := &errgroup.Group{}
	g.SetLimit(a.limit)

	for i, id := range uniq {
		// Stop dispatching once the call-wide deadline has passed;
		// everything not yet dispatched fails immediately.
		if err := ctx.Err(); err != nil {
			outcomes[i] = outcome{err: deadlineError(err)}
			continue
		}
		g.Go(func() error {
			item, err := a.client.Item(ctx, id)
			outcomes[i] = outcome{item: item, err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers record outcomes, never return errors

	for i, id := range uniq {
		o := outcomes[i]
		if o.err != nil {
			res.Failures[id] = o.err
			continue
		}
		res.Items[id] = o.item
	}
	return res
}

func deadlineError(ctxErr error) error {
	if errors.Is(ctxErr, context.Canceled) {
		return fmt.Errorf("fetch aborted: %w", ctxErr)
	}
	return fmt.Errorf("deadline exceeded before dispatch: %w", hn.ErrTimeout)
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	uniq := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	return uniq
}
