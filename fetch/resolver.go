package fetch

import (
	"context"
	"log/slog"

	"hncast/hn"
)

// CommentNode is a resolved comment plus the depth at which the
// breadth-first expansion discovered it. Parent is carried on the
// embedded item.
type CommentNode struct {
	*hn.Item
	Depth int `json:"depth"`
}

// ResolverConfig bounds a comment tree resolution. MaxDepth and MaxNodes
// guard against adversarial or malformed trees; either set to 0 yields an
// empty resolution. ExpandDeleted controls whether the children of a
// comment that resolved as deleted or dead are still expanded (the
// comment itself is never included in the output either way).
type ResolverConfig struct {
	MaxDepth      int
	MaxNodes      int
	ExpandDeleted bool
}

// Resolver expands a story's comment ID graph into a flat ordered list.
// Each depth level is resolved as one fully parallel batch through the
// aggregator before the next level's fetches are issued, so latency grows
// with depth, not with node count.
type Resolver struct {
	agg *Aggregator
	cfg ResolverConfig
}

func NewResolver(agg *Aggregator, cfg ResolverConfig) *Resolver {
	return &Resolver{agg: agg, cfg: cfg}
}

type queued struct {
	id    int
	depth int
}

// Resolve walks the comment tree under root breadth-first and returns the
// reachable comments in discovery order, plus the number of IDs that
// failed to resolve. A failed or deleted comment is skipped without
// poisoning its siblings; its subtree is simply unreachable. The comment
// graph is treated as a possibly cyclic reference graph: an ID already
// visited in this traversal is never fetched again, even when two parents
// reference it.
func (r *Resolver) Resolve(ctx context.Context, root *hn.Item) ([]CommentNode, int, error) {
	nodes := []CommentNode{}
	if r.cfg.MaxDepth <= 0 || r.cfg.MaxNodes <= 0 || len(root.Kids) == 0 {
		return nodes, 0, ctx.Err()
	}

	failed := 0
	visited := make(map[int]struct{}, len(root.Kids))
	frontier := make([]queued, 0, len(root.Kids))
	for _, kid := range root.Kids {
		visited[kid] = struct{}{}
		frontier = append(frontier, queued{id: kid, depth: 1})
	}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nodes, failed, err
		}

		ids := make([]int, len(frontier))
		for i, q := range frontier {
			ids[i] = q.id
		}
		res := r.agg.ResolveAll(ctx, ids)

		var next []queued
		for _, q := range frontier {
			item, ok := res.Items[q.id]
			if !ok {
				failed++
				slog.Debug("comment unresolved, skipping subtree",
					"comment_id", q.id, "depth", q.depth, "error", res.Failures[q.id])
				continue
			}

			removed := item.Deleted || item.Dead
			if !removed {
				if len(nodes) >= r.cfg.MaxNodes {
					return nodes, failed, nil
				}
				nodes = append(nodes, CommentNode{Item: item, Depth: q.depth})
			}
			if removed && !r.cfg.ExpandDeleted {
				continue
			}

			if q.depth >= r.cfg.MaxDepth {
				continue
			}
			for _, kid := range item.Kids {
				if _, ok := visited[kid]; ok {
					continue
				}
				visited[kid] = struct{}{}
				next = append(next, queued{id: kid, depth: q.depth + 1})
			}
		}
		frontier = next
	}

	return nodes, failed, nil
}
