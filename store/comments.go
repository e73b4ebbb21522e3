package store

import (
	"context"
	"database/sql"

	"hncast/fetch"
)

// Comment is a cached comment row in discovery order. position preserves
// the breadth-first order the resolver produced.
type Comment struct {
	ID        int    `json:"id"`
	StoryID   int    `json:"-"`
	ParentID  int    `json:"parent"`
	Depth     int    `json:"depth"`
	By        string `json:"by,omitempty"`
	Text      string `json:"text,omitempty"`
	Time      int64  `json:"time"`
	FetchedAt int64  `json:"-"`
}

type CommentStore struct {
	db *sql.DB
}

func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

// ReplaceForStory swaps a story's cached comments for a freshly resolved
// set in one transaction.
func (s *CommentStore) ReplaceForStory(ctx context.Context, storyID int, nodes []fetch.CommentNode, now int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE story_id = ?`, storyID); err != nil {
		return err
	}
	for i, n := range nodes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, story_id, parent_id, depth, position, by, text, time, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, storyID, n.Parent, n.Depth, i, n.By, n.Text, n.Time, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByStory returns the cached comments in discovery order and the time
// they were fetched. A story with no cached comments yields (nil, 0).
func (s *CommentStore) GetByStory(ctx context.Context, storyID int) ([]Comment, int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_id, parent_id, depth, by, text, time, fetched_at
		FROM comments WHERE story_id = ?
		ORDER BY position ASC`, storyID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var comments []Comment
	var fetchedAt int64
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.StoryID, &c.ParentID, &c.Depth,
			&c.By, &c.Text, &c.Time, &c.FetchedAt); err != nil {
			return nil, 0, err
		}
		if c.FetchedAt > fetchedAt {
			fetchedAt = c.FetchedAt
		}
		comments = append(comments, c)
	}
	return comments, fetchedAt, rows.Err()
}

// Count returns the number of cached comments across all stories.
func (s *CommentStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	return n, err
}

// FromNode converts a resolver node for callers that bypass the cache.
func FromNode(n fetch.CommentNode, storyID int, now int64) Comment {
	return Comment{
		ID:        n.ID,
		StoryID:   storyID,
		ParentID:  n.Parent,
		Depth:     n.Depth,
		By:        n.By,
		Text:      n.Text,
		Time:      n.Time,
		FetchedAt: now,
	}
}
