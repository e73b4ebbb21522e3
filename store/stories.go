package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"hncast/hn"
)

// Story is a cached story row.
type Story struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	URL         *string `json:"url,omitempty"`
	Text        *string `json:"text,omitempty"`
	Score       int     `json:"score"`
	By          string  `json:"by"`
	Time        int64   `json:"time"`
	Descendants int     `json:"descendants"`
	Rank        *int    `json:"rank,omitempty"`
	FetchedAt   int64   `json:"fetched_at"`
}

// FromItem converts a resolved HN item into a cacheable story row.
func FromItem(item *hn.Item, now int64) *Story {
	st := &Story{
		ID:          item.ID,
		Title:       item.Title,
		Score:       item.Score,
		By:          item.By,
		Time:        item.Time,
		Descendants: item.Descendants,
		FetchedAt:   now,
	}
	if item.URL != "" {
		st.URL = &item.URL
	}
	if item.Text != "" {
		st.Text = &item.Text
	}
	if st.By == "" {
		st.By = "[unknown]"
	}
	return st
}

type StoryStore struct {
	db *sql.DB
}

func NewStoryStore(db *sql.DB) *StoryStore {
	return &StoryStore{db: db}
}

func (s *StoryStore) Upsert(ctx context.Context, st *Story) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stories (id, title, url, text, score, by, time, descendants, rank, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, url=excluded.url, text=excluded.text,
			score=excluded.score, by=excluded.by, time=excluded.time,
			descendants=excluded.descendants, rank=excluded.rank,
			fetched_at=excluded.fetched_at`,
		st.ID, st.Title, st.URL, st.Text, st.Score, st.By, st.Time,
		st.Descendants, st.Rank, st.FetchedAt)
	return err
}

// GetByID returns the cached story, or nil when it isn't cached.
func (s *StoryStore) GetByID(ctx context.Context, id int) (*Story, error) {
	st := &Story{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, url, text, score, by, time, descendants, rank, fetched_at
		FROM stories WHERE id = ?`, id).
		Scan(&st.ID, &st.Title, &st.URL, &st.Text, &st.Score, &st.By,
			&st.Time, &st.Descendants, &st.Rank, &st.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetByIDs batch-loads cached stories keyed by ID.
func (s *StoryStore) GetByIDs(ctx context.Context, ids []int) (map[int]*Story, error) {
	if len(ids) == 0 {
		return map[int]*Story{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, title, url, text, score, by, time, descendants, rank, fetched_at
		FROM stories WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int]*Story, len(ids))
	for rows.Next() {
		st := &Story{}
		if err := rows.Scan(&st.ID, &st.Title, &st.URL, &st.Text, &st.Score,
			&st.By, &st.Time, &st.Descendants, &st.Rank, &st.FetchedAt); err != nil {
			return nil, err
		}
		result[st.ID] = st
	}
	return result, rows.Err()
}

// Count returns the number of cached stories.
func (s *StoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stories`).Scan(&n)
	return n, err
}

// PruneBefore deletes unranked stories fetched before the cutoff, along
// with their cached comments and articles. Ranked stories are still on
// the front page and are kept regardless of age.
func (s *StoryStore) PruneBefore(ctx context.Context, cutoff int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM stories WHERE rank IS NULL AND fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM comments WHERE story_id NOT IN (SELECT id FROM stories)`); err != nil {
		return int(n), err
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM articles WHERE story_id NOT IN (SELECT id FROM stories)`); err != nil {
		return int(n), err
	}
	return int(n), nil
}

// SwapRanks clears all ranks and assigns the new front-page order in one
// transaction, so readers never observe a half-applied ranking.
func (s *StoryStore) SwapRanks(ctx context.Context, ids []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE stories SET rank = NULL`); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stories SET rank = ? WHERE id = ?`, i+1, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
