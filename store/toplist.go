package store

import (
	"sync"
	"time"
)

// TopList is a thread-safe ordered list of top story IDs, set by the
// poller after each TopStories call and read by the API for pagination.
type TopList struct {
	mu        sync.RWMutex
	ids       []int
	updatedAt time.Time
}

func NewTopList() *TopList {
	return &TopList{}
}

// Set replaces the entire list of top story IDs.
func (t *TopList) Set(ids []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = make([]int, len(ids))
	copy(t.ids, ids)
	t.updatedAt = time.Now()
}

// Page returns the IDs for the given page (1-indexed) and the total
// number of IDs.
func (t *TopList) Page(page, pageSize int) ([]int, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := len(t.ids)
	if total == 0 {
		return nil, 0
	}

	offset := (page - 1) * pageSize
	if offset >= total {
		return nil, total
	}

	end := offset + pageSize
	if end > total {
		end = total
	}

	result := make([]int, end-offset)
	copy(result, t.ids[offset:end])
	return result, total
}

// Len returns the number of IDs in the list.
func (t *TopList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

// UpdatedAt returns when the list was last replaced; zero if never.
func (t *TopList) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}
