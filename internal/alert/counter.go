// Package alert models the client-side presentation layer: display caps,
// the audible alarm, and scheduled notification presentation.
package alert

import (
	"sync"
	"time"
)

// CounterStore persists per-key display counts. Implementations may be
// volatile; the counter only has to survive within one local day.
type CounterStore interface {
	Get(key string) int
	Set(key string, value int)
}

// MemoryCounterStore is an in-memory CounterStore.
type MemoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryCounterStore creates an empty store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counts: make(map[string]int)}
}

// Get returns the count for a key, zero when absent.
func (s *MemoryCounterStore) Get(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// Set stores the count for a key.
func (s *MemoryCounterStore) Set(key string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key] = value
}

// DefaultDailyLimit caps how often one subscription may interrupt the user
// per local day, across every UI surface combined.
const DefaultDailyLimit = 2

// DailyDisplayCounter throttles UI-level reminder shows per subscription per
// local calendar day. It is independent of the server-side delivery ledger:
// a user reopening the app many times a day would otherwise be re-alerted on
// every poll.
type DailyDisplayCounter struct {
	store CounterStore
	limit int
	loc   *time.Location
	now   func() time.Time
}

// NewDailyDisplayCounter creates a counter. limit values below 1 fall back
// to DefaultDailyLimit.
func NewDailyDisplayCounter(store CounterStore, limit int, loc *time.Location) *DailyDisplayCounter {
	if limit < 1 {
		limit = DefaultDailyLimit
	}
	return &DailyDisplayCounter{
		store: store,
		limit: limit,
		loc:   loc,
		now:   time.Now,
	}
}

// key changes with the local date, so counts reset naturally at midnight.
func (c *DailyDisplayCounter) key(subscriptionID string) string {
	return subscriptionID + "|" + c.now().In(c.loc).Format("2006-01-02")
}

// CanShow reports whether the subscription is still under today's cap.
func (c *DailyDisplayCounter) CanShow(subscriptionID string) bool {
	return c.store.Get(c.key(subscriptionID)) < c.limit
}

// RecordShown increments the count. Called immediately on show, before any
// slow display work, so racing show attempts cannot both pass the cap.
func (c *DailyDisplayCounter) RecordShown(subscriptionID string) {
	key := c.key(subscriptionID)
	c.store.Set(key, c.store.Get(key)+1)
}
