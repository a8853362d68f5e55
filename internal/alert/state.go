package alert

import (
	"strings"
	"sync"
)

// MemoryScheduleStore is an in-memory ScheduleStore, also used as the fake
// in tests. Real clients back this with persistent key-value storage.
type MemoryScheduleStore struct {
	mu      sync.Mutex
	entries map[string]ScheduleEntry
}

// NewMemoryScheduleStore creates an empty store.
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{entries: make(map[string]ScheduleEntry)}
}

// Put stores an entry keyed by tag.
func (s *MemoryScheduleStore) Put(entry ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Tag] = entry
	return nil
}

// DeleteByPrefix removes every entry whose tag starts with the prefix.
func (s *MemoryScheduleStore) DeleteByPrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag := range s.entries {
		if strings.HasPrefix(tag, prefix) {
			delete(s.entries, tag)
		}
	}
	return nil
}

// List returns all stored entries.
func (s *MemoryScheduleStore) List() ([]ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduleEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	return out, nil
}

// ClientState owns the presentation-side state that would otherwise live in
// module-level globals: the counter store, the pending schedule and the
// alarm. It has an explicit lifecycle so tests can build and tear it down.
type ClientState struct {
	Counter   *DailyDisplayCounter
	Alarm     *Alarm
	Presenter *Presenter
	schedule  ScheduleStore
}

// NewClientState wires the presentation components together.
func NewClientState(counter *DailyDisplayCounter, alarm *Alarm, presenter *Presenter, schedule ScheduleStore) *ClientState {
	return &ClientState{
		Counter:   counter,
		Alarm:     alarm,
		Presenter: presenter,
		schedule:  schedule,
	}
}

// Init re-arms timers for durable schedule entries that have not fired yet.
func (c *ClientState) Init() error {
	entries, err := c.schedule.List()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		delay := entry.FireAt.Sub(c.Presenter.now())
		if delay <= 0 {
			// Missed while the client was gone; show right away, still
			// subject to the daily cap.
			c.Presenter.show(entry.Reminder)
			_ = c.schedule.DeleteByPrefix(entry.Tag)
			continue
		}
		c.Presenter.arm(entry.Tag, delay, entry.Reminder)
	}
	return nil
}

// Teardown stops the alarm and every pending timer without touching durable
// state, so a later Init can restore it.
func (c *ClientState) Teardown() {
	c.Alarm.Stop()

	c.Presenter.mu.Lock()
	defer c.Presenter.mu.Unlock()
	for tag, timer := range c.Presenter.pending {
		timer.Stop()
		delete(c.Presenter.pending, tag)
	}
}
