package query

import "time"

// Snapshot is a successful entry in a form that can outlive the process.
type Snapshot struct {
	Key       Key
	Value     any
	FetchedAt time.Time
}

// Snapshot returns every entry that currently holds a value.
func (c *Cache) Snapshot() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.hasValue {
			continue
		}
		out = append(out, Snapshot{Key: e.key, Value: e.value, FetchedAt: e.fetchedAt})
	}
	return out
}

// Hydrate seeds the cache with previously saved entries. Existing entries win:
// hydration never replaces something fetched in this process. Hydrated entries
// keep their original FetchedAt, so staleness carries over across restarts.
func (c *Cache) Hydrate(snaps []Snapshot) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, s := range snaps {
		ks := s.Key.String()
		if _, ok := c.entries[ks]; ok {
			continue
		}
		gen := c.nextGenLocked()
		c.entries[ks] = &entry{
			key:       s.Key,
			gen:       gen,
			born:      gen,
			status:    StatusSuccess,
			value:     s.Value,
			hasValue:  true,
			fetchedAt: s.FetchedAt,
			lastRead:  now,
			staleTime: DefaultStaleTime,
		}
		n++
	}
	return n
}
