// Package query caches API results per key, de-duplicates concurrent fetches,
// retries selectively and serves stale values while revalidating.
//
// Each entry carries a generation. Invalidate bumps it; a fetch only writes its
// result back if the entry is still on the generation the fetch started with, so
// a slow pre-invalidation fetch can never overwrite a newer answer.
package query

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Result is a point-in-time view of one entry.
type Result struct {
	Key    Key
	Status Status
	// Value is the last successful value. It survives later refresh failures.
	Value     any
	HasValue  bool
	Err       error
	FetchedAt time.Time
	// Stale is true when the next read will refetch (age, invalidation, or error).
	Stale      bool
	Fetching   bool
	Generation uint64
}

// Event is published after every change to an entry.
type Event struct {
	Key    Key
	Result Result
}

type entry struct {
	key       Key
	status    Status
	value     any
	hasValue  bool
	err       error
	fetchedAt time.Time
	lastRead  time.Time
	staleTime time.Duration

	gen         uint64
	born        uint64
	invalidated bool

	// flying is set while a fetch for flightGen is running.
	flying    bool
	flightGen uint64
	fetching  int
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	// gens hands out generations. It never resets, so an entry recreated after
	// Clear or Remove never shares a flight key with a fetch started before it.
	gens uint64

	now        func() time.Time
	gcTime     time.Duration
	maxEntries int
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

type Config struct {
	// GCTime prunes entries that have not been read for this long. Zero uses the default.
	GCTime time.Duration
	// MaxEntries bounds the map; least recently read entries are evicted first. Zero is unbounded.
	MaxEntries int
	Logger     *slog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

func New(cfg Config) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries:    make(map[string]*entry),
		now:        cfg.Now,
		gcTime:     cfg.GCTime,
		maxEntries: cfg.MaxEntries,
		log:        cfg.Logger,
		ctx:        ctx,
		cancel:     cancel,
		subs:       make(map[int]chan Event),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.gcTime <= 0 {
		c.gcTime = DefaultGCTime
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	return c
}

// Close cancels background fetches and waits for them to return.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// Read returns the current state of key without blocking.
//
// A fresh value is returned as-is. A stale value is returned immediately while a
// refresh runs in the background. A missing entry is created as pending and fetched.
// Concurrent reads of the same key share one fetch.
func (c *Cache) Read(key Key, fetch FetchFunc, opts Options) Result {
	r, _ := c.read(key, fetch, opts, false)
	return r
}

// Get is the blocking form of Read: it returns any cached value (fresh or stale)
// immediately, otherwise it waits for the fetch. ctx only bounds the wait; the
// fetch itself keeps running for other readers.
func (c *Cache) Get(ctx context.Context, key Key, fetch FetchFunc, opts Options) (any, error) {
	r, ch := c.read(key, fetch, opts, true)
	if r.HasValue {
		return r.Value, nil
	}
	if ch == nil {
		return nil, r.Err
	}
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) read(key Key, fetch FetchFunc, opts Options, wantWait bool) (Result, <-chan singleflight.Result) {
	ks := key.String()

	c.mu.Lock()
	now := c.now()
	c.pruneLocked(now, ks)

	e := c.entries[ks]
	created := false
	if e == nil {
		gen := c.nextGenLocked()
		e = &entry{key: key, status: StatusPending, gen: gen, born: gen}
		c.entries[ks] = e
		created = true
	}
	e.lastRead = now
	e.staleTime = opts.StaleTime

	var ch <-chan singleflight.Result
	started := false
	if c.staleLocked(e, now) {
		if !e.flying || e.flightGen != e.gen {
			c.startLocked(e, ks, fetch, opts)
			started = true
		}
		if wantWait || started {
			// Joins the flight started above or one already running for this generation.
			ch = c.group.DoChan(flightKey(ks, e.gen), func() (any, error) {
				// Only reached if the flight was forgotten between the checks above,
				// which cannot happen while c.mu is held.
				return nil, context.Canceled
			})
		}
	}
	res := c.resultLocked(e, now)
	c.evictLocked(ks)
	c.mu.Unlock()

	if created || started {
		c.publish(Event{Key: key, Result: res})
	}
	return res, ch
}

// startLocked launches the fetch for e's current generation.
func (c *Cache) startLocked(e *entry, ks string, fetch FetchFunc, opts Options) {
	gen := e.gen
	e.flying = true
	e.flightGen = gen
	e.fetching++
	if !e.hasValue {
		e.status = StatusPending
		e.err = nil
	}
	key := e.key

	c.wg.Add(1)
	c.group.DoChan(flightKey(ks, gen), func() (any, error) {
		defer c.wg.Done()
		start := c.now()
		v, attempts, err := withRetry(c.ctx, opts, fetch)
		if err != nil {
			c.log.Debug("query failed", "key", key.Display(), "attempts", attempts, "error", err)
		} else {
			c.log.Debug("query fetched", "key", key.Display(), "attempts", attempts, "took", c.now().Sub(start))
		}
		c.finish(key, gen, v, err)
		return v, err
	})
}

// finish writes a fetch result back if its generation is still current.
func (c *Cache) finish(key Key, gen uint64, v any, err error) {
	ks := key.String()

	c.mu.Lock()
	// Later reads must start a new flight rather than join this finished one.
	c.group.Forget(flightKey(ks, gen))

	e := c.entries[ks]
	if e == nil || gen < e.born {
		// The entry this fetch belonged to was removed.
		c.mu.Unlock()
		return
	}
	e.fetching--
	if e.flying && e.flightGen == gen {
		e.flying = false
	}
	now := c.now()
	if gen != e.gen {
		c.log.Debug("discarding superseded result", "key", key.Display(), "gen", gen, "current", e.gen)
		res := c.resultLocked(e, now)
		c.mu.Unlock()
		c.publish(Event{Key: key, Result: res})
		return
	}

	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.status = StatusSuccess
		e.value = v
		e.hasValue = true
		e.err = nil
		e.fetchedAt = now
		e.invalidated = false
	}
	res := c.resultLocked(e, now)
	c.mu.Unlock()

	c.publish(Event{Key: key, Result: res})
}

// Invalidate marks every entry under prefix stale and moves it to a new
// generation. In-flight fetches keep running; their results are discarded.
// It returns the number of entries touched.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	now := c.now()
	var events []Event
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.gen = c.nextGenLocked()
		e.invalidated = true
		events = append(events, Event{Key: e.key, Result: c.resultLocked(e, now)})
	}
	c.mu.Unlock()

	for _, ev := range events {
		c.publish(ev)
	}
	if len(events) > 0 {
		c.log.Debug("invalidated", "prefix", prefix.Display(), "entries", len(events))
	}
	return len(events)
}

// InvalidateAll invalidates every entry.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	families := map[string]bool{}
	for _, e := range c.entries {
		families[e.key.Family] = true
	}
	c.mu.Unlock()

	n := 0
	for f := range families {
		n += c.Invalidate(NewKey(f))
	}
	return n
}

// Remove drops every entry under prefix. Running fetches complete but find no entry.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for ks, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, ks)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	return n
}

// Peek returns the entry for key without reading it (no fetch, no LRU touch).
func (c *Cache) Peek(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key.String()]
	if e == nil {
		return Result{Key: key}, false
	}
	return c.resultLocked(e, c.now()), true
}

// Entries lists entries under prefix (all entries for a zero Key), sorted by key.
func (c *Cache) Entries(prefix Key) []Result {
	c.mu.Lock()
	now := c.now()
	out := make([]Result, 0, len(c.entries))
	for _, e := range c.entries {
		if prefix.Family != "" && !e.key.HasPrefix(prefix) {
			continue
		}
		out = append(out, c.resultLocked(e, now))
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.Display() < out[j].Key.Display() })
	return out
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribe returns a channel receiving every Event. Slow subscribers drop events,
// so consumers should treat an Event as "go look at the cache" rather than a log.
func (c *Cache) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = ch
	c.subsMu.Unlock()
	return id, ch
}

func (c *Cache) Unsubscribe(id int) {
	c.subsMu.Lock()
	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
	c.subsMu.Unlock()
}

func (c *Cache) publish(ev Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (c *Cache) staleLocked(e *entry, now time.Time) bool {
	if e.invalidated || !e.hasValue || e.status == StatusError {
		return true
	}
	return now.Sub(e.fetchedAt) >= e.staleTime
}

func (c *Cache) resultLocked(e *entry, now time.Time) Result {
	return Result{
		Key:        e.key,
		Status:     e.status,
		Value:      e.value,
		HasValue:   e.hasValue,
		Err:        e.err,
		FetchedAt:  e.fetchedAt,
		Stale:      c.staleLocked(e, now),
		Fetching:   e.fetching > 0,
		Generation: e.gen,
	}
}

// pruneLocked drops entries nobody has read within gcTime. keep is never pruned.
func (c *Cache) pruneLocked(now time.Time, keep string) {
	for ks, e := range c.entries {
		if ks == keep || e.fetching > 0 {
			continue
		}
		if now.Sub(e.lastRead) >= c.gcTime {
			delete(c.entries, ks)
		}
	}
}

// evictLocked enforces maxEntries by dropping the least recently read idle entries.
func (c *Cache) evictLocked(keep string) {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}
	type cand struct {
		ks   string
		last time.Time
	}
	var cands []cand
	for ks, e := range c.entries {
		if ks == keep || e.fetching > 0 {
			continue
		}
		cands = append(cands, cand{ks: ks, last: e.lastRead})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].last.Before(cands[j].last) })
	for _, cd := range cands {
		if len(c.entries) <= c.maxEntries {
			return
		}
		delete(c.entries, cd.ks)
	}
}

func (c *Cache) nextGenLocked() uint64 {
	c.gens++
	return c.gens
}

func flightKey(ks string, gen uint64) string {
	return ks + "#" + strconv.FormatUint(gen, 10)
}
