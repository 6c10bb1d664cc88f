// Package prefs is the persistent preference store: a small string map that
// answers reads from memory and writes through to a Backend in the background.
package prefs

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Keys persisted by leetbot.
const (
	KeySelectedCompany   = "selectedCompany"
	KeySelectedTimeframe = "selectedTimeframe"
	KeyTheme             = "theme"
)

const DefaultFlushDelay = 250 * time.Millisecond

// Backend is durable storage for the encoded preference map.
type Backend interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
}

// Store holds preferences in memory. Set and Delete take effect immediately for
// readers in this process; the backend write happens after FlushDelay and its
// failure only affects the next launch.
type Store struct {
	backend Backend
	delay   time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	values  map[string]string // key -> JSON-encoded value
	dirty   bool
	timer   *time.Timer
	closed  bool
	writeMu sync.Mutex
}

type Options struct {
	FlushDelay time.Duration
	Logger     *slog.Logger
}

// Open loads the backend's current contents. A load failure is logged and the
// store starts empty.
func Open(ctx context.Context, backend Backend, opts Options) *Store {
	s := &Store{
		backend: backend,
		delay:   opts.FlushDelay,
		log:     opts.Logger,
		values:  map[string]string{},
	}
	if s.delay <= 0 {
		s.delay = DefaultFlushDelay
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if backend == nil {
		s.backend = &MemoryBackend{}
	}
	loaded, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Warn("prefs load failed", "error", err)
		return s
	}
	for k, v := range loaded {
		s.values[k] = v
	}
	return s
}

// Get returns the decoded value for key. Values that no longer decode as a
// string are reported as absent.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", false
	}
	return v, true
}

func (s *Store) Set(key, value string) {
	raw, _ := json.Marshal(value)
	s.mu.Lock()
	if cur, ok := s.values[key]; ok && cur == string(raw) {
		s.mu.Unlock()
		return
	}
	s.values[key] = string(raw)
	s.markDirtyLocked()
	s.mu.Unlock()
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	if _, ok := s.values[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.values, key)
	s.markDirtyLocked()
	s.mu.Unlock()
}

// All returns a copy of the decoded preference map.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	raw := maps.Clone(s.values)
	s.mu.Unlock()
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var str string
		if json.Unmarshal([]byte(v), &str) == nil {
			out[k] = str
		}
	}
	return out
}

func (s *Store) markDirtyLocked() {
	s.dirty = true
	if s.closed {
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.onTimer)
		return
	}
	s.timer.Reset(s.delay)
}

func (s *Store) onTimer() {
	if err := s.Flush(context.Background()); err != nil {
		s.log.Warn("prefs flush failed", "error", err)
	}
}

// Flush writes pending changes now. Concurrent flushes are serialized so the
// newest state is always written last.
func (s *Store) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := maps.Clone(s.values)
	s.dirty = false
	s.mu.Unlock()

	if err := s.backend.Save(ctx, snap); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

// Close stops the background timer and makes a final best-effort flush.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	if err := s.Flush(ctx); err != nil {
		s.log.Warn("prefs flush on close failed", "error", err)
	}
}

// MemoryBackend keeps the map in memory only.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	saves  int
}

func (m *MemoryBackend) Load(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values), nil
}

func (m *MemoryBackend) Save(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = maps.Clone(values)
	m.saves++
	return nil
}

// Saves reports how many times Save ran.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
