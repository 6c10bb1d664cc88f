// Package theme resolves, persists and applies the light/dark theme.
package theme

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"leetbot-cli/internal/prefs"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// PrefKey is the preference key holding an explicit user choice.
const PrefKey = prefs.KeyTheme

// Parse accepts "light" or "dark" (case-insensitive).
func Parse(s string) (Theme, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return Light, true
	case "dark":
		return Dark, true
	}
	return "", false
}

func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// HintColor is the chrome color advertised for t.
func HintColor(t Theme) string {
	if t == Dark {
		return "#000000"
	}
	return "#ffffff"
}

// Prefs is the subset of the preference store the controller needs.
type Prefs interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Applier reflects a theme onto some output. It is only called when the
// applied theme actually changes.
type Applier func(Theme)

// LipglossApplier switches lipgloss adaptive colors to match t.
func LipglossApplier(t Theme) {
	lipgloss.SetHasDarkBackground(t == Dark)
}

type Options struct {
	Prefs    Prefs
	Probe    Probe
	Appliers []Applier
	Logger   *slog.Logger
}

// Controller owns the current theme. Resolution order: stored choice, then the
// environment, then light. Once the user toggles, the choice is stored and
// environment changes are ignored.
type Controller struct {
	prefs    Prefs
	probe    Probe
	appliers []Applier
	log      *slog.Logger

	applyMu sync.Mutex
	mu      sync.Mutex
	current Theme
	applied Theme
	applies int

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Theme
}

func NewController(opts Options) *Controller {
	c := &Controller{
		prefs:    opts.Prefs,
		probe:    opts.Probe,
		appliers: opts.Appliers,
		log:      opts.Logger,
		subs:     map[int]chan Theme{},
	}
	if c.probe == nil {
		c.probe = DetectEnvironment
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}

	t, ok := c.stored()
	if !ok {
		if env, envOK := c.probe(); envOK {
			t = env
		} else {
			t = Light
		}
	}
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
	c.apply()
	return c
}

func (c *Controller) stored() (Theme, bool) {
	if c.prefs == nil {
		return "", false
	}
	v, ok := c.prefs.Get(PrefKey)
	if !ok {
		return "", false
	}
	return Parse(v)
}

// Theme returns the current theme.
func (c *Controller) Theme() Theme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Explicit reports whether the current theme is a stored user choice.
func (c *Controller) Explicit() bool {
	_, ok := c.stored()
	return ok
}

// Toggle flips the theme and stores the result.
func (c *Controller) Toggle() Theme {
	c.mu.Lock()
	next := c.current.Opposite()
	c.mu.Unlock()
	c.Set(next)
	return next
}

// Set stores t as the user's choice and applies it.
func (c *Controller) Set(t Theme) {
	if c.prefs != nil {
		c.prefs.Set(PrefKey, string(t))
	}
	c.setCurrent(t)
}

// Reset forgets the stored choice and follows the environment again.
func (c *Controller) Reset() Theme {
	if c.prefs != nil {
		c.prefs.Delete(PrefKey)
	}
	t := Light
	if env, ok := c.probe(); ok {
		t = env
	}
	c.setCurrent(t)
	return t
}

// EnvironmentChanged follows an environment preference change unless the user
// has stored a choice.
func (c *Controller) EnvironmentChanged(t Theme) {
	if _, ok := c.stored(); ok {
		return
	}
	c.setCurrent(t)
}

// Watch polls the probe every interval and feeds EnvironmentChanged until ctx
// is done.
func (c *Controller) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t, ok := c.probe(); ok {
				c.EnvironmentChanged(t)
			}
		}
	}
}

func (c *Controller) setCurrent(t Theme) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
	c.apply()
}

// apply runs the appliers and notifies subscribers when the current theme
// differs from the last applied one.
func (c *Controller) apply() {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	t := c.current
	if c.applied == t {
		c.mu.Unlock()
		return
	}
	c.applied = t
	c.applies++
	c.mu.Unlock()

	for _, a := range c.appliers {
		a(t)
	}
	c.log.Debug("theme applied", "theme", string(t))
	c.publish(t)
}

// Applies reports how many times the appliers have run.
func (c *Controller) Applies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applies
}

func (c *Controller) Subscribe(bufSize int) (int, <-chan Theme) {
	ch := make(chan Theme, bufSize)
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = ch
	c.subsMu.Unlock()
	return id, ch
}

func (c *Controller) Unsubscribe(id int) {
	c.subsMu.Lock()
	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
	c.subsMu.Unlock()
}

func (c *Controller) publish(t Theme) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- t:
		default:
		}
	}
}
