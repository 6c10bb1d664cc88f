// Package selection coordinates the company/timeframe selection with the
// query cache.
//
// Rapid preview/confirm sequences resolve last-event-wins: every call applies
// in the order it acquires the controller lock, SetCompany clears any preview,
// and reads always use the selection as it is after the latest call.
package selection

import (
	"log/slog"
	"sync"

	"leetbot-cli/internal/api"
	"leetbot-cli/internal/model"
	"leetbot-cli/internal/prefs"
	"leetbot-cli/internal/queries"
	"leetbot-cli/internal/query"
)

type Selection struct {
	Company   string
	Timeframe string
	// PreviewCompany overrides Company for fetches. It is never persisted.
	PreviewCompany string
}

// ActiveCompany is the company every read is issued for.
func (s Selection) ActiveCompany() string {
	if s.PreviewCompany != "" {
		return s.PreviewCompany
	}
	return s.Company
}

// ProblemsEnabled reports whether problems may be read: only a confirmed
// company together with a timeframe qualifies; a preview alone never does.
func (s Selection) ProblemsEnabled() bool {
	return s.Company != "" && s.Timeframe != ""
}

// View is what a renderer needs to draw the current state.
type View struct {
	Selection

	Companies  query.Result
	Timeframes query.Result
	Problems   query.Result

	ProblemsEnabled bool
	Loading         bool
	// Error is the first failure among companies, timeframes and problems.
	Error string
}

func (v View) CompanyList() []string   { return queries.Strings(v.Companies) }
func (v View) TimeframeList() []string { return queries.Strings(v.Timeframes) }

func (v View) ProblemList() (model.ProblemList, bool) {
	if !v.ProblemsEnabled {
		return model.ProblemList{}, false
	}
	return queries.Problems(v.Problems)
}

// Prefs is the subset of the preference store the controller needs.
type Prefs interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

type Options struct {
	Logger *slog.Logger
}

type Controller struct {
	cache *query.Cache
	q     *queries.Set
	prefs Prefs
	log   *slog.Logger

	mu  sync.Mutex
	sel Selection

	cacheSub int
	events   <-chan query.Event
	wg       sync.WaitGroup
	started  bool

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan View
}

// New restores the durable selection from p. It issues no reads until Start.
func New(cache *query.Cache, q *queries.Set, p Prefs, opts Options) *Controller {
	c := &Controller{
		cache: cache,
		q:     q,
		prefs: p,
		log:   opts.Logger,
		subs:  map[int]chan View{},
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	if p != nil {
		c.sel.Company, _ = p.Get(prefs.KeySelectedCompany)
		c.sel.Timeframe, _ = p.Get(prefs.KeySelectedTimeframe)
	}
	return c
}

// Start begins following cache events and issues the initial reads.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.cacheSub, c.events = c.cache.Subscribe(256)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop()
	c.sync()
}

// Close stops following cache events.
func (c *Controller) Close() {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()
	if !started {
		return
	}
	c.cache.Unsubscribe(c.cacheSub)
	c.wg.Wait()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subsMu.Unlock()
}

func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// SetCompany confirms company, clears any preview and reads its timeframes.
func (c *Controller) SetCompany(company string) {
	c.mu.Lock()
	c.sel.Company = company
	c.sel.PreviewCompany = ""
	c.persistLocked(prefs.KeySelectedCompany, company)
	c.mu.Unlock()
	c.log.Debug("company selected", "company", company)
	c.sync()
}

// Preview sets (or with "" clears) the preview company. The confirmed company
// and the persisted selection are untouched.
func (c *Controller) Preview(company string) {
	c.mu.Lock()
	if c.sel.PreviewCompany == company {
		c.mu.Unlock()
		return
	}
	c.sel.PreviewCompany = company
	c.mu.Unlock()
	c.sync()
}

// SetTimeframe sets the timeframe. Timeframes are not refetched.
func (c *Controller) SetTimeframe(timeframe string) {
	c.mu.Lock()
	c.sel.Timeframe = timeframe
	c.persistLocked(prefs.KeySelectedTimeframe, timeframe)
	c.mu.Unlock()
	c.log.Debug("timeframe selected", "timeframe", timeframe)
	c.sync()
}

// Clear resets the whole selection.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.sel = Selection{}
	c.persistLocked(prefs.KeySelectedCompany, "")
	c.persistLocked(prefs.KeySelectedTimeframe, "")
	c.mu.Unlock()
	c.sync()
}

// Refresh invalidates all three families and re-reads the active keys.
func (c *Controller) Refresh() {
	c.cache.Invalidate(queries.CompaniesKey())
	c.cache.Invalidate(query.NewKey(queries.FamilyTimeframes))
	c.cache.Invalidate(query.NewKey(queries.FamilyProblems))
	c.sync()
}

func (c *Controller) persistLocked(key, value string) {
	if c.prefs == nil {
		return
	}
	if value == "" {
		c.prefs.Delete(key)
		return
	}
	c.prefs.Set(key, value)
}

// sync reads every key the current selection depends on, enforces the
// timeframe invariant against an already cached list, and publishes a View.
func (c *Controller) sync() {
	sel := c.Selection()

	c.q.Companies().Read(c.cache)
	if active := sel.ActiveCompany(); active != "" {
		r := c.q.Timeframes(active).Read(c.cache)
		if c.enforce(r) {
			sel = c.Selection()
		}
	}
	if sel.ProblemsEnabled() {
		c.q.Problems(sel.ActiveCompany(), sel.Timeframe).Read(c.cache)
	}
	c.publish(c.View())
}

// enforce clears the timeframe when r is a resolved timeframe list for the
// active company that does not contain it. It reports whether it did.
func (c *Controller) enforce(r query.Result) bool {
	if r.Status != query.StatusSuccess || !r.HasValue {
		return false
	}
	list := queries.Strings(r)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !r.Key.Equal(queries.TimeframesKey(c.sel.ActiveCompany())) {
		return false
	}
	if c.sel.Timeframe == "" || model.ContainsTimeframe(list, c.sel.Timeframe) {
		return false
	}
	c.log.Info("clearing timeframe missing from company's list",
		"company", c.sel.ActiveCompany(), "timeframe", c.sel.Timeframe)
	c.sel.Timeframe = ""
	c.persistLocked(prefs.KeySelectedTimeframe, "")
	return true
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for ev := range c.events {
		if !c.relevant(ev.Key) {
			continue
		}
		if ev.Key.Family == queries.FamilyTimeframes {
			// Re-read rather than trust the payload: events can be dropped or reordered.
			if r, ok := c.cache.Peek(ev.Key); ok {
				c.enforce(r)
			}
		}
		c.publish(c.View())
	}
}

func (c *Controller) relevant(k query.Key) bool {
	sel := c.Selection()
	switch k.Family {
	case queries.FamilyCompanies:
		return true
	case queries.FamilyTimeframes:
		return k.Equal(queries.TimeframesKey(sel.ActiveCompany()))
	case queries.FamilyProblems:
		return sel.ProblemsEnabled() && k.Equal(queries.ProblemsKey(sel.ActiveCompany(), sel.Timeframe))
	}
	return false
}

// View builds the current state from the cache without issuing reads.
func (c *Controller) View() View {
	sel := c.Selection()
	v := View{Selection: sel, ProblemsEnabled: sel.ProblemsEnabled()}

	v.Companies, _ = c.cache.Peek(queries.CompaniesKey())
	results := []query.Result{v.Companies}
	if active := sel.ActiveCompany(); active != "" {
		v.Timeframes, _ = c.cache.Peek(queries.TimeframesKey(active))
		results = append(results, v.Timeframes)
	}
	if v.ProblemsEnabled {
		v.Problems, _ = c.cache.Peek(queries.ProblemsKey(sel.ActiveCompany(), sel.Timeframe))
		results = append(results, v.Problems)
	}

	for _, r := range results {
		if !r.HasValue && r.Status == query.StatusPending {
			v.Loading = true
		}
		if v.Error == "" && r.Status == query.StatusError {
			v.Error = api.Message(r.Err)
		}
	}
	return v
}

// Subscribe returns a channel receiving a View after every change. Slow
// subscribers drop views; the latest one is always available from View.
func (c *Controller) Subscribe(bufSize int) (int, <-chan View) {
	ch := make(chan View, bufSize)
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

func (c *Controller) publish(v View) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
		}
	}
}
