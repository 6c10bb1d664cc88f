// Package session owns one client session: the query cache, the gateway,
// the preference store and the theme and selection controllers built on them.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"leetbot-cli/internal/api"
	"leetbot-cli/internal/model"
	"leetbot-cli/internal/prefs"
	"leetbot-cli/internal/queries"
	"leetbot-cli/internal/query"
	"leetbot-cli/internal/selection"
	"leetbot-cli/internal/store"
	"leetbot-cli/internal/theme"
)

// SnapshotStore persists the query cache between launches.
type SnapshotStore interface {
	LoadQueries(ctx context.Context) ([]store.QueryRow, error)
	SaveQueries(ctx context.Context, rows []store.QueryRow) error
}

type Deps struct {
	Gateway api.Gateway
	Prefs   prefs.Backend
	// Snapshots is optional; nil disables cache persistence.
	Snapshots SnapshotStore

	Cache query.Config
	// Options is the base for every read; the zero value means query.DefaultOptions.
	Options    query.Options
	StaleTimes queries.StaleTimes
	FlushDelay time.Duration

	ThemeProbe    theme.Probe
	ThemeAppliers []theme.Applier

	Logger *slog.Logger
}

type Session struct {
	log       *slog.Logger
	gw        api.Gateway
	cache     *query.Cache
	q         *queries.Set
	prefs     *prefs.Store
	theme     *theme.Controller
	sel       *selection.Controller
	snapshots SnapshotStore

	prepareOnce sync.Once
	startOnce   sync.Once
	closeOnce   sync.Once
}

// New builds a session: it restores the persisted query snapshot, loads
// preferences and resolves the theme. It issues no API reads.
func New(ctx context.Context, d Deps) *Session {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	opts := d.Options
	if opts.StaleTime == 0 && opts.Retries == 0 && opts.RetryDelay == 0 && opts.ShouldRetry == nil {
		opts = query.DefaultOptions()
	}
	stale := d.StaleTimes
	if stale == (queries.StaleTimes{}) {
		stale = queries.DefaultStaleTimes()
	}
	cacheCfg := d.Cache
	if cacheCfg.Logger == nil {
		cacheCfg.Logger = log.With("component", "query")
	}

	s := &Session{
		log:       log,
		gw:        d.Gateway,
		cache:     query.New(cacheCfg),
		snapshots: d.Snapshots,
	}
	s.q = queries.New(d.Gateway, opts, stale)
	s.prefs = prefs.Open(ctx, d.Prefs, prefs.Options{FlushDelay: d.FlushDelay, Logger: log.With("component", "prefs")})
	s.theme = theme.NewController(theme.Options{
		Prefs:    s.prefs,
		Probe:    d.ThemeProbe,
		Appliers: d.ThemeAppliers,
		Logger:   log.With("component", "theme"),
	})
	s.sel = selection.New(s.cache, s.q, s.prefs, selection.Options{Logger: log.With("component", "selection")})
	s.restore(ctx)
	return s
}

func (s *Session) Gateway() api.Gateway             { return s.gw }
func (s *Session) Cache() *query.Cache              { return s.cache }
func (s *Session) Queries() *queries.Set            { return s.q }
func (s *Session) Prefs() *prefs.Store              { return s.prefs }
func (s *Session) Theme() *theme.Controller         { return s.theme }
func (s *Session) Selection() *selection.Controller { return s.sel }

// PrepareReads applies the startup invalidation exactly once: when a
// selection was persisted, the timeframes and problems families are
// invalidated so a relaunch never shows lists cached under an earlier
// selection. Call it before the first read; Start does.
func (s *Session) PrepareReads() {
	s.prepareOnce.Do(func() {
		sel := s.sel.Selection()
		if sel.Company == "" && sel.Timeframe == "" {
			return
		}
		n := s.cache.Invalidate(query.NewKey(queries.FamilyTimeframes))
		n += s.cache.Invalidate(query.NewKey(queries.FamilyProblems))
		s.log.Debug("startup invalidation", "entries", n)
	})
}

// Start prepares reads and starts the selection controller, which issues the
// reads the persisted selection needs. Only the first call has an effect.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.PrepareReads()
		s.sel.Start()
	})
}

// Prefetch blocks until companies and the current selection's timeframes and
// problems are loaded, fetching them concurrently. It returns the first error.
func (s *Session) Prefetch(ctx context.Context) error {
	s.PrepareReads()
	sel := s.sel.Selection()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.q.Companies().Get(gctx, s.cache)
		return err
	})
	if active := sel.ActiveCompany(); active != "" {
		g.Go(func() error {
			_, err := s.q.Timeframes(active).Get(gctx, s.cache)
			return err
		})
	}
	if sel.ProblemsEnabled() {
		g.Go(func() error {
			_, err := s.q.Problems(sel.ActiveCompany(), sel.Timeframe).Get(gctx, s.cache)
			return err
		})
	}
	return g.Wait()
}

// Companies, Timeframes and Problems are blocking reads for scripted use.
func (s *Session) Companies(ctx context.Context) ([]string, error) {
	s.PrepareReads()
	v, err := s.q.Companies().Get(ctx, s.cache)
	if err != nil {
		return nil, err
	}
	out, _ := v.([]string)
	return out, nil
}

func (s *Session) Timeframes(ctx context.Context, company string) ([]string, error) {
	s.PrepareReads()
	v, err := s.q.Timeframes(company).Get(ctx, s.cache)
	if err != nil {
		return nil, err
	}
	out, _ := v.([]string)
	return out, nil
}

func (s *Session) Problems(ctx context.Context, company, timeframe string) (model.ProblemList, error) {
	s.PrepareReads()
	v, err := s.q.Problems(company, timeframe).Get(ctx, s.cache)
	if err != nil {
		return model.ProblemList{}, err
	}
	out, _ := v.(model.ProblemList)
	return out, nil
}

// LatestProblems reads problems for company's most recent timeframe with data.
func (s *Session) LatestProblems(ctx context.Context, company string) (model.ProblemList, error) {
	s.PrepareReads()
	d, ok := s.q.CompanyProblems(company)
	if !ok {
		return model.ProblemList{}, fmt.Errorf("gateway %T cannot pick a timeframe; pass one explicitly", s.gw)
	}
	v, err := d.Get(ctx, s.cache)
	if err != nil {
		return model.ProblemList{}, err
	}
	out, _ := v.(model.ProblemList)
	return out, nil
}

// Close stops the controllers, saves the cache snapshot and flushes
// preferences. Both writes are best effort.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.sel.Close()
		s.save(ctx)
		s.cache.Close()
		s.prefs.Close(ctx)
	})
}

func (s *Session) restore(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	rows, err := s.snapshots.LoadQueries(ctx)
	if err != nil {
		s.log.Warn("query snapshot load failed", "error", err)
		return
	}
	snaps := make([]query.Snapshot, 0, len(rows))
	for _, r := range rows {
		v, err := queries.Decode(r.Family, r.Value)
		if err != nil {
			s.log.Debug("skipping snapshot row", "family", r.Family, "error", err)
			continue
		}
		snaps = append(snaps, query.Snapshot{Key: query.NewKey(r.Family, r.Params...), Value: v, FetchedAt: r.FetchedAt})
	}
	n := s.cache.Hydrate(snaps)
	s.log.Debug("query snapshot restored", "entries", n)
}

func (s *Session) save(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	rows, err := encodeSnapshots(s.cache.Snapshot())
	if err != nil {
		s.log.Warn("query snapshot encode failed", "error", err)
		return
	}
	if err := s.snapshots.SaveQueries(ctx, rows); err != nil {
		s.log.Warn("query snapshot save failed", "error", err)
	}
}

func encodeSnapshots(snaps []query.Snapshot) ([]store.QueryRow, error) {
	rows := make([]store.QueryRow, 0, len(snaps))
	for _, sn := range snaps {
		raw, err := json.Marshal(sn.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", sn.Key.Display(), err)
		}
		rows = append(rows, store.QueryRow{
			Family:    sn.Key.Family,
			Params:    sn.Key.Params,
			Value:     raw,
			FetchedAt: sn.FetchedAt,
		})
	}
	return rows, nil
}
