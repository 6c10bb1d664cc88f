package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leetbot-cli/internal/api"
	"leetbot-cli/internal/model"
	"leetbot-cli/internal/prefs"
	"leetbot-cli/internal/queries"
	"leetbot-cli/internal/query"
	"leetbot-cli/internal/store"
	"leetbot-cli/internal/theme"
)

type countingGateway struct {
	mu          sync.Mutex
	calls       map[string]int
	problemsErr error
}

func newCountingGateway() *countingGateway {
	return &countingGateway{calls: map[string]int{}}
}

func (g *countingGateway) hit(k string) {
	g.mu.Lock()
	g.calls[k]++
	g.mu.Unlock()
}

func (g *countingGateway) count(k string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[k]
}

func (g *countingGateway) ListCompanies(ctx context.Context) ([]string, error) {
	g.hit("companies")
	return []string{"amazon", "google"}, nil
}

func (g *countingGateway) ListTimeframes(ctx context.Context, company string) ([]string, error) {
	g.hit("timeframes/" + company)
	return []string{"all", "six-months"}, nil
}

func (g *countingGateway) ListProblems(ctx context.Context, company, timeframe string) (model.ProblemList, error) {
	g.hit("problems/" + company + "/" + timeframe)
	if g.problemsErr != nil {
		return model.ProblemList{}, g.problemsErr
	}
	return model.ProblemList{Company: company, Timeframe: timeframe, Count: 1, Problems: []model.Problem{{ID: 1, Title: "Two Sum"}}}, nil
}

func testDeps(gw api.Gateway, dir string) Deps {
	opts := query.DefaultOptions()
	opts.RetryDelay = 0
	return Deps{
		Gateway:    gw,
		Prefs:      store.FileBackend{Dir: dir},
		Snapshots:  store.FileBackend{Dir: dir},
		Options:    opts,
		ThemeProbe: func() (theme.Theme, bool) { return "", false },
	}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func seed(t *testing.T, dir string, stored map[string]string) {
	t.Helper()
	ctx := context.Background()
	fresh := time.Now().UTC()
	rows := []store.QueryRow{
		{Family: queries.FamilyCompanies, Value: []byte(`["amazon","google"]`), FetchedAt: fresh},
		{Family: queries.FamilyTimeframes, Params: []string{"google"}, Value: []byte(`["all","six-months"]`), FetchedAt: fresh},
		{Family: queries.FamilyProblems, Params: []string{"google", "all"}, Value: []byte(`{"company":"google","timeframe":"all","problems":[],"count":0}`), FetchedAt: fresh},
	}
	if err := (store.FileBackend{Dir: dir}).SaveQueries(ctx, rows); err != nil {
		t.Fatalf("seed queries: %v", err)
	}
	if len(stored) > 0 {
		p := prefs.Open(ctx, store.FileBackend{Dir: dir}, prefs.Options{})
		for k, v := range stored {
			p.Set(k, v)
		}
		p.Close(ctx)
	}
}

func TestStart_InvalidatesSelectionFamiliesWhenSelectionPersisted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seed(t, dir, map[string]string{
		prefs.KeySelectedCompany:   "google",
		prefs.KeySelectedTimeframe: "all",
	})
	gw := newCountingGateway()
	s := New(context.Background(), testDeps(gw, dir))
	defer s.Close(context.Background())

	s.Start(context.Background())
	waitUntil(t, "refetch", func() bool {
		return gw.count("timeframes/google") == 1 && gw.count("problems/google/all") == 1
	})
	if n := gw.count("companies"); n != 0 {
		t.Fatalf("fresh companies snapshot should be served from cache; got %d fetches", n)
	}

	// A second Start is a no-op.
	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if n := gw.count("timeframes/google"); n != 1 {
		t.Fatalf("startup invalidation ran twice: %d fetches", n)
	}
}

func TestStart_NoPersistedSelectionKeepsSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seed(t, dir, nil)
	gw := newCountingGateway()
	s := New(context.Background(), testDeps(gw, dir))
	defer s.Close(context.Background())

	s.Start(context.Background())
	tfs, err := s.Timeframes(context.Background(), "google")
	if err != nil || len(tfs) != 2 {
		t.Fatalf("Timeframes=%v,%v", tfs, err)
	}
	if n := gw.count("timeframes/google"); n != 0 {
		t.Fatalf("expected snapshot hit; got %d fetches", n)
	}
}

func TestClose_SavesSnapshotAndPrefsForNextLaunch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	gw := newCountingGateway()

	s := New(ctx, testDeps(gw, dir))
	s.Start(ctx)
	s.Selection().SetCompany("google")
	s.Selection().SetTimeframe("six-months")
	if err := s.Prefetch(ctx); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	s.Close(ctx)

	gw2 := newCountingGateway()
	s2 := New(ctx, testDeps(gw2, dir))
	defer s2.Close(ctx)
	sel := s2.Selection().Selection()
	if sel.Company != "google" || sel.Timeframe != "six-months" {
		t.Fatalf("restored selection=%+v", sel)
	}
	s2.Start(ctx)
	companies, err := s2.Companies(ctx)
	if err != nil || len(companies) != 2 {
		t.Fatalf("Companies=%v,%v", companies, err)
	}
	if n := gw2.count("companies"); n != 0 {
		t.Fatalf("companies should come from the saved snapshot; got %d fetches", n)
	}
}

func TestPrefetch_ReturnsFirstFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := newCountingGateway()
	gw.problemsErr = &api.RemoteFailure{Op: api.OpListProblems, Message: "No problems found for company: google, timeframe: all"}
	dir := t.TempDir()
	p := prefs.Open(ctx, store.FileBackend{Dir: dir}, prefs.Options{})
	p.Set(prefs.KeySelectedCompany, "google")
	p.Set(prefs.KeySelectedTimeframe, "all")
	p.Close(ctx)

	// Not started: Prefetch issues the only reads.
	s := New(ctx, testDeps(gw, dir))
	defer s.Close(ctx)
	err := s.Prefetch(ctx)
	if !api.IsNoProblemsFound(err) {
		t.Fatalf("Prefetch err=%v", err)
	}
	var rf *api.RemoteFailure
	if !errors.As(err, &rf) {
		t.Fatalf("expected RemoteFailure; got %T", err)
	}
	if n := gw.count("problems/google/all"); n != 1 {
		t.Fatalf("no-problems failure must not be retried; got %d fetches", n)
	}
}

func TestSession_ThemeUsesSessionPrefs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	d := testDeps(newCountingGateway(), dir)
	d.ThemeProbe = func() (theme.Theme, bool) { return theme.Dark, true }

	s := New(ctx, d)
	if s.Theme().Theme() != theme.Dark {
		t.Fatalf("theme=%q; want dark", s.Theme().Theme())
	}
	s.Theme().Toggle()
	s.Close(ctx)

	s2 := New(ctx, d)
	defer s2.Close(ctx)
	if s2.Theme().Theme() != theme.Light {
		t.Fatalf("theme after relaunch=%q; want light", s2.Theme().Theme())
	}
}

func TestBlockingReadsApplyStartupInvalidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	seed(t, dir, map[string]string{prefs.KeySelectedCompany: "google"})
	gw := newCountingGateway()
	s := New(ctx, testDeps(gw, dir))
	defer s.Close(ctx)

	if _, err := s.Timeframes(ctx, "google"); err != nil {
		t.Fatalf("Timeframes: %v", err)
	}
	// The hydrated list is served (stale) while it refreshes in the background.
	waitUntil(t, "refresh", func() bool { return gw.count("timeframes/google") == 1 })
	if _, err := s.Companies(ctx); err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if n := gw.count("companies"); n != 0 {
		t.Fatalf("companies are not part of the startup invalidation; got %d fetches", n)
	}
}
