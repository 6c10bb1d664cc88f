package queries

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"leetbot-cli/internal/model"
	"leetbot-cli/internal/query"
)

type stubGateway struct{}

func (stubGateway) ListCompanies(ctx context.Context) ([]string, error) {
	return []string{"amazon", "google"}, nil
}

func (stubGateway) ListTimeframes(ctx context.Context, company string) ([]string, error) {
	return []string{"all", company}, nil
}

func (stubGateway) ListProblems(ctx context.Context, company, timeframe string) (model.ProblemList, error) {
	return model.ProblemList{Company: company, Timeframe: timeframe, Count: 0, Problems: []model.Problem{}}, nil
}

func TestSet_DescriptorsUseFamilyStaleTimes(t *testing.T) {
	t.Parallel()

	s := New(stubGateway{}, query.DefaultOptions(), DefaultStaleTimes())
	if got := s.Companies().Options.StaleTime; got != 10*time.Minute {
		t.Fatalf("companies stale=%v", got)
	}
	if got := s.Timeframes("google").Options.StaleTime; got != 5*time.Minute {
		t.Fatalf("timeframes stale=%v", got)
	}
	if got := s.Problems("google", "all").Options.StaleTime; got != 2*time.Minute {
		t.Fatalf("problems stale=%v", got)
	}
	if !s.Problems("google", "all").Key.HasPrefix(query.NewKey(FamilyProblems, "google")) {
		t.Fatal("problems key should be scoped by company")
	}
}

func TestDescriptor_GetThroughCache(t *testing.T) {
	t.Parallel()

	c := query.New(query.Config{})
	defer c.Close()
	s := New(stubGateway{}, query.DefaultOptions(), DefaultStaleTimes())

	v, err := s.Timeframes("google").Get(context.Background(), c)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tfs, _ := v.([]string); len(tfs) != 2 || tfs[1] != "google" {
		t.Fatalf("unexpected value %#v", v)
	}
	r := s.Timeframes("google").Read(c)
	if got := Strings(r); len(got) != 2 {
		t.Fatalf("Strings=%v", got)
	}

	v, err = s.Problems("google", "all").Get(context.Background(), c)
	if err != nil {
		t.Fatalf("Get problems: %v", err)
	}
	pr, _ := c.Peek(ProblemsKey("google", "all"))
	if pl, ok := Problems(pr); !ok || pl.Company != "google" {
		t.Fatalf("Problems=%+v,%v (value %#v)", pl, ok, v)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	v, err := Decode(FamilyTimeframes, json.RawMessage(`["all","six-months"]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tfs := v.([]string); len(tfs) != 2 {
		t.Fatalf("unexpected %v", tfs)
	}

	v, err = Decode(FamilyProblems, json.RawMessage(`{"company":"google","timeframe":"all","problems":[{"id":1,"title":"Two Sum","difficulty":"Easy"}],"count":1}`))
	if err != nil {
		t.Fatalf("decode problems: %v", err)
	}
	if pl := v.(model.ProblemList); pl.Count != 1 || pl.Problems[0].Difficulty != model.DifficultyEasy {
		t.Fatalf("unexpected %+v", pl)
	}

	if _, err := Decode("bogus", json.RawMessage(`[]`)); err == nil {
		t.Fatal("expected error for unknown family")
	}
}

type latestGateway struct{ stubGateway }

func (latestGateway) ListCompanyProblems(ctx context.Context, company string) (model.ProblemList, error) {
	return model.ProblemList{Company: company, Timeframe: "thirty-days"}, nil
}

func TestSet_CompanyProblemsNeedsCapableGateway(t *testing.T) {
	t.Parallel()

	if _, ok := New(stubGateway{}, query.DefaultOptions(), DefaultStaleTimes()).CompanyProblems("google"); ok {
		t.Fatal("stub gateway cannot list company problems")
	}

	c := query.New(query.Config{})
	defer c.Close()
	d, ok := New(latestGateway{}, query.DefaultOptions(), DefaultStaleTimes()).CompanyProblems("google")
	if !ok {
		t.Fatal("expected descriptor")
	}
	v, err := d.Get(context.Background(), c)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pl := v.(model.ProblemList); pl.Timeframe != "thirty-days" {
		t.Fatalf("unexpected %+v", pl)
	}
}
