// Package queries describes the three API reads as query cache descriptors:
// the key, the fetch against the gateway, and the freshness options.
package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leetbot-cli/internal/api"
	"leetbot-cli/internal/model"
	"leetbot-cli/internal/query"
)

const (
	FamilyCompanies  = "companies"
	FamilyTimeframes = "timeframes"
	FamilyProblems   = "problems"
	// FamilyCompanyProblems holds the server's pick of the most recent
	// timeframe with data for a company.
	FamilyCompanyProblems = "company-problems"
)

// CompanyProblemsLister is implemented by gateways that can let the server
// choose the timeframe.
type CompanyProblemsLister interface {
	ListCompanyProblems(ctx context.Context, company string) (model.ProblemList, error)
}

// StaleTimes are the per-family freshness windows.
type StaleTimes struct {
	Companies  time.Duration
	Timeframes time.Duration
	Problems   time.Duration
}

func DefaultStaleTimes() StaleTimes {
	return StaleTimes{
		Companies:  10 * time.Minute,
		Timeframes: query.DefaultStaleTime,
		Problems:   2 * time.Minute,
	}
}

// Descriptor is everything the cache needs for one read.
type Descriptor struct {
	Key     query.Key
	Fetch   query.FetchFunc
	Options query.Options
}

func (d Descriptor) Read(c *query.Cache) query.Result {
	return c.Read(d.Key, d.Fetch, d.Options)
}

func (d Descriptor) Get(ctx context.Context, c *query.Cache) (any, error) {
	return c.Get(ctx, d.Key, d.Fetch, d.Options)
}

// Set builds descriptors bound to one gateway.
type Set struct {
	gw    api.Gateway
	base  query.Options
	stale StaleTimes
}

func New(gw api.Gateway, base query.Options, stale StaleTimes) *Set {
	return &Set{gw: gw, base: base, stale: stale}
}

func CompaniesKey() query.Key { return query.NewKey(FamilyCompanies) }

func TimeframesKey(company string) query.Key { return query.NewKey(FamilyTimeframes, company) }

func ProblemsKey(company, timeframe string) query.Key {
	return query.NewKey(FamilyProblems, company, timeframe)
}

func (s *Set) Companies() Descriptor {
	return Descriptor{
		Key: CompaniesKey(),
		Fetch: func(ctx context.Context) (any, error) {
			return s.gw.ListCompanies(ctx)
		},
		Options: s.base.WithStaleTime(s.stale.Companies),
	}
}

func (s *Set) Timeframes(company string) Descriptor {
	return Descriptor{
		Key: TimeframesKey(company),
		Fetch: func(ctx context.Context) (any, error) {
			return s.gw.ListTimeframes(ctx, company)
		},
		Options: s.base.WithStaleTime(s.stale.Timeframes),
	}
}

func (s *Set) Problems(company, timeframe string) Descriptor {
	return Descriptor{
		Key: ProblemsKey(company, timeframe),
		Fetch: func(ctx context.Context) (any, error) {
			return s.gw.ListProblems(ctx, company, timeframe)
		},
		Options: s.base.WithStaleTime(s.stale.Problems),
	}
}

// CompanyProblems reads problems for company's most recent timeframe with
// data. ok is false when the gateway cannot do that.
func (s *Set) CompanyProblems(company string) (d Descriptor, ok bool) {
	l, ok := s.gw.(CompanyProblemsLister)
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{
		Key: query.NewKey(FamilyCompanyProblems, company),
		Fetch: func(ctx context.Context) (any, error) {
			return l.ListCompanyProblems(ctx, company)
		},
		Options: s.base.WithStaleTime(s.stale.Problems),
	}, true
}

// Strings returns a companies or timeframes value.
func Strings(r query.Result) []string {
	v, _ := r.Value.([]string)
	return v
}

// Problems returns a problems value.
func Problems(r query.Result) (model.ProblemList, bool) {
	v, ok := r.Value.(model.ProblemList)
	return v, ok
}

// Decode restores a persisted value for family.
func Decode(family string, raw json.RawMessage) (any, error) {
	switch family {
	case FamilyCompanies, FamilyTimeframes:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v == nil {
			v = []string{}
		}
		return v, nil
	case FamilyProblems, FamilyCompanyProblems:
		var v model.ProblemList
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown query family %q", family)
	}
}
