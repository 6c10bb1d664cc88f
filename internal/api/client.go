// Package api is the HTTP gateway to the leetbot problems API.
//
// Every operation is an idempotent GET. The gateway never retries; retry policy
// belongs to the query cache sitting on top of it.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leetbot-cli/internal/model"
)

const DefaultBaseURL = "https://leetbot.org"

// Gateway is the read surface the rest of the client depends on.
type Gateway interface {
	ListCompanies(ctx context.Context) ([]string, error)
	ListTimeframes(ctx context.Context, company string) ([]string, error)
	ListProblems(ctx context.Context, company, timeframe string) (model.ProblemList, error)
}

var _ Gateway = (*Client)(nil)

// Client talks to the API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Timeouts live in the transport, not in the cache.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates an API client for baseURL (scheme + host, optionally a path prefix).
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 30 * time.Second,
		},
		userAgent: "leetbot-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type companiesData struct {
	Companies []string `json:"companies"`
}

type timeframesData struct {
	Timeframes []string `json:"timeframes"`
}

// ListCompanies returns the ordered company slugs.
func (c *Client) ListCompanies(ctx context.Context) ([]string, error) {
	var out companiesData
	if err := c.get(ctx, OpListCompanies, "/api/companies", &out); err != nil {
		return nil, err
	}
	return nonNil(out.Companies), nil
}

// ListTimeframes returns the timeframes that have data for company.
func (c *Client) ListTimeframes(ctx context.Context, company string) ([]string, error) {
	var out timeframesData
	p := "/api/companies/" + url.PathEscape(company) + "/timeframes"
	if err := c.get(ctx, OpListTimeframes, p, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Timeframes), nil
}

// ListProblems returns the problems asked at company within timeframe.
func (c *Client) ListProblems(ctx context.Context, company, timeframe string) (model.ProblemList, error) {
	var out model.ProblemList
	p := "/api/companies/" + url.PathEscape(company) + "/timeframes/" + url.PathEscape(timeframe) + "/problems"
	if err := c.get(ctx, OpListProblems, p, &out); err != nil {
		return model.ProblemList{}, err
	}
	if out.Problems == nil {
		out.Problems = []model.Problem{}
	}
	return out, nil
}

// ListCompanyProblems lets the server pick the most recent timeframe that has data
// for company; the chosen timeframe is reported in the result.
func (c *Client) ListCompanyProblems(ctx context.Context, company string) (model.ProblemList, error) {
	var out model.ProblemList
	p := "/api/companies/" + url.PathEscape(company) + "/problems"
	if err := c.get(ctx, OpListCompanyProblems, p, &out); err != nil {
		return model.ProblemList{}, err
	}
	if out.Problems == nil {
		out.Problems = []model.Problem{}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op Op, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return newFailure(op, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newFailure(op, 0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return newFailure(op, resp.StatusCode, "", fmt.Errorf("reading body: %w", err))
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Error envelopes are honoured on any status; otherwise fall back to the default.
		serverMsg := ""
		if decodeErr == nil {
			serverMsg = env.Error
		}
		return newFailure(op, resp.StatusCode, serverMsg, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return newFailure(op, resp.StatusCode, "", fmt.Errorf("decoding envelope: %w", decodeErr))
	}
	if !env.Success {
		return newFailure(op, resp.StatusCode, env.Error, nil)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return newFailure(op, resp.StatusCode, env.Error, fmt.Errorf("missing data"))
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return newFailure(op, resp.StatusCode, "", fmt.Errorf("decoding data: %w", err))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
