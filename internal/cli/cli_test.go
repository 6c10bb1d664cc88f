package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeAPI serves a small fixed dataset in the API's envelope format and
// counts requests per path.
type fakeAPI struct {
	mu   sync.Mutex
	hits map[string]int
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	ok := func(data string) {
		_, _ = w.Write([]byte(`{"success":true,"data":` + data + `}`))
	}
	problems := `[
		{"id":1,"url":"https://leetcode.com/problems/two-sum","title":"Two Sum","difficulty":"Easy","acceptance":49.1,"frequency":88.2},
		{"id":42,"url":"https://leetcode.com/problems/trapping-rain-water","title":"Trapping Rain Water","difficulty":"Hard","acceptance":59.3,"frequency":71.0},
		{"id":146,"url":"https://leetcode.com/problems/lru-cache","title":"LRU Cache","difficulty":"Medium","acceptance":40.2,"frequency":65.5}
	]`

	switch r.URL.Path {
	case "/api/companies":
		ok(`{"companies":["google","meta","stripe"]}`)
	case "/api/companies/google/timeframes":
		ok(`{"timeframes":["thirty-days","six-months","all"]}`)
	case "/api/companies/meta/timeframes":
		ok(`{"timeframes":["all"]}`)
	case "/api/companies/stripe/timeframes":
		ok(`{"timeframes":["all"]}`)
	case "/api/companies/google/timeframes/thirty-days/problems":
		ok(`{"company":"google","timeframe":"thirty-days","problems":` + problems + `,"count":3}`)
	case "/api/companies/google/problems":
		ok(`{"company":"google","timeframe":"thirty-days","problems":` + problems + `,"count":3}`)
	case "/api/companies/stripe/timeframes/all/problems":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"No problems found for stripe"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"Company not found"}`))
	}
}

type testEnv struct {
	api   *fakeAPI
	url   string
	state string
	conf  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	f := &fakeAPI{hits: map[string]int{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	conf := filepath.Join(dir, "config.yaml")
	// No retries keeps failure paths fast.
	if err := os.WriteFile(conf, []byte("cache:\n  retries: 0\n  persist: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &testEnv{api: f, url: srv.URL, state: filepath.Join(dir, "state"), conf: conf}
}

func (e *testEnv) run(t *testing.T, args ...string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	base := []string{"--config", e.conf, "--api-url", e.url, "--state-dir", e.state}
	return runCLI(t, append(base, args...))
}

func (e *testEnv) mustData(t *testing.T, args ...string) any {
	t.Helper()
	stdout, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("leetbot %v: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v\nstdout:\n%s", err, stdout)
	}
	data, ok := env["data"]
	if !ok {
		t.Fatalf("expected data key; got %v", env)
	}
	return data
}

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func TestCompanies_JSONEnvelopeAndTable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data := env.mustData(t, "companies").(map[string]any)
	got, _ := data["companies"].([]any)
	if len(got) != 3 || got[0] != "google" {
		t.Fatalf("unexpected companies: %v", data)
	}

	stdout, stderr, err := env.run(t, "--format", "table", "companies")
	if err != nil {
		t.Fatalf("table: %v\n%s", err, stderr)
	}
	if !strings.Contains(string(stdout), "stripe") || !strings.Contains(string(stdout), "Company") {
		t.Fatalf("expected table output; got:\n%s", stdout)
	}
}

func TestProblems_NormalizesTimeframeAndFilters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data := env.mustData(t, "problems", "Google", "30d", "--difficulty", "hard").(map[string]any)
	if data["timeframe"] != "thirty-days" {
		t.Fatalf("expected thirty-days; got %v", data["timeframe"])
	}
	problems, _ := data["problems"].([]any)
	if len(problems) != 1 {
		t.Fatalf("expected 1 hard problem; got %v", problems)
	}
	if title := problems[0].(map[string]any)["title"]; title != "Trapping Rain Water" {
		t.Fatalf("unexpected problem %v", title)
	}

	data = env.mustData(t, "problems", "google", "thirty-days", "--limit", "2").(map[string]any)
	if n, _ := data["count"].(float64); n != 2 {
		t.Fatalf("expected count 2; got %v", data["count"])
	}
}

func TestProblems_RejectsTimeframeTheCompanyLacks(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, stderr, err := env.run(t, "problems", "meta", "thirty-days")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(string(stderr), "available: all") {
		t.Fatalf("expected available timeframes in error; got %q", stderr)
	}
	if env.api.count("/api/companies/meta/timeframes/thirty-days/problems") != 0 {
		t.Fatalf("problems must not be requested for an unavailable timeframe")
	}
}

func TestProblems_WithoutTimeframeUsesLatest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data := env.mustData(t, "problems", "google").(map[string]any)
	if data["timeframe"] != "thirty-days" {
		t.Fatalf("expected server-chosen timeframe; got %v", data["timeframe"])
	}
	if env.api.count("/api/companies/google/problems") != 1 {
		t.Fatalf("expected the company problems endpoint to be used")
	}
}

func TestProblems_NoProblemsFoundMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, stderr, err := env.run(t, "problems", "stripe", "all")
	if err == nil {
		t.Fatalf("expected error")
	}
	if strings.TrimSpace(string(stderr)) != "No problems found for stripe" {
		t.Fatalf("expected server message; got %q", stderr)
	}
	if n := env.api.count("/api/companies/stripe/timeframes/all/problems"); n != 1 {
		t.Fatalf("expected a single attempt; got %d", n)
	}
}

func TestSelect_PersistsAndEnforcesTimeframe(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data := env.mustData(t, "select", "google", "30d").(map[string]any)
	if data["company"] != "google" || data["timeframe"] != "thirty-days" {
		t.Fatalf("unexpected selection: %v", data)
	}

	data = env.mustData(t, "select").(map[string]any)
	if data["company"] != "google" || data["timeframe"] != "thirty-days" {
		t.Fatalf("selection not persisted: %v", data)
	}

	// meta has no thirty-days list, so the remembered timeframe is dropped.
	data = env.mustData(t, "select", "meta").(map[string]any)
	if data["company"] != "meta" || data["timeframe"] != "" {
		t.Fatalf("expected timeframe cleared; got %v", data)
	}

	data = env.mustData(t, "select", "--clear").(map[string]any)
	if data["company"] != "" || data["timeframe"] != "" {
		t.Fatalf("expected cleared selection; got %v", data)
	}
}

func TestSelect_UnknownCompany(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, stderr, err := env.run(t, "select", "initech")
	if err == nil || !strings.Contains(string(stderr), "unknown company") {
		t.Fatalf("expected unknown company error; err=%v stderr=%q", err, stderr)
	}
}

func TestTheme_SetAndAuto(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data := env.mustData(t, "theme", "set", "dark").(map[string]any)
	if data["theme"] != "dark" || data["explicit"] != true || data["hint-color"] != "#000000" {
		t.Fatalf("unexpected theme: %v", data)
	}

	data = env.mustData(t, "theme").(map[string]any)
	if data["theme"] != "dark" || data["explicit"] != true {
		t.Fatalf("theme not persisted: %v", data)
	}

	data = env.mustData(t, "theme", "toggle").(map[string]any)
	if data["theme"] != "light" {
		t.Fatalf("expected light after toggle: %v", data)
	}

	data = env.mustData(t, "theme", "auto").(map[string]any)
	if data["explicit"] != false {
		t.Fatalf("expected no stored choice: %v", data)
	}
}

func TestExport_WritesFileAndRefusesOverwrite(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	out := filepath.Join(t.TempDir(), "google.md")

	data := env.mustData(t, "export", "google", "thirty-days", "-o", out).(map[string]any)
	if n, _ := data["count"].(float64); n != 3 {
		t.Fatalf("expected 3 exported problems; got %v", data)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(b), "| 146 |") && !strings.Contains(string(b), "LRU Cache") {
		t.Fatalf("expected problems in export:\n%s", b)
	}

	if _, _, err := env.run(t, "export", "google", "thirty-days", "-o", out); err == nil {
		t.Fatalf("expected error for existing file")
	}
	env.mustData(t, "export", "google", "thirty-days", "-o", out, "--overwrite")
}

func TestExport_HTMLToStdout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	stdout, stderr, err := env.run(t, "export", "google", "thirty-days", "--html", "-o", "-")
	if err != nil {
		t.Fatalf("export: %v\n%s", err, stderr)
	}
	s := string(stdout)
	if !strings.Contains(s, "<table>") || !strings.Contains(s, "Two Sum") {
		t.Fatalf("expected HTML table; got:\n%s", s)
	}
}

func TestCache_ShowAndClear(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.mustData(t, "timeframes", "google")

	data := env.mustData(t, "cache", "show").(map[string]any)
	entries, _ := data["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected the timeframes entry to be restored; got %v", data)
	}

	data = env.mustData(t, "cache", "clear").(map[string]any)
	if n, _ := data["cleared"].(float64); n != 1 {
		t.Fatalf("expected 1 cleared entry; got %v", data)
	}

	data = env.mustData(t, "cache", "show").(map[string]any)
	if entries, _ := data["entries"].([]any); len(entries) != 0 {
		t.Fatalf("expected empty cache; got %v", entries)
	}
	if env.api.count("/api/companies/google/timeframes") != 1 {
		t.Fatalf("cache commands must not fetch")
	}
}

func TestDocs_TopicsAndRaw(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data := env.mustData(t, "docs").(map[string]any)
	topics, _ := data["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected topics; got %v", data)
	}

	stdout, _, err := env.run(t, "docs", "selection", "--raw")
	if err != nil || !strings.HasPrefix(strings.TrimSpace(string(stdout)), "#") {
		t.Fatalf("expected raw markdown; err=%v out=%q", err, stdout)
	}

	if _, _, err := env.run(t, "docs", "nope"); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}

func TestConfig_InitAndShow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "leetbot", "config.yaml")

	stdout, stderr, err := runCLI(t, []string{"--config", path, "config", "init"})
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, stderr)
	}
	if !strings.Contains(string(stdout), `"created":true`) {
		t.Fatalf("expected created; got %s", stdout)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	stdout, _, err = env.run(t, "config", "show")
	if err != nil || !strings.Contains(string(stdout), "retries: 0") {
		t.Fatalf("expected effective config; err=%v out:\n%s", err, stdout)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, _, err := runCLI(t, []string{"--config", env.conf, "--api-url", "ftp://example.com", "companies"})
	if err == nil {
		t.Fatalf("expected error for non-http api url")
	}
}
