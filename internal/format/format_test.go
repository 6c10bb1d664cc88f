package format

import (
	"bytes"
	"strings"
	"testing"
)

type companiesPayload struct {
	Companies []string `json:"companies"`
	FetchedAt string   `json:"fetchedAt"`
	Count     int      `json:"count"`
	Rate      float64  `json:"rate"`
}

func (p companiesPayload) TableHeaders() []string { return []string{"Company"} }

func (p companiesPayload) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Companies))
	for _, c := range p.Companies {
		rows = append(rows, []string{c})
	}
	return rows
}

func TestWrite_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, companiesPayload{Companies: []string{"google"}, Count: 1}, "", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != `{"companies":["google"],"fetchedAt":"","count":1,"rate":0}`+"\n" {
		t.Fatalf("unexpected json %q", got)
	}
}

func TestWrite_EDNUsesKebabKeywordsAndIntegers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := companiesPayload{Companies: []string{"google", "jane street"}, FetchedAt: "now", Count: 2, Rate: 61.5}
	if err := Write(&buf, p, "edn", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `{:companies ["google" "jane street"] :count 2 :fetched-at "now" :rate 61.5}` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("edn=%q\nwant %q", got, want)
	}
}

func TestWrite_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, companiesPayload{Companies: []string{"amazon", "google"}}, "table", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Company", "amazon", "google"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWrite_Errors(t *testing.T) {
	t.Parallel()

	if err := Write(&bytes.Buffer{}, map[string]int{"a": 1}, "table", false); err == nil {
		t.Fatal("expected error for non-tabular payload")
	}
	if err := Write(&bytes.Buffer{}, 1, "xml", false); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestEDNKeyword(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"id":             "id",
		"fetchedAt":      "fetched-at",
		"problem count":  "problem-count",
		"selected_theme": "selected-theme",
	}
	for in, want := range cases {
		if got := ednKeyword(in); got != want {
			t.Errorf("ednKeyword(%q)=%q; want %q", in, got, want)
		}
	}
}
