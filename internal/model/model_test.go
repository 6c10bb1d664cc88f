package model

import "testing"

func TestTimeframeLabel_FallsBackToID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"all":                  "All Time",
		"thirty-days":          "Last 30 Days",
		"three-months":         "Last 3 Months",
		"six-months":           "Last 6 Months",
		"more-than-six-months": "More than 6 Months",
		"last-week":            "last-week",
	}
	for id, want := range cases {
		if got := TimeframeLabel(id); got != want {
			t.Fatalf("TimeframeLabel(%q)=%q; want %q", id, got, want)
		}
	}
}

func TestNormalizeTimeframe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"30d", TimeframeThirtyDays},
		{" Thirty Days ", TimeframeThirtyDays},
		{"90", TimeframeThreeMonths},
		{"6mo", TimeframeSixMonths},
		{">6mo", TimeframeMoreThanSixMonths},
		{"All Time", TimeframeAll},
		{"last-year", "last-year"},
	}
	for _, tt := range tests {
		if got := NormalizeTimeframe(tt.in); got != tt.want {
			t.Errorf("NormalizeTimeframe(%q)=%q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompanyLabel(t *testing.T) {
	t.Parallel()

	if got := CompanyLabel("jane-street"); got != "Jane street" {
		t.Fatalf("got %q", got)
	}
	if got := CompanyLabel(""); got != "" {
		t.Fatalf("expected empty label; got %q", got)
	}
}

func TestFilterDifficulty(t *testing.T) {
	t.Parallel()

	ps := []Problem{
		{ID: 1, Difficulty: DifficultyEasy},
		{ID: 2, Difficulty: DifficultyHard},
		{ID: 3, Difficulty: "easy"},
	}
	got := FilterDifficulty(ps, DifficultyEasy)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("unexpected filter result: %#v", got)
	}
	if got := FilterDifficulty(ps, ""); len(got) != 3 {
		t.Fatalf("empty difficulty should not filter; got %d", len(got))
	}
	if d, ok := ParseDifficulty("MEDIUM"); !ok || d != DifficultyMedium {
		t.Fatalf("ParseDifficulty(MEDIUM)=%q,%v", d, ok)
	}
}

func TestContainsTimeframe(t *testing.T) {
	t.Parallel()

	list := []string{TimeframeThirtyDays, TimeframeAll}
	if !ContainsTimeframe(list, TimeframeAll) {
		t.Fatal("expected all to be found")
	}
	if ContainsTimeframe(list, TimeframeSixMonths) || ContainsTimeframe(nil, TimeframeAll) {
		t.Fatal("unexpected match")
	}
}
