package model

import "strings"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty matches case-insensitively. Unknown values are returned verbatim
// with ok=false so callers can still display what the server sent.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, true
	case "medium":
		return DifficultyMedium, true
	case "hard":
		return DifficultyHard, true
	}
	return Difficulty(s), false
}

// Problem is a single interview problem as reported by the API.
// Acceptance and Frequency are percentages in [0, 100].
type Problem struct {
	ID         int        `json:"id"`
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	Acceptance float64    `json:"acceptance"`
	Frequency  float64    `json:"frequency"`
}

// ProblemList is the payload of the problems endpoints.
type ProblemList struct {
	Company   string    `json:"company"`
	Timeframe string    `json:"timeframe"`
	Problems  []Problem `json:"problems"`
	Count     int       `json:"count"`
}

// FilterDifficulty returns the problems whose difficulty matches d.
// An empty d returns the input unchanged.
func FilterDifficulty(problems []Problem, d Difficulty) []Problem {
	if strings.TrimSpace(string(d)) == "" {
		return problems
	}
	out := make([]Problem, 0, len(problems))
	for _, p := range problems {
		if strings.EqualFold(string(p.Difficulty), string(d)) {
			out = append(out, p)
		}
	}
	return out
}

// CompanyLabel renders a company slug for display: "jane-street" => "Jane street".
func CompanyLabel(company string) string {
	if company == "" {
		return ""
	}
	r := []rune(strings.ReplaceAll(company, "-", " "))
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}
