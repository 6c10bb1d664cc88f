package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"leetbot-cli/internal/model"
)

type RenderOptions struct {
	// Difficulty keeps only problems of that difficulty when set.
	Difficulty model.Difficulty
	// Limit caps the number of rows; zero means all.
	Limit int
	// GeneratedAt is stamped into the document; zero omits it.
	GeneratedAt time.Time
}

// RenderProblemsMarkdown renders pl as a Markdown document with a GFM table.
func RenderProblemsMarkdown(pl model.ProblemList, opt RenderOptions) string {
	problems := model.FilterDifficulty(pl.Problems, opt.Difficulty)
	total := len(problems)
	if opt.Limit > 0 && len(problems) > opt.Limit {
		problems = problems[:opt.Limit]
	}

	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + model.CompanyLabel(pl.Company) + " interview problems")
	writeLn("")
	writeLn("- Company: " + pl.Company)
	writeLn("- Timeframe: " + model.TimeframeLabel(pl.Timeframe))
	if opt.Difficulty != "" {
		writeLn("- Difficulty: " + string(opt.Difficulty))
	}
	if len(problems) < total {
		writeLn(fmt.Sprintf("- Problems: %d of %d", len(problems), total))
	} else {
		writeLn(fmt.Sprintf("- Problems: %d", total))
	}
	if !opt.GeneratedAt.IsZero() {
		writeLn("- Generated: " + opt.GeneratedAt.UTC().Format(time.RFC3339))
	}
	writeLn("")

	if len(problems) == 0 {
		writeLn("_No problems found._")
		return buf.String()
	}

	writeLn("| # | Title | Difficulty | Acceptance | Frequency |")
	writeLn("|---:|---|---|---:|---:|")
	for _, p := range problems {
		title := escapeCell(p.Title)
		if strings.TrimSpace(p.URL) != "" {
			title = "[" + title + "](" + p.URL + ")"
		}
		writeLn(fmt.Sprintf("| %d | %s | %s | %.1f%% | %.1f%% |",
			p.ID, title, escapeCell(string(p.Difficulty)), p.Acceptance, p.Frequency))
	}
	return buf.String()
}

func escapeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
