package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/model"
	"leetbot-cli/internal/session"
	"leetbot-cli/internal/tui"
)

type companiesPayload struct {
	Companies []string `json:"companies"`
}

func (p companiesPayload) TableHeaders() []string { return []string{"Company", "Label"} }

func (p companiesPayload) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Companies))
	for _, c := range p.Companies {
		rows = append(rows, []string{c, model.CompanyLabel(c)})
	}
	return rows
}

type timeframesPayload struct {
	Company    string   `json:"company"`
	Timeframes []string `json:"timeframes"`
}

func (p timeframesPayload) TableHeaders() []string { return []string{"Timeframe", "Label"} }

func (p timeframesPayload) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Timeframes))
	for _, tf := range p.Timeframes {
		rows = append(rows, []string{tf, model.TimeframeLabel(tf)})
	}
	return rows
}

type problemsPayload struct {
	Company   string          `json:"company"`
	Timeframe string          `json:"timeframe"`
	Count     int             `json:"count"`
	Problems  []model.Problem `json:"problems"`
}

func (p problemsPayload) TableHeaders() []string {
	return []string{"ID", "Title", "Difficulty", "Acceptance", "Frequency"}
}

func (p problemsPayload) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Problems))
	for _, pr := range p.Problems {
		rows = append(rows, []string{
			strconv.Itoa(pr.ID),
			pr.Title,
			string(pr.Difficulty),
			strconv.FormatFloat(pr.Acceptance, 'f', 1, 64) + "%",
			strconv.FormatFloat(pr.Frequency, 'f', 1, 64) + "%",
		})
	}
	return rows
}

func newCompaniesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "companies",
		Short: "List companies with problem data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := openSession(ctx, app, sessionOptions{})
			defer s.Close(context.WithoutCancel(ctx))

			companies, err := s.Companies(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, companiesPayload{Companies: companies})
		},
	}
}

func newTimeframesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "timeframes <company>",
		Short: "List the timeframes available for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := openSession(ctx, app, sessionOptions{})
			defer s.Close(context.WithoutCancel(ctx))

			company := normalizeCompany(args[0])
			tfs, err := s.Timeframes(ctx, company)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, timeframesPayload{Company: company, Timeframes: tfs})
		},
	}
}

func newProblemsCmd(app *App) *cobra.Command {
	var (
		difficulty string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "problems <company> [timeframe]",
		Short: "List a company's problems for a timeframe",
		Long: strings.TrimSpace(`
List a company's problems for a timeframe.

Without a timeframe, the most recent timeframe that has data is used.
Timeframes accept loose spellings: 30d, 3mo, 6m, all, >6mo.

--format md renders the list as Markdown in the terminal.
`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := parseDifficultyFlag(difficulty)
			if err != nil {
				return writeErr(cmd, err)
			}
			if limit < 0 {
				return writeErr(cmd, errors.New("--limit must be >= 0"))
			}

			ctx := cmd.Context()
			s := openSession(ctx, app, sessionOptions{})
			defer s.Close(context.WithoutCancel(ctx))

			company := normalizeCompany(args[0])
			var pl model.ProblemList
			if len(args) == 2 {
				tf, err := resolveTimeframe(ctx, s, company, args[1])
				if err != nil {
					return writeErr(cmd, err)
				}
				pl, err = s.Problems(ctx, company, tf)
				if err != nil {
					return writeErr(cmd, err)
				}
			} else {
				pl, err = s.LatestProblems(ctx, company)
				if err != nil {
					return writeErr(cmd, err)
				}
			}

			if strings.EqualFold(app.Format, "md") {
				out := tui.RenderProblemsTerminal(pl, diff, limit, s.Theme().Theme(), 100)
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}

			problems := model.FilterDifficulty(pl.Problems, diff)
			if limit > 0 && len(problems) > limit {
				problems = problems[:limit]
			}
			return writeOut(cmd, app, problemsPayload{
				Company:   pl.Company,
				Timeframe: pl.Timeframe,
				Count:     len(problems),
				Problems:  problems,
			})
		},
	}

	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Only show problems of this difficulty (easy|medium|hard)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many problems (0 = all)")
	return cmd
}

func normalizeCompany(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func parseDifficultyFlag(s string) (model.Difficulty, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	d, ok := model.ParseDifficulty(s)
	if !ok {
		return "", fmt.Errorf("invalid --difficulty %q (valid: easy, medium, hard)", s)
	}
	return d, nil
}

// resolveTimeframe normalizes raw and checks it against company's timeframes.
func resolveTimeframe(ctx context.Context, s *session.Session, company, raw string) (string, error) {
	tf := model.NormalizeTimeframe(raw)
	tfs, err := s.Timeframes(ctx, company)
	if err != nil {
		return "", err
	}
	if !model.ContainsTimeframe(tfs, tf) {
		return "", fmt.Errorf("timeframe %q is not available for %s (available: %s)", tf, company, strings.Join(tfs, ", "))
	}
	return tf, nil
}
