package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/publish"
)

func newExportCmd(app *App) *cobra.Command {
	var (
		out        string
		asHTML     bool
		overwrite  bool
		difficulty string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "export <company> <timeframe>",
		Short: "Write a company's problem list as Markdown or HTML",
		Example: strings.TrimSpace(`
  leetbot export google thirty-days
  leetbot export meta 6mo --html -o meta.html
  leetbot export amazon all --difficulty hard -o -
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, err := parseDifficultyFlag(difficulty)
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx := cmd.Context()
			s := openSession(ctx, app, sessionOptions{})
			defer s.Close(context.WithoutCancel(ctx))

			company := normalizeCompany(args[0])
			tf, err := resolveTimeframe(ctx, s, company, args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			pl, err := s.Problems(ctx, company, tf)
			if err != nil {
				return writeErr(cmd, err)
			}

			ropt := publish.RenderOptions{Difficulty: diff, Limit: limit, GeneratedAt: time.Now()}
			if out == "-" {
				doc, err := publish.Render(pl, ropt, asHTML)
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}
			if strings.TrimSpace(out) == "" {
				out = publish.DefaultFileName(pl, asHTML)
			}

			res, err := publish.WriteProblems(pl, out, publish.WriteOptions{
				Render:    ropt,
				HTML:      asHTML,
				Overwrite: overwrite,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: <company>-<timeframe>.md in the current directory; - for stdout)")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render HTML instead of Markdown")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Only export problems of this difficulty (easy|medium|hard)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Export at most this many problems (0 = all)")
	return cmd
}
