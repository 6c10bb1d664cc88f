package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/selection"
)

type selectionPayload struct {
	Company   string `json:"company"`
	Timeframe string `json:"timeframe"`
}

func (p selectionPayload) TableHeaders() []string { return []string{"Company", "Timeframe"} }

func (p selectionPayload) TableRows() [][]string {
	return [][]string{{p.Company, p.Timeframe}}
}

func newSelectionPayload(sel selection.Selection) selectionPayload {
	return selectionPayload{Company: sel.Company, Timeframe: sel.Timeframe}
}

func newSelectCmd(app *App) *cobra.Command {
	var clearSel bool

	cmd := &cobra.Command{
		Use:   "select [company] [timeframe]",
		Short: "Show or change the remembered company/timeframe selection",
		Long: strings.TrimSpace(`
Show or change the selection the interactive browser opens with.

With no arguments the current selection is printed. Choosing a company
keeps the remembered timeframe only when that company offers it.
`),
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearSel && len(args) > 0 {
				return writeErr(cmd, errors.New("--clear takes no arguments"))
			}

			ctx := cmd.Context()
			s := openSession(ctx, app, sessionOptions{})
			defer s.Close(context.WithoutCancel(ctx))
			sel := s.Selection()

			switch {
			case clearSel:
				sel.Clear()
			case len(args) > 0:
				company := normalizeCompany(args[0])
				companies, err := s.Companies(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				if !contains(companies, company) {
					return writeErr(cmd, fmt.Errorf("unknown company: %q (run `leetbot companies` to list them)", company))
				}
				tf := ""
				if len(args) == 2 {
					if tf, err = resolveTimeframe(ctx, s, company, args[1]); err != nil {
						return writeErr(cmd, err)
					}
				} else if _, err := s.Timeframes(ctx, company); err != nil {
					return writeErr(cmd, err)
				}
				// The timeframes are cached now, so the controller drops a
				// remembered timeframe the new company lacks before returning.
				sel.SetCompany(company)
				if tf != "" {
					sel.SetTimeframe(tf)
				}
				if err := s.Prefetch(ctx); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err.Error())
				}
			}

			return writeOut(cmd, app, newSelectionPayload(sel.Selection()))
		},
	}

	cmd.Flags().BoolVar(&clearSel, "clear", false, "Forget the remembered selection")
	return cmd
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
