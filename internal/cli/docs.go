package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/docs"
	"leetbot-cli/internal/theme"
	"leetbot-cli/internal/tui"
)

type topicsPayload struct {
	Topics []topicSummary `json:"topics"`
}

type topicSummary struct {
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
}

func (p topicsPayload) TableHeaders() []string { return []string{"Topic", "Summary"} }

func (p topicsPayload) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Topics))
	for _, t := range p.Topics {
		rows = append(rows, []string{t.Topic, t.Summary})
	}
	return rows
}

func newDocsCmd(app *App) *cobra.Command {
	var (
		raw    bool
		render bool
	)

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show on-demand documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				var p topicsPayload
				for _, t := range docs.Topics() {
					p.Topics = append(p.Topics, topicSummary{Topic: t, Summary: docs.Summary(t)})
				}
				return writeOut(cmd, app, p)
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `leetbot docs` to list topics)", topic))
			}

			switch {
			case raw:
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			case render:
				t, ok := theme.DetectEnvironment()
				if !ok {
					t = theme.Light
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), tui.RenderMarkdown(body, 100, t))
				return err
			}

			return writeOut(cmd, app, map[string]any{"topic": strings.ToLower(topic), "markdown": body})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no JSON envelope)")
	cmd.Flags().BoolVar(&render, "render", false, "Render markdown for the terminal")

	return cmd
}
