package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/theme"
)

type themePayload struct {
	Theme    string `json:"theme"`
	Explicit bool   `json:"explicit"`
	Hint     string `json:"hint-color"`
}

func (p themePayload) TableHeaders() []string { return []string{"Theme", "Explicit", "Hint"} }

func (p themePayload) TableRows() [][]string {
	return [][]string{{p.Theme, fmt.Sprint(p.Explicit), p.Hint}}
}

func newThemePayload(c *theme.Controller) themePayload {
	t := c.Theme()
	return themePayload{Theme: string(t), Explicit: c.Explicit(), Hint: theme.HintColor(t)}
}

func newThemeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the color theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTheme(cmd, app, func(c *theme.Controller) {})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark, and remember the choice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTheme(cmd, app, func(c *theme.Controller) { c.Toggle() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "set <light|dark>",
		Short:     "Use a theme and remember the choice",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := theme.Parse(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("invalid theme %q (valid: light, dark)", args[0]))
			}
			return withTheme(cmd, app, func(c *theme.Controller) { c.Set(t) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Forget the remembered choice and follow the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTheme(cmd, app, func(c *theme.Controller) { c.Reset() })
		},
	})

	return cmd
}

func withTheme(cmd *cobra.Command, app *App, fn func(*theme.Controller)) error {
	ctx := cmd.Context()
	s := openSession(ctx, app, sessionOptions{})
	defer s.Close(context.WithoutCancel(ctx))

	fn(s.Theme())
	return writeOut(cmd, app, newThemePayload(s.Theme()))
}
