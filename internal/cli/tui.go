package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/logging"
	"leetbot-cli/internal/theme"
	"leetbot-cli/internal/tui"
)

// runTUI opens a session logging to the state directory, since the terminal
// belongs to the TUI, and runs the browser until the user quits.
func runTUI(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	cfg := app.cfg

	f, err := logging.OpenFile(cfg.LogPath())
	if err != nil {
		return writeErr(cmd, fmt.Errorf("open log: %w", err))
	}
	defer f.Close()
	log := logging.New(f, logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, NoColor: true})
	log.Info("starting", "api", cfg.API.BaseURL, "state", cfg.ResolveStateDir())

	s := openSession(ctx, app, sessionOptions{
		logger:   log,
		appliers: []theme.Applier{theme.LipglossApplier},
	})
	defer s.Close(context.WithoutCancel(ctx))

	if err := tui.Run(ctx, s, tui.Options{
		FollowInterval: cfg.Theme.FollowEnvironmentInterval,
		Logger:         log.With("component", "tui"),
	}); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
