// Package tui is the interactive company/timeframe/problem browser.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"leetbot-cli/internal/session"
)

type Options struct {
	// FollowInterval is how often the terminal's theme is re-probed; zero disables it.
	FollowInterval time.Duration
	Logger         *slog.Logger
}

// Run starts the session's controllers and blocks until the user quits.
// The caller owns s and closes it afterwards.
func Run(ctx context.Context, s *session.Session, opts Options) error {
	applyColorProfilePreference()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newAppModel(s.Selection(), s.Theme(), opts.Logger)
	defer m.close()

	s.Start(ctx)
	go s.Theme().Watch(ctx, opts.FollowInterval)

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
