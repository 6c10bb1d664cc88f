package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/api"
	"leetbot-cli/internal/config"
	"leetbot-cli/internal/format"
	"leetbot-cli/internal/logging"
	"leetbot-cli/internal/prefs"
	"leetbot-cli/internal/query"
	"leetbot-cli/internal/session"
	"leetbot-cli/internal/store"
	"leetbot-cli/internal/theme"
)

type App struct {
	ConfigPath string
	APIURL     string
	StateDir   string
	LogLevel   string
	PrettyJSON bool
	Format     string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "leetbot",
		Short:        "Browse coding-interview problems by company and timeframe",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive browser
  leetbot

  # Scriptable commands
  leetbot companies
  leetbot problems google thirty-days --format table

  # Remember a selection for the next launch
  leetbot select google six-months
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(app)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("LEETBOT_CONFIG", ""), "Path to config.yaml (default: $XDG_CONFIG_HOME/leetbot/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "API base URL (overrides api.base_url)")
	cmd.PersistentFlags().StringVar(&app.StateDir, "state-dir", "", "Directory for preferences and the cache snapshot")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("LEETBOT_FORMAT", "json"), "Output format (json|edn|table)")

	cmd.AddCommand(newCompaniesCmd(app))
	cmd.AddCommand(newTimeframesCmd(app))
	cmd.AddCommand(newProblemsCmd(app))
	cmd.AddCommand(newSelectCmd(app))
	cmd.AddCommand(newThemeCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newCacheCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func loadConfig(app *App) (*config.Config, error) {
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(app.StateDir); v != "" {
		cfg.StateDir = v
	}
	if v := strings.TrimSpace(app.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// backends returns the preference backend and, when persistence is enabled,
// the query snapshot store for cfg.
func backends(cfg *config.Config, dir string) (prefs.Backend, session.SnapshotStore) {
	var (
		p    prefs.Backend
		snap session.SnapshotStore
	)
	switch cfg.Prefs.Backend {
	case config.PrefsBackendSQLite:
		b := store.SQLiteBackend{Dir: dir}
		p, snap = b, b
	default:
		b := store.FileBackend{Dir: dir}
		p, snap = b, b
	}
	if !cfg.Cache.Persist {
		snap = nil
	}
	return p, snap
}

type sessionOptions struct {
	logger   *slog.Logger
	appliers []theme.Applier
}

func openSession(ctx context.Context, app *App, opt sessionOptions) *session.Session {
	cfg := app.cfg
	log := opt.logger
	if log == nil {
		log = cliLogger(os.Stderr, cfg)
	}
	client := api.NewClient(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout))
	p, snap := backends(cfg, cfg.ResolveStateDir())

	return session.New(ctx, session.Deps{
		Gateway:   client,
		Prefs:     p,
		Snapshots: snap,
		Cache: query.Config{
			GCTime:     cfg.Cache.GCTime,
			MaxEntries: cfg.Cache.MaxEntries,
		},
		Options:       cfg.QueryOptions(),
		StaleTimes:    cfg.StaleTimes(),
		FlushDelay:    cfg.Prefs.FlushDelay,
		ThemeAppliers: opt.appliers,
		Logger:        log,
	})
}

// cliLogger logs to w. Scripted commands stay quiet below warn unless a
// level was asked for explicitly.
func cliLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if level == "" || strings.EqualFold(level, "info") {
		level = "warn"
	}
	return logging.New(w, logging.Options{Level: level, Format: cfg.Logging.Format})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut writes v wrapped in a {"data": ...} envelope, or as a table when
// --format=table.
func writeOut(cmd *cobra.Command, app *App, v any) error {
	if strings.EqualFold(app.Format, "table") {
		return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
	}
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), api.Message(err))
	return err
}
