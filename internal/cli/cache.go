package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"leetbot-cli/internal/query"
)

type cacheEntry struct {
	Key       string `json:"key"`
	Status    string `json:"status"`
	FetchedAt string `json:"fetched-at,omitempty"`
	Stale     bool   `json:"stale"`
}

type cachePayload struct {
	Persist bool         `json:"persist"`
	Entries []cacheEntry `json:"entries"`
}

func (p cachePayload) TableHeaders() []string {
	return []string{"Key", "Status", "Fetched", "Stale"}
}

func (p cachePayload) TableRows() [][]string {
	rows := make([][]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		stale := ""
		if e.Stale {
			stale = "yes"
		}
		rows = append(rows, []string{e.Key, e.Status, e.FetchedAt, stale})
	}
	return rows
}

func newCachePayload(persist bool, results []query.Result) cachePayload {
	p := cachePayload{Persist: persist, Entries: make([]cacheEntry, 0, len(results))}
	for _, r := range results {
		e := cacheEntry{Key: r.Key.Display(), Status: r.Status.String(), Stale: r.Stale}
		if !r.FetchedAt.IsZero() {
			e.FetchedAt = r.FetchedAt.UTC().Format(time.RFC3339)
		}
		p.Entries = append(p.Entries, e)
	}
	return p
}

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persisted query cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List cached queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := openSession(ctx, app, sessionOptions{})
			defer s.Close(context.WithoutCancel(ctx))

			return writeOut(cmd, app, newCachePayload(app.cfg.Cache.Persist, s.Cache().Entries(query.Key{})))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := openSession(ctx, app, sessionOptions{})
			// Close saves the now-empty snapshot.
			defer s.Close(context.WithoutCancel(ctx))

			n := s.Cache().Clear()
			return writeOut(cmd, app, map[string]any{"cleared": n})
		},
	})

	return cmd
}
