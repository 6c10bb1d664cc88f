package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "leetbot.sqlite"

// QueryRow is one persisted query cache entry.
type QueryRow struct {
	Family    string          `json:"family"`
	Params    []string        `json:"params,omitempty"`
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// SQLiteBackend keeps preferences and the query snapshot in a single SQLite
// database under Dir. Each call opens and closes its own connection so that
// several leetbot processes can share the file.
type SQLiteBackend struct {
	Dir string
}

func (b SQLiteBackend) Path() string {
	return filepath.Join(b.Dir, sqliteFileName)
}

func (b SQLiteBackend) open(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(b.Dir) == "" {
		return nil, errors.New("sqlite backend: missing dir")
	}
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", b.Path())
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prefs (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS queries (
			k TEXT PRIMARY KEY,
			family TEXT NOT NULL,
			params_json TEXT NOT NULL,
			value_json TEXT NOT NULL,
			fetched_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_queries_family ON queries(family);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (b SQLiteBackend) Load(ctx context.Context) (map[string]string, error) {
	db, err := b.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT k, v FROM prefs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Save replaces the stored preferences with values.
func (b SQLiteBackend) Save(ctx context.Context, values map[string]string) error {
	db, err := b.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prefs`); err != nil {
		return err
	}
	nowMs := time.Now().UTC().UnixMilli()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO prefs(k, v, updated_at_unixms) VALUES(?, ?, ?)`, k, v, nowMs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b SQLiteBackend) LoadQueries(ctx context.Context) ([]QueryRow, error) {
	db, err := b.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT family, params_json, value_json, fetched_at_unixms FROM queries ORDER BY k`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueryRow
	for rows.Next() {
		var (
			family, paramsJSON, valueJSON string
			fetchedMs                     int64
		)
		if err := rows.Scan(&family, &paramsJSON, &valueJSON, &fetchedMs); err != nil {
			return nil, err
		}
		var params []string
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			// Skip rows written by an incompatible version.
			continue
		}
		out = append(out, QueryRow{
			Family:    family,
			Params:    params,
			Value:     json.RawMessage(valueJSON),
			FetchedAt: time.UnixMilli(fetchedMs).UTC(),
		})
	}
	return out, rows.Err()
}

// SaveQueries replaces the stored snapshot with rows.
func (b SQLiteBackend) SaveQueries(ctx context.Context, rows []QueryRow) error {
	db, err := b.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queries`); err != nil {
		return err
	}
	for _, r := range rows {
		params, _ := json.Marshal(r.Params)
		if r.Params == nil {
			params = []byte("[]")
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO queries(k, family, params_json, value_json, fetched_at_unixms) VALUES(?, ?, ?, ?, ?)`,
			r.Family+"/"+strings.Join(r.Params, "/"), r.Family, string(params), string(r.Value), r.FetchedAt.UTC().UnixMilli()); err != nil {
			return err
		}
	}
	return tx.Commit()
}
