package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	prefsFileName   = "prefs.json"
	queriesFileName = "query_cache.json"
)

// FileBackend keeps preferences and the query snapshot as JSON files in Dir.
//
// Reads are best effort: a missing or corrupted file loads as empty.
type FileBackend struct {
	Dir string
}

type prefsFile struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values,omitempty"`
}

type queriesFile struct {
	Version int        `json:"version"`
	Queries []QueryRow `json:"queries,omitempty"`
}

func (b FileBackend) path(name string) string {
	return filepath.Join(b.Dir, name)
}

func (b FileBackend) Load(ctx context.Context) (map[string]string, error) {
	var f prefsFile
	if err := b.readJSON(prefsFileName, &f); err != nil {
		return nil, err
	}
	if f.Values == nil {
		f.Values = map[string]string{}
	}
	return f.Values, nil
}

func (b FileBackend) Save(ctx context.Context, values map[string]string) error {
	return b.writeJSON(prefsFileName, prefsFile{Version: 1, Values: values})
}

func (b FileBackend) LoadQueries(ctx context.Context) ([]QueryRow, error) {
	var f queriesFile
	if err := b.readJSON(queriesFileName, &f); err != nil {
		return nil, err
	}
	return f.Queries, nil
}

func (b FileBackend) SaveQueries(ctx context.Context, rows []QueryRow) error {
	return b.writeJSON(queriesFileName, queriesFile{Version: 1, Queries: rows})
}

func (b FileBackend) readJSON(name string, v any) error {
	if strings.TrimSpace(b.Dir) == "" {
		return nil
	}
	raw, err := os.ReadFile(b.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		// Corrupted state is treated as missing.
		return nil
	}
	return nil
}

func (b FileBackend) writeJSON(name string, v any) error {
	if strings.TrimSpace(b.Dir) == "" {
		return nil
	}
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := b.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
