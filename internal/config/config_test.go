package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	if cfg.API.BaseURL != "https://leetbot.org" {
		t.Errorf("base url=%q", cfg.API.BaseURL)
	}
	if cfg.Cache.StaleTime != 5*time.Minute || cfg.Cache.CompaniesStaleTime != 10*time.Minute || cfg.Cache.ProblemsStaleTime != 2*time.Minute {
		t.Errorf("unexpected stale times: %+v", cfg.Cache)
	}
	if cfg.Cache.GCTime != 30*time.Minute || cfg.Cache.Retries != 2 {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Prefs.Backend != PrefsBackendFile {
		t.Errorf("prefs backend=%q", cfg.Prefs.Backend)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(envAPIURL, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Retries != 2 {
		t.Errorf("retries=%d", cfg.Cache.Retries)
	}
}

func TestLoad_FileOverridesOnlyGivenFields(t *testing.T) {
	t.Setenv(envPrefsBackend, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "cache:\n  problems_stale_time: 30s\nprefs:\n  backend: sqlite\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.ProblemsStaleTime != 30*time.Second {
		t.Errorf("problems stale=%v", cfg.Cache.ProblemsStaleTime)
	}
	if cfg.Cache.CompaniesStaleTime != 10*time.Minute {
		t.Errorf("companies stale should keep default; got %v", cfg.Cache.CompaniesStaleTime)
	}
	if cfg.Prefs.Backend != PrefsBackendSQLite {
		t.Errorf("backend=%q", cfg.Prefs.Backend)
	}
	st := cfg.StaleTimes()
	if st.Problems != 30*time.Second || st.Timeframes != 5*time.Minute {
		t.Errorf("StaleTimes=%+v", st)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(envAPIURL, "http://localhost:3000")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envPrefsBackend, "SQLite")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:3000" || cfg.Logging.Level != "debug" || cfg.Prefs.Backend != PrefsBackendSQLite {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad scheme", "api:\n  base_url: ftp://x\n", "scheme"},
		{"bad backend", "prefs:\n  backend: redis\n", "prefs.backend"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"negative retries", "cache:\n  retries: -1\n", "cache.retries"},
		{"bad yaml", "api: [", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envAPIURL, "")
			t.Setenv(envPrefsBackend, "")
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load err=%v; want containing %q", err, tt.want)
			}
		})
	}
}

func TestDirsHonorEnv(t *testing.T) {
	cfgDir := t.TempDir()
	stateDir := t.TempDir()
	t.Setenv(envConfigDir, cfgDir)
	t.Setenv(envStateDir, stateDir)

	if got := DefaultConfigPath(); got != filepath.Join(cfgDir, "config.yaml") {
		t.Errorf("DefaultConfigPath=%q", got)
	}
	cfg := &Config{StateDir: "/ignored"}
	if got := cfg.ResolveStateDir(); got != stateDir {
		t.Errorf("ResolveStateDir=%q", got)
	}
	if got := cfg.LogPath(); got != filepath.Join(stateDir, "leetbot.log") {
		t.Errorf("LogPath=%q", got)
	}
}

func TestWriteDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	wrote, err := WriteDefaults(path)
	if err != nil || !wrote {
		t.Fatalf("WriteDefaults=%v,%v", wrote, err)
	}
	wrote, err = WriteDefaults(path)
	if err != nil || wrote {
		t.Fatalf("second WriteDefaults=%v,%v; want no-op", wrote, err)
	}
}
