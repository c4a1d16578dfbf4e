package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("DB_DIALECT", "")
	t.Setenv("DB_SQLITE_PATH", "")
	t.Setenv("DB_POSTGRES_DSN", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Schedule.Dt != 1.5 || cfg.Schedule.Ddt != 1.0001 || cfg.Schedule.Divisor != 1.5 {
		t.Errorf("unexpected schedule %+v", cfg.Schedule)
	}
	if cfg.Engine.Workers != 1 {
		t.Errorf("workers = %d, want 1", cfg.Engine.Workers)
	}
	if cfg.Store.Dialect != DialectJSON {
		t.Errorf("dialect = %q, want json", cfg.Store.Dialect)
	}

	t1, ok := cfg.Theories["t1"]
	if !ok {
		t.Fatalf("no table defaults for t1")
	}
	if t1.Grid != 32 || t1.A != 40 || t1.B != 150 || t1.Offset != 6 || t1.Students != 500 {
		t.Errorf("unexpected t1 table config %+v", t1)
	}
	if got := t1.Index(800); got != 25600 {
		t.Errorf("Index(800) = %d, want 25600", got)
	}
	if de := cfg.Theories["de"]; de.B != 6*16+8 {
		t.Errorf("de b = %d, want %d", de.B, 6*16+8)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	t.Setenv("DB_DIALECT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "engine:\n  workers: 4\ntheories:\n  t1:\n    grid: 16\n    from: 10\n    to: 20\n    ct_end: 20\n    a: 1\n    b: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Engine.Workers)
	}
	if cfg.Engine.ForkLogDepth != 3 {
		t.Errorf("overlay dropped fork_log_depth: %d", cfg.Engine.ForkLogDepth)
	}
	if cfg.Theories["t1"].Grid != 16 {
		t.Errorf("t1 grid = %v, want 16", cfg.Theories["t1"].Grid)
	}
	if _, ok := cfg.Theories["fp"]; !ok {
		t.Errorf("overlay removed fp defaults")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DB_DIALECT", "Postgres")
	t.Setenv("DB_POSTGRES_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/theories")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Store.Dialect != DialectPostgres {
		t.Errorf("dialect = %q, want postgres", cfg.Store.Dialect)
	}
	if cfg.Store.PostgresDSN != "postgres://localhost/theories" {
		t.Errorf("dsn = %q", cfg.Store.PostgresDSN)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("DB_DIALECT", "")
	tests := map[string]string{
		"bad ddt":      "schedule:\n  ddt: 1\n",
		"no workers":   "engine:\n  workers: 0\n",
		"bad dialect":  "store:\n  dialect: mongo\n",
		"pg no dsn":    "store:\n  dialect: postgres\n  postgres_dsn: \"\"\n",
		"bad range":    "theories:\n  t1:\n    from: 900\n    to: 800\n",
		"missing file": "",
	}

	dir := t.TempDir()
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DB_POSTGRES_DSN", "")
			t.Setenv("DATABASE_URL", "")
			path := filepath.Join(dir, "missing.yaml")
			if content != "" {
				path = filepath.Join(dir, name+".yaml")
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					t.Fatalf("write config: %v", err)
				}
			}
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("LoadConfig accepted %s", name)
			}
		})
	}
}
