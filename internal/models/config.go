package models

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Store dialects
const (
	DialectJSON     = "json"
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Config holds every tunable of the simulator and the table builder
type Config struct {
	Schedule ScheduleConfig         `yaml:"schedule"`
	Engine   EngineConfig           `yaml:"engine"`
	Store    StoreConfig            `yaml:"store"`
	Theories map[string]TableConfig `yaml:"theories"`
}

// ScheduleConfig is the tick-length schedule
type ScheduleConfig struct {
	Dt      float64 `yaml:"dt"`
	Ddt     float64 `yaml:"ddt"`
	Divisor float64 `yaml:"divisor"`
}

// EngineConfig controls the forking search
type EngineConfig struct {
	Workers      int `yaml:"workers"`
	ForkLogDepth int `yaml:"fork_log_depth"`
}

// StoreConfig selects where publication tables live
type StoreConfig struct {
	Dialect     string `yaml:"dialect"`
	JSONDir     string `yaml:"json_dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// TableConfig holds the publication table builder parameters of one theory
type TableConfig struct {
	Grid      float64 `yaml:"grid"`
	From      float64 `yaml:"from"`
	To        float64 `yaml:"to"`
	CTEnd     float64 `yaml:"ct_end"`
	A         uint32  `yaml:"a"`
	B         uint32  `yaml:"b"`
	Offset    float64 `yaml:"offset"`
	Students  uint32  `yaml:"students"`
	TauFactor float64 `yaml:"tau_factor"`
}

// Index converts a log10 rho to a table index on this grid
func (t TableConfig) Index(rho float64) uint32 {
	return uint32(math.Round(rho * t.Grid))
}

// LoadConfig reads the embedded defaults and overlays the YAML file at path, if any.
// Only keys present in the file are overwritten.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets DB_DIALECT, DB_SQLITE_PATH, DB_POSTGRES_DSN and DATABASE_URL
// override the store section
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(strings.ToLower(os.Getenv("DB_DIALECT"))); v != "" {
		c.Store.Dialect = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_SQLITE_PATH")); v != "" {
		c.Store.SQLitePath = v
	}
	dsn := strings.TrimSpace(os.Getenv("DB_POSTGRES_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn != "" {
		c.Store.PostgresDSN = dsn
	}
}

// Validate checks the values the engine cannot run without
func (c *Config) Validate() error {
	if c.Schedule.Dt <= 0 || c.Schedule.Ddt <= 1 || c.Schedule.Divisor <= 0 {
		return fmt.Errorf("invalid tick schedule dt=%v ddt=%v divisor=%v",
			c.Schedule.Dt, c.Schedule.Ddt, c.Schedule.Divisor)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1, got %d", c.Engine.Workers)
	}

	switch c.Store.Dialect {
	case DialectJSON, DialectSQLite:
	case DialectPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store dialect postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported store dialect %q", c.Store.Dialect)
	}

	for name, t := range c.Theories {
		if t.Grid <= 0 {
			return fmt.Errorf("theory %s: grid must be positive", name)
		}
		if t.From >= t.To || t.To > t.CTEnd {
			return fmt.Errorf("theory %s: need from < to <= ct_end", name)
		}
		if t.A > t.B {
			return fmt.Errorf("theory %s: need a <= b", name)
		}
	}
	return nil
}
