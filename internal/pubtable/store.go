package pubtable

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/napolitain/theory-sim/internal/models"
)

// BuildRun is the record of one table build
type BuildRun struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Theory     string        `json:"theory" db:"theory"`
	From       uint32        `json:"from" db:"from_idx"`
	To         uint32        `json:"to" db:"to_idx"`
	Entries    int           `json:"entries" db:"entries"`
	Forks      int64         `json:"forks" db:"forks"`
	Duration   time.Duration `json:"duration_ns" db:"duration_ns"`
	FinishedAt time.Time     `json:"finished_at" db:"finished_at"`
}

// NewBuildRun records stats of a build of theory over [from, to)
func NewBuildRun(theory string, from, to uint32, stats BuildStats) BuildRun {
	return BuildRun{
		ID:         uuid.New(),
		Theory:     theory,
		From:       from,
		To:         to,
		Entries:    stats.Entries,
		Forks:      stats.Forks,
		Duration:   stats.Duration,
		FinishedAt: time.Now().UTC(),
	}
}

// Store persists publication tables by theory name
type Store interface {
	// Load returns the table of theory, or an empty table if none is stored
	Load(ctx context.Context, theory string) (Table, error)
	// Save replaces the stored table of theory
	Save(ctx context.Context, theory string, t Table) error
	// RecordBuild stores a summary of a finished build
	RecordBuild(ctx context.Context, run BuildRun) error
	Close() error
}

// OpenStore opens the store selected by the config
func OpenStore(ctx context.Context, cfg models.StoreConfig) (Store, error) {
	switch cfg.Dialect {
	case models.DialectJSON:
		return NewJSONStore(cfg.JSONDir)
	case models.DialectSQLite:
		return OpenSQLStore(ctx, models.DialectSQLite, cfg.SQLitePath)
	case models.DialectPostgres:
		return OpenSQLStore(ctx, models.DialectPostgres, cfg.PostgresDSN)
	}
	return nil, fmt.Errorf("unsupported store dialect %q", cfg.Dialect)
}
