package pubtable

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/napolitain/theory-sim/internal/models"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore keeps tables in SQLite or Postgres
type SQLStore struct {
	dialect string
	db      *sqlx.DB
}

// OpenSQLStore connects to the database and applies pending migrations. For
// sqlite, dsn is a file path.
func OpenSQLStore(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	var driverName string
	switch dialect {
	case models.DialectSQLite:
		driverName = "sqlite"
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	case models.DialectPostgres:
		driverName = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	s := &SQLStore{dialect: dialect, db: db}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var versions []string
	if err := s.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", s.dialect))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		sqlBytes, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := tx.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)")
		if _, err := tx.ExecContext(ctx, q, base, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

type entryRow struct {
	Idx uint32 `db:"idx"`
	Entry
}

// Load returns the stored table of theory
func (s *SQLStore) Load(ctx context.Context, theory string) (Table, error) {
	var rows []entryRow
	q := s.db.Rebind("SELECT idx, next_idx, t FROM pub_entries WHERE theory = ?")
	if err := s.db.SelectContext(ctx, &rows, q, theory); err != nil {
		return nil, fmt.Errorf("load %s table: %w", theory, err)
	}

	t := make(Table, len(rows))
	for _, r := range rows {
		t[r.Idx] = r.Entry
	}
	return t, nil
}

// Save replaces the stored table of theory in one transaction
func (s *SQLStore) Save(ctx context.Context, theory string, t Table) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM pub_entries WHERE theory = ?"), theory); err != nil {
		return fmt.Errorf("clear %s table: %w", theory, err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		"INSERT INTO pub_entries (theory, idx, next_idx, t) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, idx := range t.Keys() {
		e := t[idx]
		if _, err := stmt.ExecContext(ctx, theory, int64(idx), int64(e.Next), e.T); err != nil {
			return fmt.Errorf("insert %s entry %d: %w", theory, idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

// RecordBuild inserts the run into build_runs
func (s *SQLStore) RecordBuild(ctx context.Context, run BuildRun) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO build_runs (id, theory, from_idx, to_idx, entries, forks, duration_ns, finished_at)
		VALUES (:id, :theory, :from_idx, :to_idx, :entries, :forks, :duration_ns, :finished_at)`, run)
	if err != nil {
		return fmt.Errorf("record build run: %w", err)
	}
	return nil
}

// Builds returns the recorded runs of theory, newest first
func (s *SQLStore) Builds(ctx context.Context, theory string) ([]BuildRun, error) {
	var runs []BuildRun
	q := s.db.Rebind(`
		SELECT id, theory, from_idx, to_idx, entries, forks, duration_ns, finished_at
		FROM build_runs WHERE theory = ? ORDER BY finished_at DESC`)
	if err := s.db.SelectContext(ctx, &runs, q, theory); err != nil {
		return nil, fmt.Errorf("list %s builds: %w", theory, err)
	}
	return runs, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
