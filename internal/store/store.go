// Package store persists profiles, hunts and encounters in DuckDB (default)
// or PostgreSQL. Every call is bounded by a fixed retry policy; writes are
// serialized per Store.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/resilience"
	"github.com/GriffinCanCode/encounter-tracker/internal/species"
	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
)

// Supported drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Seeded names.
const (
	DefaultProfileName = "Profile 1"
	DefaultHuntName    = "Hunt 1"
)

// Options tune a Store.
type Options struct {
	Retry resilience.RetryConfig
	// DryRun logs encounter writes instead of executing them.
	DryRun bool
	// LogQueries logs every statement with its arguments at debug level.
	LogQueries bool
	ExportDir  string
}

// Store wraps a database connection and exposes the tracker's persistence.
type Store struct {
	db        *sql.DB
	driver    string
	retry     resilience.RetryConfig
	dryRun    bool
	logQuery  bool
	exportDir string
	now       func() time.Time

	writeMu sync.Mutex
}

// Open connects to dsn with the named driver. An empty DuckDB dsn is in-memory.
func Open(driver, dsn string, opts Options) (*Store, error) {
	switch driver {
	case DriverDuckDB:
		if dsn != "" && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, apperrors.Wrapf(err, apperrors.CodePersistence, "create database dir for %s", dsn)
			}
		}
	case DriverPostgres:
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodePersistence, "open %s", driver)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrapf(err, apperrors.CodePersistence, "connect %s", driver)
	}

	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "data_exports"
	}
	return &Store{
		db:        db,
		driver:    driver,
		retry:     opts.Retry,
		dryRun:    opts.DryRun,
		logQuery:  opts.LogQueries,
		exportDir: opts.ExportDir,
		now:       time.Now,
	}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Setup creates the schema, seeds the default profile when none exists and
// fills species_names from the dictionary (insert-if-absent).
func (s *Store) Setup(ctx context.Context, names []species.Entry) error {
	return s.write(ctx, "setup", func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, coreSchema); err != nil {
			return err
		}

		var profiles int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&profiles); err != nil {
			return err
		}
		if profiles == 0 {
			if _, err := s.insertProfile(ctx, tx, DefaultProfileName); err != nil {
				return err
			}
		}

		const q = `INSERT INTO species_names (species_id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range names {
			if _, err := stmt.ExecContext(ctx, e.ID, e.Name); err != nil {
				return err
			}
		}
		s.logStatement(ctx, "seed species", q, len(names))
		return nil
	})
}

// write runs fn in a transaction under the write lock, retrying transient
// failures. Domain rejections pass through unchanged; anything else left
// after the last attempt becomes PERSISTENCE_FAILURE.
func (s *Store) write(ctx context.Context, action string, fn func(context.Context, *sql.Tx) error) error {
	ctx, span := trace.StartSpan(ctx, "store."+strings.ReplaceAll(action, " ", "_"))
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := resilience.Retry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
	return s.finish(ctx, span, action, err)
}

// read runs fn with the same bounded retry as writes.
func read[T any](ctx context.Context, s *Store, action string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := trace.StartSpan(ctx, "store."+strings.ReplaceAll(action, " ", "_"))
	defer span.End()

	v, err := resilience.Do(ctx, s.retry, func() (T, error) { return fn(ctx) })
	return v, s.finish(ctx, span, action, err)
}

func (s *Store) finish(ctx context.Context, span *trace.Span, action string, err error) error {
	if err == nil {
		return nil
	}
	span.SetAttr("error", err.Error())
	if !apperrors.IsRetryable(err) {
		return err
	}
	trace.Logger(ctx).Error("store operation failed", "action", action, "attempts", s.retry.MaxAttempts, "error", err)
	return apperrors.Wrapf(err, apperrors.CodePersistence, "%s failed after %d attempts", action, s.retry.MaxAttempts)
}

func (s *Store) logStatement(ctx context.Context, action, query string, args ...any) {
	if !s.logQuery {
		return
	}
	trace.Logger(ctx).Debug("store query", "action", action, "query", strings.Join(strings.Fields(query), " "), "args", args)
}

func insertID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}

func cleanName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Newf(apperrors.CodeInvalidArgument, "%s name must not be empty", kind)
	}
	return name, nil
}
