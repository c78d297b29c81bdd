// Package store persists homogenization runs to SQLite so parameter sweeps
// can be compared after the fact.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/xupeiwust/TPMS-Designer/internal/monitoring"
	"github.com/xupeiwust/TPMS-Designer/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is one persisted field-generation and homogenization session with the
// parameters needed to reproduce it.
type Run struct {
	RunID          string          `json:"run_id"`
	Kind           string          `json:"kind"` // generator kind, e.g. "equation", "lattice"
	ParamsJSON     json.RawMessage `json:"params_json,omitempty"`
	VolumeFraction float64         `json:"volume_fraction"`
	StiffnessJSON  json.RawMessage `json:"stiffness_json,omitempty"` // 6x6 Voigt matrix, row-major
	ElapsedMS      int64           `json:"elapsed_ms"`
	CreatedAt      int64           `json:"created_at"` // unix ns
}

// Store provides persistence for runs.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the run database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, clock: timeutil.RealClock{}}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: load migrations: %w", err)
	}
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migration up failed: %w", err)
	}
	return nil
}

// retryOnBusy retries a statement a few times when SQLite reports the
// database is locked by a concurrent writer.
func (s *Store) retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		err = fn()
		if err == nil || !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		monitoring.Logf("store: database locked, retrying (attempt %d): %v", attempt+1, err)
		s.clock.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

// Insert persists a new run. If RunID is empty, a UUID is generated; if
// CreatedAt is zero, the current time is used.
func (s *Store) Insert(r *Run) error {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = s.clock.Now().UnixNano()
	}
	var params, stiffness interface{}
	if len(r.ParamsJSON) > 0 {
		params = string(r.ParamsJSON)
	}
	if len(r.StiffnessJSON) > 0 {
		stiffness = string(r.StiffnessJSON)
	}
	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO homog_runs (
				run_id, kind, params_json, volume_fraction,
				stiffness_json, elapsed_ms, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.Kind, params, r.VolumeFraction,
			stiffness, r.ElapsedMS, r.CreatedAt,
		)
		return err
	})
}

// Get returns a single run by ID.
func (s *Store) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, kind, params_json, volume_fraction,
		       stiffness_json, elapsed_ms, created_at
		FROM homog_runs WHERE run_id = ?`, runID)
	return scanRun(row)
}

// ListByKind returns all runs for a generator kind, newest first.
func (s *Store) ListByKind(kind string) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, kind, params_json, volume_fraction,
		       stiffness_json, elapsed_ms, created_at
		FROM homog_runs
		WHERE kind = ?
		ORDER BY created_at DESC`, kind)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var params, stiffness sql.NullString
	err := row.Scan(&r.RunID, &r.Kind, &params, &r.VolumeFraction,
		&stiffness, &r.ElapsedMS, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: scan run: %w", err)
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	if stiffness.Valid {
		r.StiffnessJSON = json.RawMessage(stiffness.String)
	}
	return &r, nil
}
