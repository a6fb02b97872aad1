// Package runlog persists run history to SQLite for the report command.
// The ledger is observability only: resume decisions are made from the
// per-tag output files, never from here.
package runlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	input_path TEXT NOT NULL DEFAULT '',
	output_dir TEXT NOT NULL DEFAULT '',
	units_total INTEGER NOT NULL DEFAULT 0,
	units_succeeded INTEGER NOT NULL DEFAULT 0,
	units_resumed INTEGER NOT NULL DEFAULT 0,
	units_skipped INTEGER NOT NULL DEFAULT 0,
	units_failed INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	started_at_utc TEXT NOT NULL,
	finished_at_utc TEXT NOT NULL DEFAULT ''
)`

const createUnitEventsTableSQL = `
CREATE TABLE IF NOT EXISTS unit_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	unit_key TEXT NOT NULL,
	status TEXT NOT NULL,
	rows INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT '',
	created_at_utc TEXT NOT NULL
)`

var createLedgerIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_runs_stage_started ON runs(stage, started_at_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_unit_events_run ON unit_events(run_id, stage)`,
	`CREATE INDEX IF NOT EXISTS idx_unit_events_status ON unit_events(status)`,
}

const insertRunSQL = `
INSERT INTO runs (run_id, stage, status, input_path, output_dir, started_at_utc)
VALUES (?, ?, ?, ?, ?, ?)`

const finishRunSQL = `
UPDATE runs
SET status = ?,
	units_total = ?,
	units_succeeded = ?,
	units_resumed = ?,
	units_skipped = ?,
	units_failed = ?,
	error_message = ?,
	finished_at_utc = ?
WHERE run_id = ?`

const insertUnitEventSQL = `
INSERT INTO unit_events (run_id, stage, unit_key, status, rows, detail, created_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// Run statuses stored in the ledger.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Counters summarize one run's units.
type Counters struct {
	Total     int
	Succeeded int
	Resumed   int
	Skipped   int
	Failed    int
}

// Store wraps the ledger database. A nil *Store is a disabled ledger: every
// method no-ops so callers need no conditionals.
type Store struct {
	db *sql.DB
}

// Open opens (creating when needed) the ledger at dbPath.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := ensureLedgerSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a running ledger row and returns its id.
func (s *Store) StartRun(stage, inputPath, outputDir string) (string, error) {
	if s == nil || s.db == nil {
		return "", nil
	}

	runID := uuid.NewString()
	startedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.Exec(insertRunSQL, runID, stage, RunStatusRunning, inputPath, outputDir, startedAt); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// FinishRun closes the run with its final counters. runErr of nil means the
// run succeeded; any unit-level failures are already in the counters.
func (s *Store) FinishRun(runID string, counters Counters, runErr error) error {
	if s == nil || s.db == nil {
		return nil
	}

	status := RunStatusSucceeded
	message := ""
	if runErr != nil {
		status = RunStatusFailed
		message = runErr.Error()
	}
	finishedAt := time.Now().UTC().Format(time.RFC3339)

	if _, err := s.db.Exec(
		finishRunSQL,
		status,
		counters.Total,
		counters.Succeeded,
		counters.Resumed,
		counters.Skipped,
		counters.Failed,
		message,
		finishedAt,
		runID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordUnitEvent appends one unit outcome to the ledger.
func (s *Store) RecordUnitEvent(runID, stage, unitKey, status string, rows int, detail string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if runID == "" {
		return nil
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.Exec(
		insertUnitEventSQL,
		runID,
		stage,
		strings.TrimSpace(unitKey),
		status,
		rows,
		strings.TrimSpace(detail),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert unit event: %w", err)
	}
	return nil
}

func openSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func ensureLedgerSchema(db *sql.DB) error {
	if _, err := db.Exec(createRunsTableSQL); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	if _, err := db.Exec(createUnitEventsTableSQL); err != nil {
		return fmt.Errorf("create unit_events table: %w", err)
	}

	missingRuns, err := missingTableColumns(db, "runs", requiredRunColumns())
	if err != nil {
		return err
	}
	if len(missingRuns) > 0 {
		sort.Strings(missingRuns)
		return fmt.Errorf("incompatible runs schema, missing columns: %s", strings.Join(missingRuns, ", "))
	}

	missingEvents, err := missingTableColumns(db, "unit_events", requiredUnitEventColumns())
	if err != nil {
		return err
	}
	if len(missingEvents) > 0 {
		sort.Strings(missingEvents)
		return fmt.Errorf("incompatible unit_events schema, missing columns: %s", strings.Join(missingEvents, ", "))
	}

	for _, stmt := range createLedgerIndexesSQL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create ledger index: %w", err)
		}
	}
	return nil
}

func requiredRunColumns() []string {
	return []string{
		"run_id",
		"stage",
		"status",
		"input_path",
		"output_dir",
		"units_total",
		"units_succeeded",
		"units_resumed",
		"units_skipped",
		"units_failed",
		"error_message",
		"started_at_utc",
		"finished_at_utc",
	}
}

func requiredUnitEventColumns() []string {
	return []string{
		"id",
		"run_id",
		"stage",
		"unit_key",
		"status",
		"rows",
		"detail",
		"created_at_utc",
	}
}

func missingTableColumns(db *sql.DB, tableName string, required []string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, tableName))
	if err != nil {
		return nil, fmt.Errorf("inspect %s schema: %w", tableName, err)
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var cid int
		var name string
		var colType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("scan %s schema: %w", tableName, err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s schema: %w", tableName, err)
	}

	var missing []string
	for _, col := range required {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing, nil
}
