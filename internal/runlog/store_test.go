package runlog

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func TestStoreRunLifecycle(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)

	runID, err := store.StartRun("tag", "input.csv", "data")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected a run id")
	}

	var status string
	if err := store.db.QueryRow(`SELECT status FROM runs WHERE run_id = ?`, runID).Scan(&status); err != nil {
		t.Fatalf("query run: %v", err)
	}
	if got, want := status, RunStatusRunning; got != want {
		t.Fatalf("status got %q want %q", got, want)
	}

	counters := Counters{Total: 3, Succeeded: 2, Failed: 1}
	if err := store.FinishRun(runID, counters, nil); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	var finished string
	var unitsFailed int
	if err := store.db.QueryRow(
		`SELECT status, units_failed FROM runs WHERE run_id = ?`, runID,
	).Scan(&finished, &unitsFailed); err != nil {
		t.Fatalf("query finished run: %v", err)
	}
	if got, want := finished, RunStatusSucceeded; got != want {
		t.Fatalf("final status got %q want %q", got, want)
	}
	if got, want := unitsFailed, 1; got != want {
		t.Fatalf("units_failed got %d want %d", got, want)
	}
}

func TestStoreFinishRunRecordsFailure(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)

	runID, err := store.StartRun("paraphrase", "", "data/individual_tags")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := store.FinishRun(runID, Counters{Total: 1, Failed: 1}, errors.New("context canceled")); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	var status, message string
	if err := store.db.QueryRow(
		`SELECT status, error_message FROM runs WHERE run_id = ?`, runID,
	).Scan(&status, &message); err != nil {
		t.Fatalf("query run: %v", err)
	}
	if got, want := status, RunStatusFailed; got != want {
		t.Fatalf("status got %q want %q", got, want)
	}
	if got, want := message, "context canceled"; got != want {
		t.Fatalf("error message got %q want %q", got, want)
	}
}

func TestStoreRecordsUnitEvents(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)

	runID, err := store.StartRun("tag", "input.csv", "data")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}

	if err := store.RecordUnitEvent(runID, "tag", " polling_station ", "ok", 12, ""); err != nil {
		t.Fatalf("record ok event: %v", err)
	}
	if err := store.RecordUnitEvent(runID, "tag", "7", "failed", 0, "boom"); err != nil {
		t.Fatalf("record failed event: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM unit_events WHERE run_id = ?`, runID).Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if got, want := count, 2; got != want {
		t.Fatalf("event count got %d want %d", got, want)
	}

	var unitKey string
	var rows int
	if err := store.db.QueryRow(
		`SELECT unit_key, rows FROM unit_events WHERE run_id = ? AND status = 'ok'`, runID,
	).Scan(&unitKey, &rows); err != nil {
		t.Fatalf("query ok event: %v", err)
	}
	if got, want := unitKey, "polling_station"; got != want {
		t.Fatalf("unit key got %q want %q", got, want)
	}
	if got, want := rows, 12; got != want {
		t.Fatalf("rows got %d want %d", got, want)
	}
}

func TestStoreIgnoresEventsWithoutRunID(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)

	if err := store.RecordUnitEvent("", "tag", "unit", "ok", 1, ""); err != nil {
		t.Fatalf("record event: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM unit_events`).Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if got, want := count, 0; got != want {
		t.Fatalf("event count got %d want %d", got, want)
	}
}

func TestNilStoreNoOps(t *testing.T) {
	t.Parallel()

	var store *Store

	runID, err := store.StartRun("tag", "input.csv", "data")
	if err != nil {
		t.Fatalf("nil StartRun error: %v", err)
	}
	if runID != "" {
		t.Fatalf("nil StartRun run id got %q want empty", runID)
	}
	if err := store.RecordUnitEvent("id", "tag", "unit", "ok", 1, ""); err != nil {
		t.Fatalf("nil RecordUnitEvent error: %v", err)
	}
	if err := store.FinishRun("id", Counters{}, nil); err != nil {
		t.Fatalf("nil FinishRun error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("nil Close error: %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()

	if _, err := store.StartRun("merge", "", "out"); err != nil {
		t.Fatalf("start run: %v", err)
	}
}

func TestOpenAcceptsExistingLedger(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	first, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	runID, err := first.StartRun("tag", "input.csv", "data")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := first.FinishRun(runID, Counters{Total: 1, Succeeded: 1}, nil); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	var count int
	if err := second.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if got, want := count, 1; got != want {
		t.Fatalf("run count got %d want %d", got, want)
	}
}
