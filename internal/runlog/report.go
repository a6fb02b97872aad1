package runlog

import (
	"fmt"
	"strings"
)

// StageTotals aggregates all runs of one pipeline stage.
type StageTotals struct {
	Stage          string
	Runs           int
	Succeeded      int
	Failed         int
	UnitsSucceeded int
	UnitsResumed   int
	UnitsSkipped   int
	UnitsFailed    int
}

// RunSummary is one ledger row for the recent-runs listing.
type RunSummary struct {
	RunID        string
	Stage        string
	Status       string
	InputPath    string
	OutputDir    string
	Counters     Counters
	ErrorMessage string
	StartedAt    string
	FinishedAt   string
}

// LedgerReport is the rollup the report command renders.
type LedgerReport struct {
	Stages []StageTotals
	Recent []RunSummary
}

// BuildLedgerReport reads the ledger and aggregates per-stage totals plus
// the most recent runs, newest first.
func BuildLedgerReport(dbPath string, recentLimit int) (LedgerReport, error) {
	if recentLimit <= 0 {
		recentLimit = 10
	}

	db, err := openSQLite(dbPath)
	if err != nil {
		return LedgerReport{}, err
	}
	defer db.Close()
	if err := ensureLedgerSchema(db); err != nil {
		return LedgerReport{}, err
	}

	report := LedgerReport{}

	stageRows, err := db.Query(`
		SELECT
			stage,
			COUNT(*),
			SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			SUM(units_succeeded),
			SUM(units_resumed),
			SUM(units_skipped),
			SUM(units_failed)
		FROM runs
		GROUP BY stage
		ORDER BY stage
	`)
	if err != nil {
		return LedgerReport{}, fmt.Errorf("query stage totals: %w", err)
	}
	defer stageRows.Close()

	for stageRows.Next() {
		var totals StageTotals
		if err := stageRows.Scan(
			&totals.Stage,
			&totals.Runs,
			&totals.Succeeded,
			&totals.Failed,
			&totals.UnitsSucceeded,
			&totals.UnitsResumed,
			&totals.UnitsSkipped,
			&totals.UnitsFailed,
		); err != nil {
			return LedgerReport{}, fmt.Errorf("scan stage totals: %w", err)
		}
		report.Stages = append(report.Stages, totals)
	}
	if err := stageRows.Err(); err != nil {
		return LedgerReport{}, fmt.Errorf("iterate stage totals: %w", err)
	}

	recentRows, err := db.Query(`
		SELECT
			run_id,
			stage,
			status,
			input_path,
			output_dir,
			units_total,
			units_succeeded,
			units_resumed,
			units_skipped,
			units_failed,
			error_message,
			started_at_utc,
			finished_at_utc
		FROM runs
		ORDER BY started_at_utc DESC
		LIMIT ?
	`, recentLimit)
	if err != nil {
		return LedgerReport{}, fmt.Errorf("query recent runs: %w", err)
	}
	defer recentRows.Close()

	for recentRows.Next() {
		var run RunSummary
		if err := recentRows.Scan(
			&run.RunID,
			&run.Stage,
			&run.Status,
			&run.InputPath,
			&run.OutputDir,
			&run.Counters.Total,
			&run.Counters.Succeeded,
			&run.Counters.Resumed,
			&run.Counters.Skipped,
			&run.Counters.Failed,
			&run.ErrorMessage,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return LedgerReport{}, fmt.Errorf("scan recent run: %w", err)
		}
		report.Recent = append(report.Recent, run)
	}
	if err := recentRows.Err(); err != nil {
		return LedgerReport{}, fmt.Errorf("iterate recent runs: %w", err)
	}

	return report, nil
}

// FormatLedgerReport renders the rollup as key=value lines.
func FormatLedgerReport(r LedgerReport) string {
	var b strings.Builder

	for _, stage := range r.Stages {
		b.WriteString(fmt.Sprintf("stage=%s runs=%d succeeded=%d failed=%d units_ok=%d units_resumed=%d units_skipped=%d units_failed=%d\n",
			stage.Stage, stage.Runs, stage.Succeeded, stage.Failed,
			stage.UnitsSucceeded, stage.UnitsResumed, stage.UnitsSkipped, stage.UnitsFailed))
	}

	if len(r.Recent) > 0 {
		b.WriteString("recent_runs:\n")
		for _, run := range r.Recent {
			b.WriteString(fmt.Sprintf("  run=%s stage=%s status=%s units=%d/%d started=%s",
				shortRunID(run.RunID), run.Stage, run.Status,
				run.Counters.Succeeded+run.Counters.Resumed, run.Counters.Total, run.StartedAt))
			if run.ErrorMessage != "" {
				b.WriteString(fmt.Sprintf(" error=%q", run.ErrorMessage))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Stages) == 0 && len(r.Recent) == 0 {
		b.WriteString("ledger is empty\n")
	}
	return b.String()
}

// PrintLedgerReport writes the formatted rollup to stdout.
func PrintLedgerReport(r LedgerReport) {
	fmt.Print(FormatLedgerReport(r))
}

func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
