package pipeline

import (
	"fmt"

	"github.com/tetraminz/tagforge/internal/runlog"
)

// Ledger writes never fail a stage; problems are reported as event lines and
// the run continues without further recording.

func startRun(store *runlog.Store, stage, inputPath, outputDir string) string {
	runID, err := store.StartRun(stage, inputPath, outputDir)
	if err != nil {
		fmt.Printf("ledger_error op=start_run stage=%s error=%q\n", stage, err)
		return ""
	}
	return runID
}

func recordUnit(store *runlog.Store, runID, stage, unitKey, status string, rows int, detail string) {
	if runID == "" {
		return
	}
	if err := store.RecordUnitEvent(runID, stage, unitKey, status, rows, detail); err != nil {
		fmt.Printf("ledger_error op=unit_event stage=%s unit=%s error=%q\n", stage, unitKey, err)
	}
}

func finishRun(store *runlog.Store, runID string, counters runlog.Counters, runErr error) {
	if runID == "" {
		return
	}
	if err := store.FinishRun(runID, counters, runErr); err != nil {
		fmt.Printf("ledger_error op=finish_run stage_run=%s error=%q\n", runID, err)
	}
}
