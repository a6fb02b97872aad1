package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tetraminz/tagforge/internal/merge"
	"github.com/tetraminz/tagforge/internal/runlog"
)

// MergeConfig drives one merge run.
type MergeConfig struct {
	InputDir     string
	OutputPath   string
	ExpectedRows int // per-tag row count to validate against; 0 disables
	Ledger       *runlog.Store
}

// RunMerge concatenates the per-tag files into one dataset and validates the
// written file. A missing or empty input directory still produces the
// header-only dataset; the error is merge.ErrNoInputFiles so callers can
// report it without failing the run.
func RunMerge(cfg MergeConfig) (merge.Result, error) {
	fmt.Printf("merge_start input=%s output=%s\n", cfg.InputDir, cfg.OutputPath)
	runID := startRun(cfg.Ledger, stageMerge, cfg.InputDir, filepath.Dir(cfg.OutputPath))

	result, err := merge.Merge(cfg.InputDir, cfg.OutputPath, cfg.ExpectedRows)
	if err != nil && !errors.Is(err, merge.ErrNoInputFiles) {
		finishRun(cfg.Ledger, runID, mergeCounters(result), err)
		return result, err
	}

	mismatched := make(map[string]bool, len(result.Mismatched))
	for _, m := range result.Mismatched {
		mismatched[m.Tag] = true
	}
	for _, pt := range result.PerTag {
		status := "ok"
		if mismatched[pt.Tag] {
			status = "size_mismatch"
		}
		recordUnit(cfg.Ledger, runID, stageMerge, pt.Tag, status, pt.Rows, "")
	}
	finishRun(cfg.Ledger, runID, mergeCounters(result), nil)

	fmt.Printf("merge_done output=%s files=%d rows=%d empty_fields=%d mismatched=%d\n",
		result.OutputPath, result.Files, result.Rows, result.EmptyFields, len(result.Mismatched))
	return result, err
}

func mergeCounters(result merge.Result) runlog.Counters {
	return runlog.Counters{
		Total:     result.Files,
		Succeeded: result.Files - len(result.Mismatched),
		Failed:    len(result.Mismatched),
	}
}
