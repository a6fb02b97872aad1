// Package pipeline wires the dataset, tagging, paraphrase and merge stages
// into the flows behind the CLI commands. Each stage reads its input from
// disk and leaves its output on disk, so stages can run chained in one
// invocation or standalone across several.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tetraminz/tagforge/internal/dataset"
	"github.com/tetraminz/tagforge/internal/runlog"
	"github.com/tetraminz/tagforge/internal/tagging"
)

const (
	stageTag        = "tag"
	stageParaphrase = "paraphrase"
	stageMerge      = "merge"
)

// TagConfig drives one tag-generation run.
type TagConfig struct {
	InputPath string
	OutputDir string
	Mapping   dataset.ColumnMapping
	Client    tagging.LLMClient
	Service   tagging.Config
	Ledger    *runlog.Store // nil disables the ledger
}

// TagResult summarizes one tag-generation run.
type TagResult struct {
	Rows            int
	SkippedRows     int
	Units           int
	Tags            []string
	Failed          []tagging.FailedUnit
	QueriesTagsPath string
	TagsAnswersPath string
}

// RunTag partitions the input into tag units, resolves one tag per unit and
// writes the queries_tags and tags_answers tables into OutputDir. Units whose
// calls exhaust the retry budget are dropped from the tables and reported in
// the result; only a cancelled context or an I/O problem fails the run.
func RunTag(ctx context.Context, cfg TagConfig) (TagResult, error) {
	var result TagResult

	records, skippedRows, err := dataset.LoadQueryRecords(cfg.InputPath, cfg.Mapping)
	if err != nil {
		return result, err
	}
	result.Rows = len(records)
	result.SkippedRows = skippedRows
	if len(records) == 0 {
		return result, fmt.Errorf("no usable rows in %q", cfg.InputPath)
	}

	units := tagging.BuildTagUnits(records)
	result.Units = len(units)
	fmt.Printf("tag_start input=%s rows=%d skipped_rows=%d units=%d\n",
		cfg.InputPath, len(records), skippedRows, len(units))

	runID := startRun(cfg.Ledger, stageTag, cfg.InputPath, cfg.OutputDir)

	tagged, failed, err := tagging.NewService(cfg.Client, cfg.Service).GenerateTags(ctx, units)
	result.Failed = failed
	if err == nil && len(tagged) == 0 {
		err = fmt.Errorf("all %d units failed tag generation", len(failed))
	}
	if err != nil {
		for _, f := range failed {
			recordUnit(cfg.Ledger, runID, stageTag, f.GroupID, "failed", 0, f.Err.Error())
		}
		finishRun(cfg.Ledger, runID, tagCounters(tagged, failed), err)
		return result, err
	}

	binding := tagging.BindAnswers(records, tagged)
	result.Tags = binding.Tags()
	result.QueriesTagsPath = filepath.Join(cfg.OutputDir, dataset.QueriesTagsFile)
	result.TagsAnswersPath = filepath.Join(cfg.OutputDir, dataset.TagsAnswersFile)

	if err := dataset.WriteQueriesTags(result.QueriesTagsPath, binding.QueryTags()); err != nil {
		finishRun(cfg.Ledger, runID, tagCounters(tagged, failed), err)
		return result, err
	}
	if err := dataset.WriteTagsAnswers(result.TagsAnswersPath, binding.TagAnswers()); err != nil {
		finishRun(cfg.Ledger, runID, tagCounters(tagged, failed), err)
		return result, err
	}

	for _, unit := range tagged {
		recordUnit(cfg.Ledger, runID, stageTag, unit.GroupID, "ok", len(unit.Queries), unit.Tag)
	}
	for _, f := range failed {
		recordUnit(cfg.Ledger, runID, stageTag, f.GroupID, "failed", 0, f.Err.Error())
	}
	finishRun(cfg.Ledger, runID, tagCounters(tagged, failed), nil)

	fmt.Printf("tag_done output=%s tags=%d failed=%d queries=%d\n",
		cfg.OutputDir, len(result.Tags), len(failed), len(binding.QueryTags()))
	return result, nil
}

func tagCounters(tagged []tagging.TagUnit, failed []tagging.FailedUnit) runlog.Counters {
	return runlog.Counters{
		Total:     len(tagged) + len(failed),
		Succeeded: len(tagged),
		Failed:    len(failed),
	}
}
