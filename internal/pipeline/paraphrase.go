package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tetraminz/tagforge/internal/dataset"
	"github.com/tetraminz/tagforge/internal/paraphrase"
	"github.com/tetraminz/tagforge/internal/runlog"
	"github.com/tetraminz/tagforge/internal/tagging"
)

// ParaphraseConfig drives one paraphrase-generation run over previously
// written tag tables.
type ParaphraseConfig struct {
	TablesDir   string // directory holding queries_tags.csv and tags_answers.csv
	TargetCount int
	ExcludeTags []string
	SortTasks   bool // standalone runs sort by tag; chained runs keep discovery order
	Client      paraphrase.LLMClient
	Generator   paraphrase.Config
	Ledger      *runlog.Store // nil disables the ledger
}

// ParaphraseResult summarizes one paraphrase-generation run.
type ParaphraseResult struct {
	Tasks   int
	Summary paraphrase.Summary
}

// RunParaphrase rebuilds the tag binding from the tables in TablesDir, builds
// one task per tag and generates the per-tag paraphrase files. Completed tags
// survive interruption; rerunning resumes from whatever per-tag files already
// exist in the output directory.
func RunParaphrase(ctx context.Context, cfg ParaphraseConfig) (ParaphraseResult, error) {
	var result ParaphraseResult

	queryTags, err := dataset.ReadQueriesTags(filepath.Join(cfg.TablesDir, dataset.QueriesTagsFile))
	if err != nil {
		return result, err
	}
	tagAnswers, err := dataset.ReadTagsAnswers(filepath.Join(cfg.TablesDir, dataset.TagsAnswersFile))
	if err != nil {
		return result, err
	}

	binding := tagging.BindingFromTables(queryTags, tagAnswers)
	tasks, skipped := paraphrase.BuildTasks(binding, cfg.TargetCount, cfg.ExcludeTags)
	if cfg.SortTasks {
		paraphrase.SortTasks(tasks)
	}
	result.Tasks = len(tasks)

	fmt.Printf("paraphrase_start tables=%s output=%s tasks=%d skipped=%d target=%d batch=%d\n",
		cfg.TablesDir, cfg.Generator.OutputDir, len(tasks), len(skipped), cfg.TargetCount, cfg.Generator.BatchSize)
	for _, skip := range skipped {
		fmt.Printf("paraphrase_skip tag=%s reason=%q\n", skip.Tag, skip.Reason)
	}

	runID := startRun(cfg.Ledger, stageParaphrase, cfg.TablesDir, cfg.Generator.OutputDir)
	for _, skip := range skipped {
		recordUnit(cfg.Ledger, runID, stageParaphrase, skip.Tag, "skipped", 0, skip.Reason.Error())
	}

	summary, runErr := paraphrase.NewGenerator(cfg.Client, cfg.Generator).Run(ctx, tasks)
	summary.Skipped = skipped
	result.Summary = summary
	if runErr == nil && len(summary.Failed) > 0 && len(summary.Completed)+len(summary.Resumed) == 0 {
		runErr = fmt.Errorf("all %d paraphrase tasks failed", len(summary.Failed))
	}

	for _, tag := range summary.Completed {
		recordUnit(cfg.Ledger, runID, stageParaphrase, tag, "complete", cfg.TargetCount, "")
	}
	for _, tag := range summary.Resumed {
		recordUnit(cfg.Ledger, runID, stageParaphrase, tag, "resumed", cfg.TargetCount, "")
	}
	for _, f := range summary.Failed {
		recordUnit(cfg.Ledger, runID, stageParaphrase, f.Tag, "failed", 0, f.Err.Error())
	}
	finishRun(cfg.Ledger, runID, paraphraseCounters(summary), runErr)
	if runErr != nil {
		return result, runErr
	}

	fmt.Printf("paraphrase_done completed=%d resumed=%d failed=%d skipped=%d\n",
		len(summary.Completed), len(summary.Resumed), len(summary.Failed), len(summary.Skipped))
	return result, nil
}

func paraphraseCounters(s paraphrase.Summary) runlog.Counters {
	return runlog.Counters{
		Total:     len(s.Completed) + len(s.Resumed) + len(s.Failed) + len(s.Skipped),
		Succeeded: len(s.Completed),
		Resumed:   len(s.Resumed),
		Skipped:   len(s.Skipped),
		Failed:    len(s.Failed),
	}
}
