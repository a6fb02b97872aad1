package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tetraminz/tagforge/internal/cli/ui"
	"github.com/tetraminz/tagforge/internal/config"
	"github.com/tetraminz/tagforge/internal/dataset"
	"github.com/tetraminz/tagforge/internal/paraphrase"
	"github.com/tetraminz/tagforge/internal/pipeline"
)

var (
	paraphraseTablesDir string
	paraphraseOutputDir string
	paraphraseExclude   []string
	paraphraseLimit     int
)

var paraphraseCmd = &cobra.Command{
	Use:   "paraphrase",
	Short: "generate paraphrases for previously written tags",
	Long: `Generate paraphrased questions for every tag in the tag tables.

Each tag becomes one task: the model writes paraphrases in batches until the
per-tag target count is reached, then the per-tag CSV is written in a single
atomic step. Tags whose file already holds the full target count are skipped,
so an interrupted run can simply be started again. A tag whose batches keep
failing is abandoned for this run and retried from scratch next time; it
never leaves a partial file behind.`,
	Example: `  # Generate paraphrases for all tags in data/
  $ OPENAI_API_KEY=... tagforge paraphrase --tables-dir data

  # Resume after an interruption; completed tags cost no calls
  $ tagforge paraphrase --tables-dir data

  # Skip tags that already have hand-written material
  $ tagforge paraphrase --tables-dir data --exclude greetings,smalltalk`,
	RunE: runParaphrase,
}

func init() {
	paraphraseCmd.Flags().StringVar(&paraphraseTablesDir, "tables-dir", "data", "directory holding queries_tags.csv and tags_answers.csv")
	paraphraseCmd.Flags().StringVarP(&paraphraseOutputDir, "output-dir", "o", "", "directory for per-tag files (default <tables-dir>/individual_tags)")
	paraphraseCmd.Flags().StringSliceVar(&paraphraseExclude, "exclude", nil, "tags to skip")
	paraphraseCmd.Flags().IntVar(&paraphraseLimit, "limit", 0, "process only the first N tags (0 = all)")

	paraphraseCmd.SilenceUsage = true
}

func runParaphrase(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		ui.PrintError("configuration: %v", err)
		return fmt.Errorf("invalid configuration")
	}

	outputDir := paraphraseOutputDir
	if outputDir == "" {
		outputDir = filepath.Join(paraphraseTablesDir, dataset.TagFilesDir)
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		ui.PrintError("open ledger: %v", err)
		return fmt.Errorf("ledger unavailable")
	}
	defer ledger.Close()

	result, err := pipeline.RunParaphrase(cmd.Context(), pipeline.ParaphraseConfig{
		TablesDir:   paraphraseTablesDir,
		TargetCount: cfg.TargetCount,
		ExcludeTags: paraphraseExclude,
		SortTasks:   true,
		Client:      newClient(cfg),
		Generator: paraphrase.Config{
			OutputDir:   outputDir,
			BatchSize:   cfg.BatchSize,
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.Backoff(),
			Pacing:      cfg.Pacing(),
			TaskLimit:   paraphraseLimit,
		},
		Ledger: ledger,
	})
	if err != nil {
		ui.PrintError("paraphrase generation: %v", err)
		return fmt.Errorf("paraphrase stage failed")
	}

	reportParaphraseSummary(result.Summary)
	return nil
}

func reportParaphraseSummary(s paraphrase.Summary) {
	ui.PrintSuccess("%d tags completed, %d already done", len(s.Completed), len(s.Resumed))
	for _, f := range s.Failed {
		ui.PrintWarning("tag %s failed: %v", f.Tag, f.Err)
	}
	for _, skip := range s.Skipped {
		ui.PrintWarning("tag %s skipped: %v", skip.Tag, skip.Reason)
	}
}
