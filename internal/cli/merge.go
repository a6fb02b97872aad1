package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetraminz/tagforge/internal/cli/ui"
	"github.com/tetraminz/tagforge/internal/config"
	"github.com/tetraminz/tagforge/internal/merge"
	"github.com/tetraminz/tagforge/internal/pipeline"
)

var (
	mergeInputDir   string
	mergeOutputPath string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "merge per-tag files into one training dataset",
	Long: `Concatenate the per-tag paraphrase files into one dataset CSV.

Files are merged in ascending filename order, so repeated merges over the
same inputs produce identical output. The merged file is validated after
writing: per-tag row counts are checked against the configured target and
rows with empty fields are counted. An empty or missing input directory is
not an error; it yields a dataset with only the header row.`,
	Example: `  # Merge into a dated dataset file in the current directory
  $ tagforge merge --input-dir data/individual_tags

  # Explicit output path
  $ tagforge merge --input-dir data/individual_tags --output data/train.csv`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeInputDir, "input-dir", "data/individual_tags", "directory holding the per-tag files")
	mergeCmd.Flags().StringVarP(&mergeOutputPath, "output", "o", "", "merged dataset path (default merged_dataset_<date>.csv)")

	mergeCmd.SilenceUsage = true
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	outputPath := mergeOutputPath
	if outputPath == "" {
		outputPath = merge.OutputName(time.Now())
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		ui.PrintError("open ledger: %v", err)
		return fmt.Errorf("ledger unavailable")
	}
	defer ledger.Close()

	result, err := pipeline.RunMerge(pipeline.MergeConfig{
		InputDir:     mergeInputDir,
		OutputPath:   outputPath,
		ExpectedRows: cfg.TargetCount,
		Ledger:       ledger,
	})
	if errors.Is(err, merge.ErrNoInputFiles) {
		ui.PrintWarning("no per-tag files in %s; wrote empty dataset %s", mergeInputDir, result.OutputPath)
		return nil
	}
	if err != nil {
		ui.PrintError("merge: %v", err)
		return fmt.Errorf("merge failed")
	}

	ui.PrintSuccess("merged %d files (%d rows) into %s", result.Files, result.Rows, result.OutputPath)
	for _, m := range result.Mismatched {
		ui.PrintWarning("tag %s has %d rows, expected %d", m.Tag, m.Rows, cfg.TargetCount)
	}
	if result.EmptyFields > 0 {
		ui.PrintWarning("%d rows have an empty question or answer", result.EmptyFields)
	}
	return nil
}
