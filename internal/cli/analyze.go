package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetraminz/tagforge/internal/analysis"
	"github.com/tetraminz/tagforge/internal/cli/ui"
	"github.com/tetraminz/tagforge/internal/dataset"
)

var (
	analyzeInput           string
	analyzeExpectedColumn  string
	analyzePredictedColumn string
	analyzeByAccuracy      bool
	analyzeByCount         bool
	analyzeByName          bool
	analyzeAscending       bool
	analyzeTop             int
	analyzeWorst           int
	analyzeBest            int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "per-tag accuracy from an evaluation CSV",
	Long: `Compute per-tag accuracy from bot evaluation results.

Every row pairs the tag the bot should have predicted with the tag it did
predict. A mismatch counts as a wrong answer for the expected tag, which is
the tag whose training data needs work. Tags are marked by accuracy tier:
✓ at 90% and above, ~ between 70% and 90%, ✗ below 70%.`,
	Example: `  # Full table, busiest tags first
  $ tagforge analyze --input eval/results.csv

  # Ten tags most in need of new training data
  $ tagforge analyze --input eval/results.csv --worst 10

  # Alphabetical listing of the first twenty tags
  $ tagforge analyze --input eval/results.csv --by-name --asc --top 20`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "evaluation CSV (required)")
	analyzeCmd.Flags().StringVar(&analyzeExpectedColumn, "expected-column", dataset.DefaultExpectedColumn, "column holding the expected tag")
	analyzeCmd.Flags().StringVar(&analyzePredictedColumn, "predicted-column", dataset.DefaultPredictedColumn, "column holding the predicted tag")
	analyzeCmd.Flags().BoolVar(&analyzeByAccuracy, "by-accuracy", false, "sort by accuracy")
	analyzeCmd.Flags().BoolVar(&analyzeByCount, "by-count", false, "sort by answer count (default)")
	analyzeCmd.Flags().BoolVar(&analyzeByName, "by-name", false, "sort by tag name")
	analyzeCmd.Flags().BoolVar(&analyzeAscending, "asc", false, "sort ascending instead of descending")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 0, "show only the first N tags (0 = all)")
	analyzeCmd.Flags().IntVar(&analyzeWorst, "worst", 0, "show the N least accurate tags")
	analyzeCmd.Flags().IntVar(&analyzeBest, "best", 0, "show the N most accurate tags")
	_ = analyzeCmd.MarkFlagRequired("input")

	analyzeCmd.SilenceUsage = true
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	analyzer, err := analysis.LoadEvaluationCSV(analyzeInput, analyzeExpectedColumn, analyzePredictedColumn)
	if err != nil {
		ui.PrintError("load evaluation: %v", err)
		return fmt.Errorf("analyze failed")
	}

	fmt.Println(analysis.FormatOverview(analyzer.Overview()))

	if analyzeWorst > 0 {
		fmt.Println(analysis.FormatStatsTable(fmt.Sprintf("Worst %d tags", analyzeWorst), analyzer.WorstTags(analyzeWorst)))
	}
	if analyzeBest > 0 {
		fmt.Println(analysis.FormatStatsTable(fmt.Sprintf("Best %d tags", analyzeBest), analyzer.BestTags(analyzeBest)))
	}
	if analyzeWorst > 0 || analyzeBest > 0 {
		return nil
	}

	stats := analyzer.Stats(analysis.SortOptions{
		Key:       analysis.ResolveSortKey(analyzeByAccuracy, analyzeByCount, analyzeByName),
		Ascending: analyzeAscending,
		Limit:     analyzeTop,
	})
	fmt.Println(analysis.FormatStatsTable("Per-tag accuracy", stats))
	return nil
}
