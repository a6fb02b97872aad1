// Package cli defines the tagforge command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetraminz/tagforge/internal/config"
	"github.com/tetraminz/tagforge/internal/openai"
	"github.com/tetraminz/tagforge/internal/runlog"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "tagforge",
	Short:   "Training data pipeline for a question-answering bot",
	Version: version,
	Long: `tagforge turns a raw CSV of grouped user questions into a training
dataset: it names each question group with a short tag, generates paraphrases
for every tag, merges the per-tag files into one dataset and reports
per-tag accuracy from evaluation runs.`,
	Example: `  # Generate tags for grouped questions, then paraphrases in one go
  $ OPENAI_API_KEY=... tagforge tag --input data/queries.csv --output-dir data --paraphrase

  # Resume an interrupted paraphrase run
  $ OPENAI_API_KEY=... tagforge paraphrase --tables-dir data

  # Merge the per-tag files into one dataset
  $ tagforge merge --input-dir data/individual_tags

  # Per-tag accuracy from an evaluation CSV
  $ tagforge analyze --input eval/results.csv --worst 10`,
}

// Execute runs the command tree under ctx; cancelling ctx stops generation
// between units, leaving completed per-tag files in place.
func Execute(ctx context.Context) error {
	rootCmd.SetVersionTemplate(fmt.Sprintf("tagforge version %s\n", version))
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(paraphraseCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
}

// newClient builds the OpenAI client from validated settings.
func newClient(cfg *config.Config) *openai.Client {
	return openai.NewClient(openai.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout(),
	}, nil)
}

// openLedger opens the run ledger when one is configured. A nil store is a
// disabled ledger; every write on it is a no-op.
func openLedger(cfg *config.Config) (*runlog.Store, error) {
	if cfg.LedgerPath == "" {
		return nil, nil
	}
	return runlog.Open(cfg.LedgerPath)
}
