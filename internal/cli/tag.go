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
	"github.com/tetraminz/tagforge/internal/tagging"
)

var (
	tagInput        string
	tagOutputDir    string
	tagMappingFile  string
	tagQueryColumn  string
	tagAnswerColumn string
	tagIDColumn     string
	tagLimit        int
	tagParaphrase   bool
	tagExclude      []string
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "generate one tag per question group",
	Long: `Generate one short topic tag for every question group in the input CSV.

The input holds one row per question with its answer and a group id; rows
sharing a group id form one unit and get one tag. The command writes two
tables into the output directory: queries_tags.csv (question, tag) and
tags_answers.csv (tag, answer). Groups whose tag generation keeps failing
are reported and left out; the run itself still succeeds.`,
	Example: `  # Tag groups from a standard query/answer/id CSV
  $ OPENAI_API_KEY=... tagforge tag --input data/queries.csv --output-dir data

  # Non-standard column names
  $ tagforge tag --input dump.csv --query-column question --id-column topic_id

  # Dry run over the first three groups, then chain paraphrase generation
  $ tagforge tag --input data/queries.csv --limit 3 --paraphrase`,
	RunE: runTag,
}

func init() {
	tagCmd.Flags().StringVarP(&tagInput, "input", "i", "", "CSV with question, answer and group id columns (required)")
	tagCmd.Flags().StringVarP(&tagOutputDir, "output-dir", "o", "data", "directory for the tag tables")
	tagCmd.Flags().StringVar(&tagMappingFile, "mapping", "", "YAML file overriding input column names")
	tagCmd.Flags().StringVar(&tagQueryColumn, "query-column", "", "input column holding the question")
	tagCmd.Flags().StringVar(&tagAnswerColumn, "answer-column", "", "input column holding the answer")
	tagCmd.Flags().StringVar(&tagIDColumn, "id-column", "", "input column holding the group id")
	tagCmd.Flags().IntVar(&tagLimit, "limit", 0, "process only the first N groups (0 = all)")
	tagCmd.Flags().BoolVar(&tagParaphrase, "paraphrase", false, "generate paraphrases for the new tags in the same run")
	tagCmd.Flags().StringSliceVar(&tagExclude, "exclude", nil, "tags to skip during chained paraphrase generation")
	_ = tagCmd.MarkFlagRequired("input")

	tagCmd.SilenceUsage = true
}

func runTag(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		ui.PrintError("configuration: %v", err)
		return fmt.Errorf("invalid configuration")
	}

	mapping, err := resolveMapping(tagMappingFile, tagQueryColumn, tagAnswerColumn, tagIDColumn)
	if err != nil {
		ui.PrintError("column mapping: %v", err)
		return fmt.Errorf("invalid column mapping")
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		ui.PrintError("open ledger: %v", err)
		return fmt.Errorf("ledger unavailable")
	}
	defer ledger.Close()

	client := newClient(cfg)
	result, err := pipeline.RunTag(cmd.Context(), pipeline.TagConfig{
		InputPath: tagInput,
		OutputDir: tagOutputDir,
		Mapping:   mapping,
		Client:    client,
		Service: tagging.Config{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.Backoff(),
			UnitLimit:   tagLimit,
		},
		Ledger: ledger,
	})
	if err != nil {
		ui.PrintError("tag generation: %v", err)
		return fmt.Errorf("tag stage failed")
	}

	ui.PrintSuccess("%d tags written to %s", len(result.Tags), tagOutputDir)
	if len(result.Failed) > 0 {
		ui.PrintWarning("%d groups failed tag generation and were left untagged", len(result.Failed))
	}

	if !tagParaphrase {
		return nil
	}

	// Chained generation keeps the tag tables' discovery order.
	paraphrased, err := pipeline.RunParaphrase(cmd.Context(), pipeline.ParaphraseConfig{
		TablesDir:   tagOutputDir,
		TargetCount: cfg.TargetCount,
		ExcludeTags: tagExclude,
		Client:      client,
		Generator: paraphrase.Config{
			OutputDir:   filepath.Join(tagOutputDir, dataset.TagFilesDir),
			BatchSize:   cfg.BatchSize,
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.Backoff(),
			Pacing:      cfg.Pacing(),
		},
		Ledger: ledger,
	})
	if err != nil {
		ui.PrintError("paraphrase generation: %v", err)
		return fmt.Errorf("paraphrase stage failed")
	}
	reportParaphraseSummary(paraphrased.Summary)
	return nil
}

// resolveMapping layers the column sources: defaults, then the mapping file,
// then individual column flags.
func resolveMapping(file, query, answer, id string) (dataset.ColumnMapping, error) {
	mapping := dataset.DefaultMapping()
	if file != "" {
		loaded, err := dataset.LoadMappingFile(file)
		if err != nil {
			return dataset.ColumnMapping{}, err
		}
		mapping = loaded
	}
	if query != "" {
		mapping.Query = query
	}
	if answer != "" {
		mapping.Answer = answer
	}
	if id != "" {
		mapping.ID = id
	}
	return mapping, nil
}
