package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetraminz/tagforge/internal/cli/ui"
	"github.com/tetraminz/tagforge/internal/config"
	"github.com/tetraminz/tagforge/internal/runlog"
)

var (
	reportLedgerPath string
	reportRecent     int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "summarize past pipeline runs from the ledger",
	Long: `Summarize the run ledger: per-stage totals and the most recent runs.

The ledger is written only when TAGFORGE_LEDGER points at a SQLite file
during tag, paraphrase and merge runs. It records what happened; resumption
decisions never read it.`,
	Example: `  # Per-stage totals plus the ten most recent runs
  $ TAGFORGE_LEDGER=runs.db tagforge report

  # Explicit ledger path and a longer history
  $ tagforge report --ledger runs.db --recent 25`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportLedgerPath, "ledger", "", "ledger SQLite path (default $TAGFORGE_LEDGER)")
	reportCmd.Flags().IntVar(&reportRecent, "recent", 10, "number of recent runs to list")

	reportCmd.SilenceUsage = true
}

func runReport(cmd *cobra.Command, args []string) error {
	path := reportLedgerPath
	if path == "" {
		path = config.Load().LedgerPath
	}
	if path == "" {
		ui.PrintError("no ledger configured: set TAGFORGE_LEDGER or pass --ledger")
		return fmt.Errorf("ledger required")
	}

	report, err := runlog.BuildLedgerReport(path, reportRecent)
	if err != nil {
		ui.PrintError("read ledger: %v", err)
		return fmt.Errorf("report failed")
	}

	runlog.PrintLedgerReport(report)
	return nil
}
