package cmd

import (
	"fmt"
	"sort"

	"github.com/quell-dev/quell/internal/config"
	"github.com/quell-dev/quell/internal/ledger"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processed-unit outcomes",
	Long:  `Display the ledger of processed work units and their outcomes.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	led, err := ledger.Open(cfg.Paths.ResolveDataDir())
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	entries := led.Entries()
	if len(entries) == 0 {
		fmt.Println("No units processed yet")
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RecordedAt.Before(entries[j].RecordedAt)
	})

	counts := make(map[ledger.Outcome]int)
	for _, e := range entries {
		counts[e.Outcome]++
	}
	fmt.Printf("Processed: %d (resolved %d, skipped %d, failed %d)\n\n",
		len(entries),
		counts[ledger.OutcomeResolved],
		counts[ledger.OutcomeSkipped],
		counts[ledger.OutcomeFailed])

	for _, e := range entries {
		fmt.Printf("[%s] %s at %s\n", e.UnitID, e.Outcome,
			e.RecordedAt.Format("2006-01-02 15:04:05"))
		if e.Detail != "" {
			fmt.Printf("    %s\n", e.Detail)
		}
	}
	return nil
}
