package cmd

import (
	"fmt"

	"github.com/quell-dev/quell/internal/processor"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <unit-id>...",
	Short: "Resolve specific work units once",
	Long: `Run the full resolution flow for one or more open work units and
exit. Units already recorded in the ledger are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx := cmd.Context()

	open, err := app.units.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("listing open units: %w", err)
	}
	byID := make(map[string]int, len(open))
	for i, unit := range open {
		byID[unit.ID] = i
	}

	var failed bool
	for _, id := range args {
		i, ok := byID[id]
		if !ok {
			fmt.Printf("[%s] not found among open units\n", id)
			failed = true
			continue
		}
		if entry, done := app.ledger.Get(id); done {
			fmt.Printf("[%s] already %s: %s\n", id, entry.Outcome, entry.Detail)
			continue
		}

		outcome := app.processor.ProcessUnit(ctx, open[i])
		printOutcome(outcome)
		if outcome.Status == processor.StatusFailed {
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("one or more units did not resolve")
	}
	return nil
}

func printOutcome(o processor.Outcome) {
	fmt.Printf("[%s] %s: %s\n", o.UnitID, o.Status, o.Detail)
	if o.Run != nil {
		fmt.Printf("    category: %s, iterations: %d\n", o.Run.Category, len(o.Run.Iterations))
		if o.Run.Final.Verdict != "" {
			fmt.Printf("    verdict: %s (score %.1f)\n", o.Run.Final.Verdict, o.Run.Final.Score)
		}
	}
}
