package cmd

import (
	"os/signal"
	"syscall"

	"github.com/quell-dev/quell/internal/config"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the resolution scheduler until interrupted",
	Long: `Poll the tracker on the configured interval and resolve eligible
work units each pass. Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.start(ctx)
	config.Watch(func(cfg *config.Config) {
		app.scheduler.SetMaxPerRun(cfg.Scheduler.MaxUnitsPerRun)
		app.logger.Info("configuration reloaded",
			"max_units_per_run", cfg.Scheduler.MaxUnitsPerRun)
	}, func(err error) {
		app.logger.Warn("config reload rejected", "error", err)
	})

	app.logger.Info("daemon started",
		"interval", app.cfg.Scheduler.Interval(),
		"max_units_per_run", app.cfg.Scheduler.MaxUnitsPerRun,
		"parallel", app.cfg.Scheduler.Parallel)

	app.scheduler.Run(ctx)

	app.logger.Info("daemon stopped")
	return nil
}
