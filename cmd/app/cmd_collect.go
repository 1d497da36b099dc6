package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var collectOnce bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Poll the exchange and store snapshots until interrupted",
	Long: `Collect captures one snapshot per poll interval, stores it and records
intraday signals detected against the previous snapshot. The signal log is
reset at the first snapshot of each UTC day.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().BoolVar(&collectOnce, "once", false, "collect a single snapshot and exit")
}

func runCollect(cmd *cobra.Command, args []string) error {
	c, cleanup, err := newContainer()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if collectOnce {
		cycle, err := c.Collector.RunOnce(ctx)
		if err != nil {
			return err
		}
		printCycle(cmd.OutOrStdout(), cycle)
		return nil
	}
	return c.Collector.Run(ctx)
}
