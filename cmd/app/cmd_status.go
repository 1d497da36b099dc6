package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection and analysis status",
	RunE:  runStatus,
}

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Show today's intraday signals grouped by asset",
	RunE:  runSignals,
}

func init() {
	rootCmd.AddCommand(statusCmd, signalsCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, cleanup, err := newContainer()
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := c.Status.Report(context.Background())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if rep.Snapshots == 0 {
		fmt.Fprintln(out, "No snapshots collected yet.")
		return nil
	}
	printStatus(out, rep, c.Config.Storage.SnapshotDB)
	return nil
}

func runSignals(cmd *cobra.Command, args []string) error {
	c, cleanup, err := newContainer()
	if err != nil {
		return err
	}
	defer cleanup()

	sigs, err := c.Signals.Today(context.Background(), 100)
	if err != nil {
		return err
	}
	printSignals(cmd.OutOrStdout(), sigs, c.Config.Storage.SignalLog, c.Config.Features.LargeMovePct)
	return nil
}
