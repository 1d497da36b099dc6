package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PerpDesk/internal/services/llm"
	"PerpDesk/internal/usecase"
)

var (
	analyzeDryRun bool
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the market state and ask the model for trade setups",
	Long: `Analyze builds the market state from the latest snapshots, adds today's
signals and a digest of the previous analysis, asks the configured model for
three ranked setups and validates and corrects the answer.

Examples:
  perpdesk analyze --dry-run     # market state only, no model call
  perpdesk analyze --json        # full result as JSON`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "build the market state without calling the model")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	c, cleanup, err := newContainer()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	res, err := c.Analysis.Run(ctx, usecase.AnalyzeOptions{DryRun: analyzeDryRun})
	switch {
	case errors.Is(err, usecase.ErrNoSnapshots):
		fmt.Fprintln(out, "No snapshots yet. Run 'collect' first and wait a few minutes.")
		return err
	case errors.Is(err, llm.ErrMissingAPIKey):
		return fmt.Errorf("%w: set OPENAI_API_KEY or ANTHROPIC_API_KEY", err)
	case errors.Is(err, usecase.ErrValidationFailed):
		if analyzeJSON {
			_ = printJSON(out, res)
			return err
		}
		fmt.Fprintln(out, "Model output failed validation:")
		for _, issue := range res.Issues {
			fmt.Fprintf(out, "  x %s\n", issue)
		}
		fmt.Fprintf(out, "\nRaw response:\n%s\n", truncate(res.Raw, 2000))
		return err
	case err != nil:
		return err
	}

	if analyzeJSON {
		return printJSON(out, res)
	}
	if res.CooldownWarning != "" {
		fmt.Fprintf(out, "\nWARNING: %s\n", res.CooldownWarning)
	}
	printMarketState(out, res.State)
	if res.DryRun {
		fmt.Fprintln(out, "--- Full JSON ---")
		return printJSON(out, res.State)
	}
	printSetups(out, res.Output, res.Corrections, res.Issues)
	if res.Record != nil {
		fmt.Fprintf(out, "Recorded analysis %s (signals=%d, anchored=%t)\n", res.Record.ID, res.Signals, res.Anchored)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
