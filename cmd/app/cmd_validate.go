package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"PerpDesk/internal/di"
	"PerpDesk/internal/services/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate and correct a saved model answer",
	Long: `Validate runs the schema check and risk auto-correction over a model answer
stored in a file, without touching the logs. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var raw []byte
	if args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read answer: %w", err)
	}

	v := validation.New(di.ProvideRiskLimits(cfg), validation.WithResizeOnScale(cfg.Analysis.ResizeOnScale))
	out, notes := v.ValidateAndCorrect(string(raw))
	corrections, issues := validation.SplitNotes(notes)

	w := cmd.OutOrStdout()
	if out == nil {
		fmt.Fprintln(w, "Model output failed validation:")
		for _, issue := range issues {
			fmt.Fprintf(w, "  x %s\n", issue)
		}
		return fmt.Errorf("%s: %d problem(s)", args[0], len(issues))
	}
	printSetups(w, out, corrections, issues)
	return nil
}
