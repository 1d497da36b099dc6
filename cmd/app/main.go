package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"PerpDesk/internal/di"
	"PerpDesk/pkg/config"
)

var (
	configPath string
	envFile    string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "perpdesk",
	Short: "Perpetual futures trade-setup desk",
	Long: `PerpDesk collects Hyperliquid market snapshots, derives a market state,
asks a language model for ranked trade setups and rewrites every risk figure
of the answer so it fits the configured risk budget.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file, ignored when missing")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// loadConfig reads the YAML config with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newContainer wires the full dependency graph. Callers must run cleanup.
func newContainer() (*di.Container, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	c, cleanup, err := di.InitializeContainer(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init: %w", err)
	}
	return c, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
