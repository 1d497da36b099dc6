package main

import (
	"github.com/spf13/cobra"
)

var serveNoCollect bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, with the collector in the background",
	Long: `Serve exposes the desk over HTTP:

  GET  /api/status           collection and analysis status
  GET  /api/state            latest market state
  GET  /api/signals          signals since ?since= (default today)
  GET  /api/analysis/latest  last recorded analysis
  POST /api/analyze          run an analysis, ?dry_run=true to skip the model
  POST /api/validate         validate a model answer posted as the body
  GET  /ws/signals           websocket feed of new signals
  GET  /metrics, /healthz`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveNoCollect, "no-collect", false, "serve only, do not poll the exchange")
}

func runServe(cmd *cobra.Command, args []string) error {
	c, cleanup, err := newContainer()
	if err != nil {
		return err
	}
	defer cleanup()
	return c.App.Run(!serveNoCollect)
}
