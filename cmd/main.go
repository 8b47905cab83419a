package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"intent-orchestrator/internal/app"
	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "intent-orchestrator",
	Short:         "Route natural-language requests to backend tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(troubleshootCmd)
	rootCmd.AddCommand(toolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config, initialises the logger and wires the application.
// Interactive commands keep the log quiet so it does not mix with output.
func setup(ctx context.Context, quiet bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if quiet {
		err = logger.InitQuiet()
	} else {
		err = logger.Init(cfg.Server.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return app.New(ctx, cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
