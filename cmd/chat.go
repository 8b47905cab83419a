package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"intent-orchestrator/internal/delivery/cli"
	"intent-orchestrator/internal/logger"

	"github.com/spf13/cobra"
)

var (
	chatSession string
	chatVerbose bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer a.Close()

		session := chatSession
		if session == "" {
			session = a.Orchestrator.DefaultSession()
		}
		return cli.NewREPL(a.Orchestrator, os.Stdin, cmd.OutOrStdout(), session, chatVerbose).Run(ctx)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id (defaults to HISTORY_DEFAULT_SESSION)")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "print the raw tool result with each reply")
}
