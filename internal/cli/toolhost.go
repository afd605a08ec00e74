package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petasbytes/lucius/internal/toolhost"
)

var toolhostCmd = &cobra.Command{
	Use:    "toolhost",
	Short:  "Run the tool subprocess (spawned by the chat session)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Stdout carries the line protocol; logs go to stderr where the
		// parent forwards them into its own log.
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := toolhost.NewServer(os.Stdin, os.Stdout, toolhost.Registry(), cfg.ToolHost.Timeout, logger)
		return srv.Run(ctx)
	},
}
