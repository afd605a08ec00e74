// Package cli wires the commands: an interactive chat session (the
// default), model listing, and the toolhost subprocess mode the chat
// session re-execs itself into.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/petasbytes/lucius/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "lucius",
	Short: "Terminal chat client with a tool-use loop",
	Long: "Lucius is an interactive chat client for local and hosted language models.\n" +
		"The model can run tools mid-conversation through a sandboxed subprocess and\n" +
		"continue reasoning over their output.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: lucius.yaml in user config dir or cwd)")
	rootCmd.AddCommand(chatCmd, modelsCmd, toolhostCmd)
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lucius:", err)
		return 1
	}
	return 0
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

// setupLogging routes slog to the configured log file. Stdout belongs to
// the terminal UI, so interactive commands must never log there.
func setupLogging(cfg *config.Config) (closeFn func(), err error) {
	var w io.Writer = io.Discard
	closeFn = func() {}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return closeFn, nil
}
