package cli

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/petasbytes/lucius/internal/config"
	"github.com/petasbytes/lucius/internal/contextfile"
	"github.com/petasbytes/lucius/internal/orchestrator"
	"github.com/petasbytes/lucius/internal/provider"
	"github.com/petasbytes/lucius/internal/toolhost"
	"github.com/petasbytes/lucius/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	p, err := provider.New(cfg)
	if err != nil {
		return err
	}

	host := toolhost.New(hostConfig(cfg), slog.Default())
	defer host.Close()

	projectContext, err := contextfile.Load(".")
	if err != nil {
		slog.Warn("context file unreadable", "err", err)
	}
	system := orchestrator.BuildSystemPrompt(toolhost.Registry(), projectContext)

	sink, events := orchestrator.BufferedSink(256, slog.Default())
	orch := orchestrator.New(p, host, orchestrator.Config{
		Model:        cfg.Model,
		System:       system,
		MaxRounds:    cfg.Chat.MaxRounds,
		ToolTimeout:  cfg.ToolHost.Timeout,
		WindowBudget: cfg.Chat.WindowBudget,
	}, sink, slog.Default())

	model := tui.New(orch, events, p.Name(), cfg.Model)
	prog := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}

// hostConfig resolves the toolhost launch command. With no configured
// command the running binary re-execs itself in toolhost mode, so a plain
// install works with zero setup.
func hostConfig(cfg *config.Config) toolhost.Config {
	command := cfg.ToolHost.Command
	args := cfg.ToolHost.Args
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			exe = "lucius"
		}
		command = exe
		args = []string{"toolhost"}
	}
	return toolhost.Config{
		Command:       command,
		Args:          args,
		SpawnAttempts: cfg.ToolHost.SpawnAttempts,
		CallTimeout:   cfg.ToolHost.Timeout,
	}
}
