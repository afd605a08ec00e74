package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/petasbytes/lucius/internal/provider"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := provider.New(cfg)
		if err != nil {
			return err
		}
		lister, ok := p.(provider.ModelLister)
		if !ok {
			return fmt.Errorf("provider %q cannot list models", p.Name())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if pinger, ok := p.(provider.Pinger); ok && !pinger.Ping(ctx) {
			return fmt.Errorf("backend %q unreachable at %s", p.Name(), cfg.Ollama.URL)
		}

		models, err := lister.ListModels(ctx)
		if err != nil {
			return err
		}
		for _, m := range models {
			marker := " "
			if m.Name == cfg.Model {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m.Name)
		}
		return nil
	},
}
