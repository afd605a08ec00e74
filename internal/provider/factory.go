package provider

import (
	"fmt"
	"os"

	"github.com/petasbytes/lucius/internal/config"
)

// New creates the configured backend provider.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaProvider(cfg.Ollama.URL, cfg.Model), nil
	case "anthropic":
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return nil, fmt.Errorf("anthropic API key not configured; export ANTHROPIC_API_KEY")
		}
		return NewAnthropicProvider(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
