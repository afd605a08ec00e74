package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != "ollama" {
		t.Errorf("provider: %q", cfg.Provider)
	}
	if cfg.Ollama.URL != "http://localhost:11434" {
		t.Errorf("ollama url: %q", cfg.Ollama.URL)
	}
	if cfg.ToolHost.Timeout != 30*time.Second {
		t.Errorf("toolhost timeout: %v", cfg.ToolHost.Timeout)
	}
	if cfg.ToolHost.SpawnAttempts != 3 {
		t.Errorf("spawn attempts: %d", cfg.ToolHost.SpawnAttempts)
	}
	if cfg.Chat.MaxRounds != 8 {
		t.Errorf("max rounds: %d", cfg.Chat.MaxRounds)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := `
provider: anthropic
model: claude-sonnet-4-5
toolhost:
  command: /usr/local/bin/lucius-tools
  timeout: 90s
chat:
  max_rounds: 4
`
	if err := os.WriteFile(filepath.Join(dir, "lucius.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != "anthropic" || cfg.Model != "claude-sonnet-4-5" {
		t.Errorf("provider/model: %q %q", cfg.Provider, cfg.Model)
	}
	if cfg.ToolHost.Command != "/usr/local/bin/lucius-tools" {
		t.Errorf("toolhost command: %q", cfg.ToolHost.Command)
	}
	if cfg.ToolHost.Timeout != 90*time.Second {
		t.Errorf("toolhost timeout: %v", cfg.ToolHost.Timeout)
	}
	if cfg.Chat.MaxRounds != 4 {
		t.Errorf("max rounds: %d", cfg.Chat.MaxRounds)
	}
	// Untouched keys keep their defaults.
	if cfg.Ollama.URL != "http://localhost:11434" {
		t.Errorf("ollama url: %q", cfg.Ollama.URL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "lucius.yaml"), []byte("model: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LUCIUS_MODEL", "from-env")
	t.Setenv("LUCIUS_OLLAMA_URL", "http://ollama.internal:11434")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "from-env" {
		t.Errorf("model: %q", cfg.Model)
	}
	if cfg.Ollama.URL != "http://ollama.internal:11434" {
		t.Errorf("ollama url: %q", cfg.Ollama.URL)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("model: custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "custom" {
		t.Errorf("model: %q", cfg.Model)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing file should fail")
	}
}
