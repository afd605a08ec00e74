// Package config loads settings from a lucius.yaml file, environment
// variables (LUCIUS_ prefix), and defaults, in that order of precedence
// from highest to lowest: env, file, default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full settings tree. The core consumes these values but
// does not own them; nothing here is written back to disk.
type Config struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	Ollama   OllamaConfig   `mapstructure:"ollama"`
	ToolHost ToolHostConfig `mapstructure:"toolhost"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Log      LogConfig      `mapstructure:"log"`
}

type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

// ToolHostConfig describes how to launch the tool subprocess. An empty
// Command means re-exec the running binary in toolhost mode.
type ToolHostConfig struct {
	Command       string        `mapstructure:"command"`
	Args          []string      `mapstructure:"args"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SpawnAttempts int           `mapstructure:"spawn_attempts"`
}

type ChatConfig struct {
	MaxRounds    int `mapstructure:"max_rounds"`
	WindowBudget int `mapstructure:"window_budget"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

// Load reads configuration. path, when non-empty, names an explicit config
// file; otherwise lucius.yaml is searched in the user config dir and the
// working directory. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LUCIUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("lucius")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "lucius"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "ollama")
	v.SetDefault("model", "llama3.1")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("toolhost.command", "")
	v.SetDefault("toolhost.args", []string{})
	v.SetDefault("toolhost.timeout", 30*time.Second)
	v.SetDefault("toolhost.spawn_attempts", 3)
	v.SetDefault("chat.max_rounds", 8)
	v.SetDefault("chat.window_budget", 120000)
	v.SetDefault("log.file", "lucius.log")
}
