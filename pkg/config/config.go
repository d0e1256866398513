package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Render     RenderConfig     `mapstructure:"render"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	LogFile string `mapstructure:"log_file"`
	Persist bool   `mapstructure:"persist"`
}

// ReconcilerConfig tunes the live reconciler's bounded windows.
type ReconcilerConfig struct {
	MatchWindow int `mapstructure:"match_window"`
	DedupTail   int `mapstructure:"dedup_tail"`
}

// RenderConfig holds terminal rendering options.
type RenderConfig struct {
	Plain       bool   `mapstructure:"plain"`
	SyntaxTheme string `mapstructure:"syntax_theme"`
}

var (
	mu       sync.RWMutex
	settings *Config
)

// Init loads configuration from the given file (or the default search
// paths when empty), applying defaults and environment overrides.
func Init(cfgFile string) error {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.log_file", "")
	viper.SetDefault("logging.persist", false)
	viper.SetDefault("reconciler.match_window", 20)
	viper.SetDefault("reconciler.dedup_tail", 3)
	viper.SetDefault("render.plain", false)
	viper.SetDefault("render.syntax_theme", "monokai")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sessionflow"))
		}
		viper.AddConfigPath("./.sessionflow")
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("SESSIONFLOW")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	mu.Lock()
	settings = cfg
	mu.Unlock()
	return nil
}

// Get returns the loaded configuration, falling back to defaults when Init
// has not run (library use, tests).
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if settings == nil {
		return &Config{
			Logging:    LoggingConfig{Level: "info"},
			Reconciler: ReconcilerConfig{MatchWindow: 20, DedupTail: 3},
			Render:     RenderConfig{SyntaxTheme: "monokai"},
		}
	}
	return settings
}
