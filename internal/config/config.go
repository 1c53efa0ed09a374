// Package config loads the workspace configuration from
// .ctxslice/config.json, falling back to defaults when absent.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the complete ctxslice configuration (v1 schema).
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Index     IndexConfig     `json:"index" mapstructure:"index"`
	Budget    BudgetConfig    `json:"budget" mapstructure:"budget"`
	Engines   EnginesConfig   `json:"engines" mapstructure:"engines"`
	Inference InferenceConfig `json:"inference" mapstructure:"inference"`
	Solver    SolverConfig    `json:"solver" mapstructure:"solver"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// IndexConfig locates the SCIP index and the symbol cache.
type IndexConfig struct {
	ScipPath string `json:"scipPath" mapstructure:"scipPath"`
	CacheDir string `json:"cacheDir" mapstructure:"cacheDir"`
}

// BudgetConfig bounds the closure computation.
type BudgetConfig struct {
	Tokens       int  `json:"tokens" mapstructure:"tokens"`
	IncludeTests bool `json:"includeTests" mapstructure:"includeTests"`
}

// EnginesConfig tunes the graph builders.
type EnginesConfig struct {
	MaxRefineIterations int `json:"maxRefineIterations" mapstructure:"maxRefineIterations"`
}

// InferenceConfig points at an OpenAI-compatible endpoint. The API key comes
// from the environment, never from the config file.
type InferenceConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	BaseURL   string `json:"baseUrl" mapstructure:"baseUrl"`
	Model     string `json:"model" mapstructure:"model"`
	TimeoutMs int    `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// SolverConfig bounds the constraint solver calls.
type SolverConfig struct {
	TimeoutMs int `json:"timeoutMs" mapstructure:"timeoutMs"`
}

// LoggingConfig selects log output format and level.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Index: IndexConfig{
			ScipPath: "index.scip",
			CacheDir: ".ctxslice",
		},
		Budget: BudgetConfig{
			Tokens:       4000,
			IncludeTests: false,
		},
		Engines: EnginesConfig{
			MaxRefineIterations: 5,
		},
		Inference: InferenceConfig{
			Enabled:   false,
			Model:     "gpt-4o-mini",
			TimeoutMs: 30000,
		},
		Solver: SolverConfig{
			TimeoutMs: 2000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .ctxslice/config.json under repoRoot,
// returning defaults when no file exists.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".ctxslice"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .ctxslice/config.json under repoRoot.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".ctxslice")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks the configuration for values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Budget.Tokens < 0 {
		return &ConfigError{Field: "budget.tokens", Message: "budget must not be negative"}
	}
	if c.Engines.MaxRefineIterations < 1 {
		return &ConfigError{Field: "engines.maxRefineIterations", Message: "iteration cap must be at least 1"}
	}
	if c.Solver.TimeoutMs <= 0 {
		return &ConfigError{Field: "solver.timeoutMs", Message: "solver timeout must be positive"}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "format must be human or json"}
	}
	return nil
}

// ConfigError describes an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
