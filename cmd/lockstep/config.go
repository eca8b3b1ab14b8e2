package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the lockstep configuration file
// (~/.config/lockstep/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	// Server
	ServerAddress string `yaml:"server_address"`

	// Invariant pins batch-invariant routing at startup, same effect as
	// the LOCKSTEP_INVARIANT environment variable.
	Invariant *bool `yaml:"invariant"`

	// Toy model shape for serve/decode.
	Vocab  *int64 `yaml:"vocab"`
	Hidden *int64 `yaml:"hidden"`
	Seed   *int64 `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lockstep", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or cannot be parsed.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyCommonConfig applies config file defaults when the corresponding
// CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config, vocab, hidden, seed *int64) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.Vocab != nil && !c.IsSet("vocab") {
		*vocab = *cfg.Vocab
	}
	if cfg.Hidden != nil && !c.IsSet("hidden") {
		*hidden = *cfg.Hidden
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}

// invariantRequested resolves the startup pin: environment first, then the
// config file.
func invariantRequested(cfg Config) bool {
	if v := os.Getenv(envInvariant); v != "" && v != "0" && v != "false" {
		return true
	}
	return cfg.Invariant != nil && *cfg.Invariant
}
