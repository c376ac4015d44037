package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configSubdir   = "config"
	configFileName = "bridged_config.json"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	// Set defaults for the API server
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
	}

	// Set defaults for verification
	if cfg.Verification.Workers == 0 {
		cfg.Verification.Workers = 4
	}
	if cfg.Verification.MaxAttempts == 0 {
		cfg.Verification.MaxAttempts = 30
	}
	if cfg.Verification.CheckIntervalSeconds == 0 {
		cfg.Verification.CheckIntervalSeconds = 15
	}
	if cfg.Verification.PollIntervalSeconds == 0 {
		cfg.Verification.PollIntervalSeconds = 5
	}
	if cfg.Verification.BatchLimit == 0 {
		cfg.Verification.BatchLimit = 100
	}

	// Set defaults for retention
	if cfg.Retention.CleanupIntervalSeconds == 0 {
		cfg.Retention.CleanupIntervalSeconds = 3600
	}
	if cfg.Retention.RetentionPeriodSeconds == 0 {
		cfg.Retention.RetentionPeriodSeconds = 7 * 24 * 3600
	}

	// Fill chain list from the embedded defaults when none is configured
	if len(cfg.Chains) == 0 {
		var defaultCfg Config
		if err := json.Unmarshal(defaultConfigJSON, &defaultCfg); err == nil {
			cfg.Chains = defaultCfg.Chains
		}
	}

	for i := range cfg.Chains {
		cfg.Chains[i].ApplyDefaults()
		if err := cfg.Chains[i].Validate(); err != nil {
			return fmt.Errorf("invalid chain config %q: %w", cfg.Chains[i].ChainID, err)
		}
	}

	if cfg.HomeChain == "" {
		cfg.HomeChain = "solana"
	}
	if cfg.Chain(cfg.HomeChain) == nil {
		return fmt.Errorf("home chain %q is not in the chain list", cfg.HomeChain)
	}

	return nil
}

// Save writes the given config to <basePath>/config/bridged_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads, validates and returns the config from
// <basePath>/config/bridged_config.json.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, configSubdir, configFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	return &cfg, nil
}
