package config

import (
	"time"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Node Config
	NodeHome string `json:"node_home"` // Node home directory (default: ~/.bridged)

	// HomeChain is the source chain assumed when a send request names none
	// (default: solana)
	HomeChain string `json:"home_chain"`

	// API Server Config
	APIPort int `json:"api_port"` // Port for the HTTP API server (default: 8080)

	// Verification Config
	Verification VerificationConfig `json:"verification"`

	// Retention Config
	Retention RetentionConfig `json:"retention"`

	// Chains lists every chain the tracker can route between
	Chains []common.ChainDescriptor `json:"chains"`
}

// VerificationConfig tunes the verification worker pool and the per-message
// check schedule.
type VerificationConfig struct {
	Workers              int `json:"workers"`                // Concurrent verification workers (default: 4)
	MaxAttempts          int `json:"max_attempts"`           // Completed check cycles before timeout failure (default: 30)
	CheckIntervalSeconds int `json:"check_interval_seconds"` // Pause between check cycles for one message (default: 15)
	PollIntervalSeconds  int `json:"poll_interval_seconds"`  // How often the dispatcher scans for due messages (default: 5)
	BatchLimit           int `json:"batch_limit"`            // Max due messages picked up per scan (default: 100)
}

// CheckInterval returns the per-message check interval as a duration.
func (v VerificationConfig) CheckInterval() time.Duration {
	return time.Duration(v.CheckIntervalSeconds) * time.Second
}

// PollInterval returns the dispatcher scan interval as a duration.
func (v VerificationConfig) PollInterval() time.Duration {
	return time.Duration(v.PollIntervalSeconds) * time.Second
}

// RetentionConfig tunes the pruning of terminal messages. Pruning is the
// only path that destroys message records.
type RetentionConfig struct {
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds"` // How often the cleaner runs (default: 3600)
	RetentionPeriodSeconds int `json:"retention_period_seconds"` // How long terminal messages are kept (default: 7 days)
}

// CleanupInterval returns the cleaner cadence as a duration.
func (r RetentionConfig) CleanupInterval() time.Duration {
	return time.Duration(r.CleanupIntervalSeconds) * time.Second
}

// RetentionPeriod returns the terminal-message retention as a duration.
func (r RetentionConfig) RetentionPeriod() time.Duration {
	return time.Duration(r.RetentionPeriodSeconds) * time.Second
}

// Chain returns the descriptor for a chain id, or nil when unknown.
func (c *Config) Chain(chainID string) *common.ChainDescriptor {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i]
		}
	}
	return nil
}
