// Package common defines the chain-family-agnostic contracts shared by all
// chain adapters: the read-only ChainAdapter interface, the immutable
// per-chain descriptor, and the retry manager used around RPC calls.
package common

import (
	"fmt"
	"time"
)

// Family identifies the structural family of a chain. The tracker supports
// the two families the messaging network bridges between: EVM chains and
// account-model (Solana-style) chains.
type Family string

const (
	// FamilyEVM covers Ethereum and EVM-compatible chains (transaction /
	// receipt model, block-depth finality).
	FamilyEVM Family = "evm"

	// FamilySVM covers Solana-style account-model chains (signature /
	// slot model, commitment-level finality).
	FamilySVM Family = "svm"
)

// ChainDescriptor is the immutable per-chain configuration. Descriptors are
// read-only after registry initialization and safe for unsynchronized
// concurrent reads.
type ChainDescriptor struct {
	// ChainID is the registry key, e.g. "solana-devnet" or "eip155:11155111".
	ChainID string `json:"chain_id"`
	Name    string `json:"name"`
	Family  Family `json:"family"`

	RPCURLs []string `json:"rpc_urls"`

	// LayerZeroEID is the messaging-network endpoint ID for this chain.
	LayerZeroEID uint32 `json:"layerzero_eid"`

	// RequiredDepth is the confirmation depth after which a transaction on
	// this chain is treated as final. Chain-specific: probabilistic finality
	// on account-model chains maps commitment levels onto depths.
	RequiredDepth uint64 `json:"required_depth"`

	// GracePeriodSeconds is how long a reported source transaction may stay
	// unobservable before its absence counts against the message.
	GracePeriodSeconds int `json:"grace_period_seconds"`

	// MaxMessageSize bounds outbound payloads to this chain, in bytes.
	MaxMessageSize int `json:"max_message_size"`

	NativeToken string `json:"native_token"`

	// GatewayAddress is the messaging-network gateway program/contract on
	// this chain. Destination-side effects are recognized by the gateway
	// event carrying the message digest.
	GatewayAddress string `json:"gateway_address"`

	// RPCTimeoutSeconds bounds a single adapter RPC call. Distinct from the
	// verification-attempt bookkeeping so a hung RPC cannot starve it.
	RPCTimeoutSeconds int `json:"rpc_timeout_seconds"`
}

// Defaults applied when a descriptor field is left zero in config.
const (
	DefaultMaxMessageSize     = 10_000
	DefaultGracePeriodSeconds = 120
	DefaultRPCTimeoutSeconds  = 10
)

// ApplyDefaults fills the optional fields left zero in config.
func (d *ChainDescriptor) ApplyDefaults() {
	if d.Name == "" {
		d.Name = d.ChainID
	}
	if d.MaxMessageSize == 0 {
		d.MaxMessageSize = DefaultMaxMessageSize
	}
	if d.GracePeriodSeconds == 0 {
		d.GracePeriodSeconds = DefaultGracePeriodSeconds
	}
	if d.RPCTimeoutSeconds == 0 {
		d.RPCTimeoutSeconds = DefaultRPCTimeoutSeconds
	}
}

// Validate checks the descriptor for the fields the registry cannot default.
func (d *ChainDescriptor) Validate() error {
	if d.ChainID == "" {
		return fmt.Errorf("chain descriptor missing chain_id")
	}
	if d.Family != FamilyEVM && d.Family != FamilySVM {
		return fmt.Errorf("chain %s: unknown family %q", d.ChainID, d.Family)
	}
	if len(d.RPCURLs) == 0 {
		return fmt.Errorf("chain %s: no RPC URLs configured", d.ChainID)
	}
	// The endpoint ID feeds message id derivation; a zero EID would make
	// ids collide across chains.
	if d.LayerZeroEID == 0 {
		return fmt.Errorf("chain %s: layerzero_eid must be positive", d.ChainID)
	}
	if d.RequiredDepth == 0 {
		return fmt.Errorf("chain %s: required_depth must be positive", d.ChainID)
	}
	return nil
}

// MaxPayload returns the configured payload bound, falling back to the default.
func (d *ChainDescriptor) MaxPayload() int {
	if d.MaxMessageSize > 0 {
		return d.MaxMessageSize
	}
	return DefaultMaxMessageSize
}

// GracePeriod returns the source-absence grace period as a duration.
func (d *ChainDescriptor) GracePeriod() time.Duration {
	secs := d.GracePeriodSeconds
	if secs <= 0 {
		secs = DefaultGracePeriodSeconds
	}
	return time.Duration(secs) * time.Second
}

// RPCTimeout returns the per-call RPC timeout as a duration.
func (d *ChainDescriptor) RPCTimeout() time.Duration {
	secs := d.RPCTimeoutSeconds
	if secs <= 0 {
		secs = DefaultRPCTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}
