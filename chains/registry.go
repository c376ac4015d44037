// Package chains holds the chain registry: the catalog of supported chains,
// their descriptors, and the adapter serving each one.
package chains

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/evm"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/svm"
)

// AdapterFactory builds a ChainAdapter for a descriptor. Swappable so tests
// can register fake adapters without touching real RPC.
type AdapterFactory func(descriptor *common.ChainDescriptor, logger zerolog.Logger) (common.ChainAdapter, error)

// Registry is the catalog of supported chains. Descriptors and adapters are
// populated during Init and read-only afterwards, so lookups need no lock;
// the mutex only guards Init/StopAll.
type Registry struct {
	mu          sync.Mutex
	descriptors map[string]*common.ChainDescriptor
	adapters    map[string]common.ChainAdapter
	byEID       map[uint32]string
	factory     AdapterFactory
	logger      zerolog.Logger
	started     bool
}

// NewRegistry creates a registry using the default per-family adapter
// factory (go-ethereum for EVM chains, solana-go for account-model chains).
func NewRegistry(logger zerolog.Logger) *Registry {
	return NewRegistryWithFactory(defaultFactory, logger)
}

// NewRegistryWithFactory creates a registry with a custom adapter factory.
func NewRegistryWithFactory(factory AdapterFactory, logger zerolog.Logger) *Registry {
	return &Registry{
		descriptors: make(map[string]*common.ChainDescriptor),
		adapters:    make(map[string]common.ChainAdapter),
		byEID:       make(map[uint32]string),
		factory:     factory,
		logger:      logger.With().Str("component", "chain_registry").Logger(),
	}
}

// defaultFactory dispatches on the descriptor's chain family.
func defaultFactory(descriptor *common.ChainDescriptor, logger zerolog.Logger) (common.ChainAdapter, error) {
	switch descriptor.Family {
	case common.FamilyEVM:
		return evm.NewAdapter(descriptor, logger)
	case common.FamilySVM:
		return svm.NewAdapter(descriptor, logger)
	default:
		return nil, fmt.Errorf("unsupported chain family: %v", descriptor.Family)
	}
}

// Init validates all descriptors and builds an adapter for each. Must be
// called exactly once before any lookup.
func (r *Registry) Init(descriptors []common.ChainDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("registry already initialized")
	}

	for i := range descriptors {
		d := descriptors[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("invalid chain descriptor: %w", err)
		}
		if _, exists := r.descriptors[d.ChainID]; exists {
			return fmt.Errorf("duplicate chain descriptor for %s", d.ChainID)
		}
		if other, exists := r.byEID[d.LayerZeroEID]; exists {
			return fmt.Errorf("chains %s and %s share endpoint ID %d", other, d.ChainID, d.LayerZeroEID)
		}

		adapter, err := r.factory(&d, r.logger)
		if err != nil {
			return fmt.Errorf("failed to create adapter for %s: %w", d.ChainID, err)
		}

		r.descriptors[d.ChainID] = &d
		r.adapters[d.ChainID] = adapter
		r.byEID[d.LayerZeroEID] = d.ChainID

		r.logger.Info().
			Str("chain", d.ChainID).
			Str("family", string(d.Family)).
			Uint64("required_depth", d.RequiredDepth).
			Msg("registered chain")
	}

	r.started = true
	return nil
}

// Descriptor returns the descriptor for a chain, or nil when unknown.
func (r *Registry) Descriptor(chainID string) *common.ChainDescriptor {
	return r.descriptors[chainID]
}

// Adapter returns the adapter for a chain, or nil when unknown.
func (r *Registry) Adapter(chainID string) common.ChainAdapter {
	return r.adapters[chainID]
}

// ChainByEID resolves a messaging-network endpoint ID to a chain ID.
func (r *Registry) ChainByEID(eid uint32) (string, bool) {
	chainID, ok := r.byEID[eid]
	return chainID, ok
}

// Known reports whether the chain is in the catalog.
func (r *Registry) Known(chainID string) bool {
	_, ok := r.descriptors[chainID]
	return ok
}

// All returns every registered descriptor.
func (r *Registry) All() []*common.ChainDescriptor {
	out := make([]*common.ChainDescriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	return out
}

// StopAll closes every adapter's RPC connections.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chainID, adapter := range r.adapters {
		if err := adapter.Close(); err != nil {
			r.logger.Error().
				Err(err).
				Str("chain", chainID).
				Msg("error closing chain adapter")
		}
	}
}
