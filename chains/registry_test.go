package chains

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
)

type stubAdapter struct {
	chainID string
	family  common.Family
}

func (s *stubAdapter) ChainID() string       { return s.chainID }
func (s *stubAdapter) Family() common.Family { return s.family }
func (s *stubAdapter) Close() error          { return nil }

func (s *stubAdapter) GetTransaction(ctx context.Context, ref string) (*common.TxInfo, error) {
	return nil, common.ErrTxNotFound
}

func (s *stubAdapter) GetConfirmationDepth(ctx context.Context, ref string) (uint64, error) {
	return 0, common.ErrTxNotFound
}

func (s *stubAdapter) GetCurrentHeight(ctx context.Context) (uint64, error) {
	return 0, nil
}

func stubFactory(d *common.ChainDescriptor, _ zerolog.Logger) (common.ChainAdapter, error) {
	return &stubAdapter{chainID: d.ChainID, family: d.Family}, nil
}

func descriptor(chainID string, family common.Family, eid uint32) common.ChainDescriptor {
	return common.ChainDescriptor{
		ChainID:       chainID,
		Family:        family,
		RPCURLs:       []string{"http://localhost:1234"},
		LayerZeroEID:  eid,
		RequiredDepth: 2,
	}
}

func TestRegistryInit(t *testing.T) {
	r := NewRegistryWithFactory(stubFactory, zerolog.Nop())
	require.NoError(t, r.Init([]common.ChainDescriptor{
		descriptor("solana", common.FamilySVM, 40168),
		descriptor("ethereum", common.FamilyEVM, 40161),
	}))

	assert.True(t, r.Known("solana"))
	assert.NotNil(t, r.Adapter("ethereum"))
	assert.Len(t, r.All(), 2)

	chainID, ok := r.ChainByEID(40161)
	require.True(t, ok)
	assert.Equal(t, "ethereum", chainID)
}

func TestRegistryInitRejectsDuplicateChainID(t *testing.T) {
	r := NewRegistryWithFactory(stubFactory, zerolog.Nop())
	err := r.Init([]common.ChainDescriptor{
		descriptor("solana", common.FamilySVM, 40168),
		descriptor("solana", common.FamilySVM, 40169),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate chain descriptor")
}

// Endpoint IDs feed message id derivation, so two chains sharing one would
// silently merge unrelated sends into the same record.
func TestRegistryInitRejectsDuplicateEndpointID(t *testing.T) {
	r := NewRegistryWithFactory(stubFactory, zerolog.Nop())
	err := r.Init([]common.ChainDescriptor{
		descriptor("solana", common.FamilySVM, 40168),
		descriptor("ethereum", common.FamilyEVM, 40168),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share endpoint ID")
}

func TestRegistryInitRejectsZeroEndpointID(t *testing.T) {
	r := NewRegistryWithFactory(stubFactory, zerolog.Nop())
	err := r.Init([]common.ChainDescriptor{
		descriptor("solana", common.FamilySVM, 0),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layerzero_eid")
}

func TestRegistryInitOnlyOnce(t *testing.T) {
	r := NewRegistryWithFactory(stubFactory, zerolog.Nop())
	require.NoError(t, r.Init([]common.ChainDescriptor{
		descriptor("solana", common.FamilySVM, 40168),
	}))
	assert.Error(t, r.Init(nil))
}
