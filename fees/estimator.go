// Package fees computes expected cross-chain messaging fees. The estimator
// is a pure function over static schedule data; it performs no I/O and is
// consumed once at send time, outside the tracking loop.
package fees

import (
	"fmt"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
)

// Quote is an expected fee for one cross-chain send.
type Quote struct {
	// Fee is denominated in the source chain's smallest native unit
	// (lamports when sending from a Solana-family chain, wei from EVM).
	Fee uint64 `json:"fee"`

	// Token is the native fee token symbol of the source chain.
	Token string `json:"token"`

	// EtaSeconds is the expected end-to-end delivery time.
	EtaSeconds int `json:"eta_seconds"`
}

// Base fees per destination chain name, in lamports. Unlisted destinations
// fall back to defaultBaseFee.
var baseFees = map[string]uint64{
	"ethereum": 1_000_000,
	"arbitrum": 500_000,
	"optimism": 600_000,
	"polygon":  400_000,
}

const (
	defaultBaseFee = 800_000

	// perByteFee is charged on the payload size.
	perByteFee = 100

	// gasLimitDivisor converts an executor gas limit into the fee component.
	gasLimitDivisor = 1000
)

// Delivery time estimates by destination family. EVM destinations wait for
// block-depth finality; account-model destinations settle faster.
var etaByDestFamily = map[common.Family]int{
	common.FamilyEVM: 180,
	common.FamilySVM: 60,
}

// Estimator quotes fees from chain descriptors.
type Estimator struct{}

// NewEstimator creates an Estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate quotes the expected fee for sending payloadSize bytes from
// source to dest with the given executor gas limit (0 for none).
func (e *Estimator) Estimate(source, dest *common.ChainDescriptor, payloadSize int, gasLimit uint64) (*Quote, error) {
	if source == nil || dest == nil {
		return nil, fmt.Errorf("both source and destination descriptors are required")
	}
	if payloadSize < 0 {
		return nil, fmt.Errorf("payload size must be non-negative")
	}
	if max := dest.MaxPayload(); payloadSize > max {
		return nil, fmt.Errorf("payload size %d exceeds destination limit %d", payloadSize, max)
	}

	base, ok := baseFees[dest.Name]
	if !ok {
		base = defaultBaseFee
	}

	fee := base + uint64(payloadSize)*perByteFee
	if gasLimit > 0 {
		fee += gasLimit / gasLimitDivisor
	}

	eta, ok := etaByDestFamily[dest.Family]
	if !ok {
		eta = 300
	}

	return &Quote{
		Fee:        fee,
		Token:      source.NativeToken,
		EtaSeconds: eta,
	}, nil
}
