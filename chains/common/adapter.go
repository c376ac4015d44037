package common

import (
	"context"
	"errors"
)

// Sentinel errors adapters wrap chain-specific RPC failures into, so the
// verification engine never needs chain-specific error handling.
var (
	// ErrTxNotFound means the chain answered and the transaction is not on
	// the canonical chain (missing or reorganized out).
	ErrTxNotFound = errors.New("transaction not found")

	// ErrMalformedRef means the transaction reference cannot be parsed for
	// this chain family at all. Never retryable.
	ErrMalformedRef = errors.New("malformed transaction reference")
)

// Outcome classifies an adapter error into the three cases callers handle.
type Outcome int

const (
	// OutcomeRetryable is a transient RPC/network fault. It never consumes
	// a verification attempt; the caller backs off and retries.
	OutcomeRetryable Outcome = iota

	// OutcomeNotFound is a definitive answer: the transaction is absent.
	OutcomeNotFound

	// OutcomeMalformed is a definitive answer: the reference is unusable.
	OutcomeMalformed
)

// Classify maps an adapter error onto its outcome.
func Classify(err error) Outcome {
	switch {
	case errors.Is(err, ErrTxNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrMalformedRef):
		return OutcomeMalformed
	default:
		return OutcomeRetryable
	}
}

// TxInfo describes an observed transaction in chain-family-neutral terms.
type TxInfo struct {
	Ref string

	// Height is the block number (EVM) or slot (SVM) containing the
	// transaction.
	Height uint64

	// Success is false when the transaction exists but reverted/errored.
	Success bool

	// PayloadDigest is the hex-encoded message digest the gateway effect in
	// this transaction carries, empty when none could be decoded. The
	// verification engine cross-references it against the source message.
	PayloadDigest string
}

// ChainAdapter reads transaction existence and confirmation depth from one
// chain's RPC. Implementations are side-effect-free: they never submit
// transactions and never write tracker state.
type ChainAdapter interface {
	// ChainID returns the registry chain identifier this adapter serves.
	ChainID() string

	// Family returns the structural family of the chain.
	Family() Family

	// GetTransaction fetches the transaction at ref. Returns ErrTxNotFound
	// when the chain definitively does not know the transaction and
	// ErrMalformedRef when ref cannot be parsed.
	GetTransaction(ctx context.Context, ref string) (*TxInfo, error)

	// GetConfirmationDepth returns how many blocks/slots have been built on
	// top of the transaction, inclusive of its own.
	GetConfirmationDepth(ctx context.Context, ref string) (uint64, error)

	// GetCurrentHeight returns the chain's current block number or slot.
	GetCurrentHeight(ctx context.Context) (uint64, error)

	// Close releases the underlying RPC connections.
	Close() error
}
