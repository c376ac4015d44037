package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

// VerdictKind is the outcome of one verification check cycle.
type VerdictKind int

const (
	// VerdictPending: nothing definitive either way yet.
	VerdictPending VerdictKind = iota

	// VerdictDelivered: the destination effect is observable but has not
	// reached the required confirmation depth.
	VerdictDelivered

	// VerdictVerified: depth satisfied and the payload digest matches.
	VerdictVerified

	// VerdictRejected: definitive negative; Reason carries the taxonomy
	// value.
	VerdictRejected
)

// Verdict is what one completed check cycle concluded. SourceMissing is set
// on Pending verdicts where the source transaction could not be found, so
// the tracker can maintain the consecutive-miss streak.
type Verdict struct {
	Kind          VerdictKind
	Reason        string
	DestDepth     uint64
	SourceMissing bool
}

func (v Verdict) String() string {
	switch v.Kind {
	case VerdictPending:
		return "pending"
	case VerdictDelivered:
		return "delivered"
	case VerdictVerified:
		return "verified"
	case VerdictRejected:
		return fmt.Sprintf("rejected(%s)", v.Reason)
	default:
		return "unknown"
	}
}

// sourceMissingThreshold is how many consecutive not-found checks beyond
// the grace period it takes before the source transaction is declared gone.
const sourceMissingThreshold = 5

type familyPair struct {
	source common.Family
	dest   common.Family
}

// Engine performs the chain-pair-specific verification checks. It only
// produces verdicts; the tracker owns all state changes.
type Engine struct {
	registry  *chains.Registry
	retryCfg  *common.RetryConfig
	supported map[familyPair]struct{}
	logger    zerolog.Logger
}

// NewEngine creates a verification engine over the given chain registry.
func NewEngine(registry *chains.Registry, retryCfg *common.RetryConfig, logger zerolog.Logger) *Engine {
	if retryCfg == nil {
		retryCfg = common.DefaultRetryConfig()
	}
	return &Engine{
		registry: registry,
		retryCfg: retryCfg,
		// The three strategies the messaging network supports. Anything
		// else fails loud with UnsupportedChainPair instead of attempting a
		// best-effort check.
		supported: map[familyPair]struct{}{
			{common.FamilySVM, common.FamilyEVM}: {},
			{common.FamilyEVM, common.FamilySVM}: {},
			{common.FamilyEVM, common.FamilyEVM}: {},
		},
		logger: logger.With().Str("component", "verification_engine").Logger(),
	}
}

// Verify runs one check cycle for the message and returns a verdict. A
// returned error is always a transient RPC fault: it consumes no
// verification attempt and the caller retries after backoff. Definitive
// outcomes, positive or negative, always arrive as a Verdict.
func (e *Engine) Verify(ctx context.Context, msg *store.Message) (Verdict, error) {
	srcDesc := e.registry.Descriptor(msg.SourceChain)
	dstDesc := e.registry.Descriptor(msg.DestChain)
	if srcDesc == nil || dstDesc == nil {
		return Verdict{Kind: VerdictRejected, Reason: store.ReasonUnsupportedChainPair}, nil
	}

	// Chain-pair gating happens before any adapter call.
	if _, ok := e.supported[familyPair{srcDesc.Family, dstDesc.Family}]; !ok {
		e.logger.Warn().
			Str("message_id", msg.MessageID).
			Str("source_family", string(srcDesc.Family)).
			Str("dest_family", string(dstDesc.Family)).
			Msg("no verification strategy for chain pair")
		return Verdict{Kind: VerdictRejected, Reason: store.ReasonUnsupportedChainPair}, nil
	}

	srcAdapter := e.registry.Adapter(msg.SourceChain)
	dstAdapter := e.registry.Adapter(msg.DestChain)

	// Step 1: the source transaction must still be on the canonical chain.
	srcInfo, err := e.getTransaction(ctx, srcAdapter, srcDesc, msg.SourceTxRef)
	if err != nil {
		switch common.Classify(err) {
		case common.OutcomeRetryable:
			return Verdict{}, err
		case common.OutcomeMalformed:
			// An unparseable reference can never resolve.
			return Verdict{Kind: VerdictRejected, Reason: store.ReasonSourceTxNotFound}, nil
		default:
			return e.sourceMissingVerdict(msg, srcDesc), nil
		}
	}
	if !srcInfo.Success {
		e.logger.Warn().
			Str("message_id", msg.MessageID).
			Str("source_tx", msg.SourceTxRef).
			Msg("source transaction reverted on chain")
		return Verdict{Kind: VerdictRejected, Reason: store.ReasonSourceTxNotFound}, nil
	}

	// Step 2: without a destination reference there is nothing further to
	// check; the messaging network is still relaying.
	if msg.DestTxRef == "" {
		return Verdict{Kind: VerdictPending}, nil
	}

	dstInfo, err := e.getTransaction(ctx, dstAdapter, dstDesc, msg.DestTxRef)
	if err != nil {
		switch common.Classify(err) {
		case common.OutcomeRetryable:
			return Verdict{}, err
		case common.OutcomeMalformed:
			return Verdict{Kind: VerdictRejected, Reason: store.ReasonDestTxNotFound}, nil
		default:
			return e.destMissingVerdict(msg, dstDesc), nil
		}
	}
	if !dstInfo.Success {
		e.logger.Warn().
			Str("message_id", msg.MessageID).
			Str("dest_tx", msg.DestTxRef).
			Msg("destination transaction reverted on chain")
		return Verdict{Kind: VerdictRejected, Reason: store.ReasonDestTxNotFound}, nil
	}

	var depth uint64
	err = e.withRetry(ctx, dstDesc, "get_confirmation_depth", func(callCtx context.Context) error {
		var innerErr error
		depth, innerErr = dstAdapter.GetConfirmationDepth(callCtx, msg.DestTxRef)
		return innerErr
	})
	if err != nil {
		if common.Classify(err) == common.OutcomeRetryable {
			return Verdict{}, err
		}
		return e.destMissingVerdict(msg, dstDesc), nil
	}

	if depth < dstDesc.RequiredDepth {
		return Verdict{Kind: VerdictDelivered, DestDepth: depth}, nil
	}

	// Step 3: depth satisfied; the destination effect must carry our
	// digest. A coincidental transaction at the right time fails here.
	if dstInfo.PayloadDigest == "" || dstInfo.PayloadDigest != msg.PayloadDigest {
		e.logger.Error().
			Str("message_id", msg.MessageID).
			Str("dest_tx", msg.DestTxRef).
			Str("expected_digest", msg.PayloadDigest).
			Str("observed_digest", dstInfo.PayloadDigest).
			Msg("payload digest mismatch at full confirmation depth")
		return Verdict{Kind: VerdictRejected, Reason: store.ReasonPayloadMismatch}, nil
	}

	return Verdict{Kind: VerdictVerified, DestDepth: depth}, nil
}

// sourceMissingVerdict decides what a not-found source transaction means
// for this message: within the grace period, or before the consecutive-miss
// threshold, it is merely Pending; beyond both it is definitive.
func (e *Engine) sourceMissingVerdict(msg *store.Message, srcDesc *common.ChainDescriptor) Verdict {
	missedSoFar := msg.SourceMissingChecks + 1
	if msg.SourceReportedAt != nil &&
		time.Since(*msg.SourceReportedAt) > srcDesc.GracePeriod() &&
		missedSoFar >= sourceMissingThreshold {
		return Verdict{Kind: VerdictRejected, Reason: store.ReasonSourceTxNotFound, SourceMissing: true}
	}
	return Verdict{Kind: VerdictPending, SourceMissing: true}
}

// destMissingVerdict mirrors sourceMissingVerdict for a known destination
// reference that cannot be found: Pending within the destination chain's
// grace period, definitive after it.
func (e *Engine) destMissingVerdict(msg *store.Message, dstDesc *common.ChainDescriptor) Verdict {
	if msg.DestReportedAt != nil && time.Since(*msg.DestReportedAt) > dstDesc.GracePeriod() {
		return Verdict{Kind: VerdictRejected, Reason: store.ReasonDestTxNotFound}
	}
	return Verdict{Kind: VerdictPending}
}

// getTransaction wraps the adapter call with the chain's RPC timeout and
// the jittered retry budget for transient faults.
func (e *Engine) getTransaction(
	ctx context.Context,
	adapter common.ChainAdapter,
	desc *common.ChainDescriptor,
	ref string,
) (*common.TxInfo, error) {
	var info *common.TxInfo
	err := e.withRetry(ctx, desc, "get_transaction", func(callCtx context.Context) error {
		var innerErr error
		info, innerErr = adapter.GetTransaction(callCtx, ref)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// withRetry runs one RPC operation with a per-call timeout from the chain
// descriptor and the engine's retry budget. The per-call timeout is
// distinct from attempt bookkeeping: a hung RPC surfaces as a retryable
// fault here instead of stalling the worker indefinitely.
func (e *Engine) withRetry(
	ctx context.Context,
	desc *common.ChainDescriptor,
	operation string,
	fn func(context.Context) error,
) error {
	retry := common.NewRetryManager(e.retryCfg, e.logger)
	return retry.ExecuteWithRetry(ctx, operation, func() error {
		callCtx, cancel := context.WithTimeout(ctx, desc.RPCTimeout())
		defer cancel()
		return fn(callCtx)
	})
}
