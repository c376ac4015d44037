// Package svm implements the ChainAdapter contract for Solana-style
// account-model chains using the gagliardetto/solana-go RPC client.
package svm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
)

// digestLogPrefix marks the program log line carrying the message digest
// emitted by the gateway program on delivery.
const digestLogPrefix = "Program log: message_digest="

// Adapter reads transaction state from a Solana RPC. Read-only: it never
// submits transactions.
type Adapter struct {
	descriptor *common.ChainDescriptor
	clients    []*rpc.Client
	index      uint64
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewAdapter connects to the chain's RPC endpoints and returns an adapter.
// Endpoints that fail the health probe are skipped; at least one must pass.
func NewAdapter(descriptor *common.ChainDescriptor, logger zerolog.Logger) (*Adapter, error) {
	if descriptor == nil {
		return nil, fmt.Errorf("chain descriptor is nil")
	}

	log := logger.With().
		Str("component", "svm_adapter").
		Str("chain", descriptor.ChainID).
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clients := make([]*rpc.Client, 0, len(descriptor.RPCURLs))
	for _, url := range descriptor.RPCURLs {
		client := rpc.New(url)

		health, err := client.GetHealth(ctx)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
			continue
		}
		if health != rpc.HealthOk {
			log.Warn().Str("url", url).Str("health", health).Msg("node is not healthy, skipping")
			continue
		}

		clients = append(clients, client)
		log.Info().Str("url", url).Msg("connected to RPC endpoint")
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no working RPC endpoints for chain %s", descriptor.ChainID)
	}

	return &Adapter{
		descriptor: descriptor,
		clients:    clients,
		logger:     log,
	}, nil
}

// ChainID returns the registry chain identifier this adapter serves.
func (a *Adapter) ChainID() string {
	return a.descriptor.ChainID
}

// Family returns common.FamilySVM.
func (a *Adapter) Family() common.Family {
	return common.FamilySVM
}

// GetTransaction fetches the transaction with the given base58 signature.
// An unparseable signature becomes common.ErrMalformedRef; an absent
// transaction becomes common.ErrTxNotFound.
func (a *Adapter) GetTransaction(ctx context.Context, ref string) (*common.TxInfo, error) {
	sig, err := solana.SignatureFromBase58(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a base58 signature", common.ErrMalformedRef, ref)
	}

	var txResult *rpc.GetTransactionResult
	err = a.executeWithFailover(ctx, "get_transaction", func(client *rpc.Client) error {
		var innerErr error
		txResult, innerErr = client.GetTransaction(
			ctx,
			sig,
			&rpc.GetTransactionOpts{
				Encoding: solana.EncodingBase64,
			},
		)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if txResult == nil {
		return nil, common.ErrTxNotFound
	}

	success := txResult.Meta == nil || txResult.Meta.Err == nil

	return &common.TxInfo{
		Ref:           ref,
		Height:        txResult.Slot,
		Success:       success,
		PayloadDigest: extractDigest(txResult),
	}, nil
}

// GetConfirmationDepth returns how many slots the chain has built on top of
// the transaction's slot, inclusive of its own. Solana's commitment levels
// are deliberately not mapped to synthetic counts here; depth is the real
// slot distance so the configured RequiredDepth keeps its meaning.
func (a *Adapter) GetConfirmationDepth(ctx context.Context, ref string) (uint64, error) {
	sig, err := solana.SignatureFromBase58(ref)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a base58 signature", common.ErrMalformedRef, ref)
	}

	var statuses *rpc.GetSignatureStatusesResult
	err = a.executeWithFailover(ctx, "get_signature_statuses", func(client *rpc.Client) error {
		var innerErr error
		statuses, innerErr = client.GetSignatureStatuses(ctx, true, sig)
		return innerErr
	})
	if err != nil {
		return 0, err
	}
	if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return 0, common.ErrTxNotFound
	}

	status := statuses.Value[0]

	currentSlot, err := a.GetCurrentHeight(ctx)
	if err != nil {
		return 0, err
	}
	if currentSlot < status.Slot {
		return 0, nil
	}
	return currentSlot - status.Slot + 1, nil
}

// GetCurrentHeight returns the chain's current slot at confirmed commitment.
func (a *Adapter) GetCurrentHeight(ctx context.Context) (uint64, error) {
	var slot uint64
	err := a.executeWithFailover(ctx, "get_slot", func(client *rpc.Client) error {
		var innerErr error
		slot, innerErr = client.GetSlot(ctx, rpc.CommitmentConfirmed)
		return innerErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get current slot: %w", err)
	}
	return slot, nil
}

// Close releases all RPC connections.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, client := range a.clients {
		_ = client.Close()
	}
	a.clients = nil
	return nil
}

// extractDigest scans the program logs for the gateway's delivery record.
func extractDigest(txResult *rpc.GetTransactionResult) string {
	if txResult.Meta == nil {
		return ""
	}
	for _, line := range txResult.Meta.LogMessages {
		if strings.HasPrefix(line, digestLogPrefix) {
			return strings.TrimPrefix(line, digestLogPrefix)
		}
	}
	return ""
}

// executeWithFailover runs fn against the endpoints round-robin, moving to
// the next one on transient errors. A "not found" answer from solana-go
// surfaces as an error mentioning the missing transaction; it is returned
// as the definitive common.ErrTxNotFound instead of triggering failover.
func (a *Adapter) executeWithFailover(ctx context.Context, operation string, fn func(*rpc.Client) error) error {
	a.mu.RLock()
	clients := a.clients
	a.mu.RUnlock()

	if len(clients) == 0 {
		return fmt.Errorf("no RPC clients available for %s", operation)
	}

	var lastErr error
	maxAttempts := len(clients)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		index := atomic.AddUint64(&a.index, 1) - 1
		client := clients[index%uint64(len(clients))]

		err := fn(client)
		if err == nil {
			return nil
		}
		if isNotFoundErr(err) {
			return common.ErrTxNotFound
		}

		lastErr = err
		a.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return fmt.Errorf("operation %s failed after trying %d endpoints: %w", operation, maxAttempts, lastErr)
}

// isNotFoundErr recognizes solana-go's "not found" RPC answer.
func isNotFoundErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "NotFound")
}
