// Package evm implements the ChainAdapter contract for EVM-compatible
// chains on top of go-ethereum's ethclient.
package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
)

// Adapter reads transaction state from an EVM chain. Read-only: it never
// submits transactions.
type Adapter struct {
	descriptor *common.ChainDescriptor
	clients    []*ethclient.Client
	index      uint64
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewAdapter connects to the chain's RPC endpoints and returns an adapter.
// Endpoints that fail to dial are skipped; at least one must connect.
func NewAdapter(descriptor *common.ChainDescriptor, logger zerolog.Logger) (*Adapter, error) {
	if descriptor == nil {
		return nil, fmt.Errorf("chain descriptor is nil")
	}

	log := logger.With().
		Str("component", "evm_adapter").
		Str("chain", descriptor.ChainID).
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clients := make([]*ethclient.Client, 0, len(descriptor.RPCURLs))
	for _, url := range descriptor.RPCURLs {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
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

// Family returns common.FamilyEVM.
func (a *Adapter) Family() common.Family {
	return common.FamilyEVM
}

// GetTransaction fetches the receipt at ref and translates it into the
// chain-neutral TxInfo. ethereum.NotFound becomes common.ErrTxNotFound; an
// unparseable hash becomes common.ErrMalformedRef.
func (a *Adapter) GetTransaction(ctx context.Context, ref string) (*common.TxInfo, error) {
	hash, err := parseTxHash(ref)
	if err != nil {
		return nil, err
	}

	var receipt *types.Receipt
	err = a.executeWithFailover(ctx, "get_transaction_receipt", func(client *ethclient.Client) error {
		var innerErr error
		receipt, innerErr = client.TransactionReceipt(ctx, hash)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return nil, common.ErrTxNotFound
	}

	return &common.TxInfo{
		Ref:           ref,
		Height:        receipt.BlockNumber.Uint64(),
		Success:       receipt.Status == types.ReceiptStatusSuccessful,
		PayloadDigest: a.extractDigest(receipt),
	}, nil
}

// GetConfirmationDepth returns the number of blocks built on the
// transaction's block, inclusive of its own.
func (a *Adapter) GetConfirmationDepth(ctx context.Context, ref string) (uint64, error) {
	info, err := a.GetTransaction(ctx, ref)
	if err != nil {
		return 0, err
	}

	currentBlock, err := a.GetCurrentHeight(ctx)
	if err != nil {
		return 0, err
	}

	if currentBlock < info.Height {
		return 0, nil
	}
	return currentBlock - info.Height + 1, nil
}

// GetCurrentHeight returns the chain's latest block number.
func (a *Adapter) GetCurrentHeight(ctx context.Context) (uint64, error) {
	var currentBlock uint64
	err := a.executeWithFailover(ctx, "get_block_number", func(client *ethclient.Client) error {
		var innerErr error
		currentBlock, innerErr = client.BlockNumber(ctx)
		return innerErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get current block: %w", err)
	}
	return currentBlock, nil
}

// Close releases all RPC connections.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, client := range a.clients {
		client.Close()
	}
	a.clients = nil
	return nil
}

// extractDigest looks for the gateway event carrying the message digest.
// The gateway emits the digest as the first indexed topic after the event
// signature; logs from other contracts are ignored when a gateway address
// is configured.
func (a *Adapter) extractDigest(receipt *types.Receipt) string {
	var gateway ethcommon.Address
	haveGateway := a.descriptor.GatewayAddress != ""
	if haveGateway {
		gateway = ethcommon.HexToAddress(a.descriptor.GatewayAddress)
	}

	for _, log := range receipt.Logs {
		if haveGateway && log.Address != gateway {
			continue
		}
		if len(log.Topics) < 2 {
			continue
		}
		return hex.EncodeToString(log.Topics[1].Bytes())
	}
	return ""
}

// executeWithFailover runs fn against the endpoints round-robin, moving to
// the next endpoint on transient errors. A definitive NotFound answer is
// returned immediately: a healthy endpoint's "no such transaction" must not
// be masked by asking another one.
func (a *Adapter) executeWithFailover(ctx context.Context, operation string, fn func(*ethclient.Client) error) error {
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
		if errors.Is(err, ethereum.NotFound) {
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

// parseTxHash validates an EVM transaction hash reference.
func parseTxHash(ref string) (ethcommon.Hash, error) {
	trimmed := strings.TrimPrefix(ref, "0x")
	if len(trimmed) != 64 {
		return ethcommon.Hash{}, fmt.Errorf("%w: %q is not a 32-byte hex hash", common.ErrMalformedRef, ref)
	}
	if _, err := hex.DecodeString(trimmed); err != nil {
		return ethcommon.Hash{}, fmt.Errorf("%w: %q is not valid hex", common.ErrMalformedRef, ref)
	}
	return ethcommon.HexToHash(ref), nil
}
