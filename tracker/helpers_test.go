package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/db"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/notify"
)

// fakeAdapter is an in-memory ChainAdapter for tests. Transactions and
// depths are seeded per reference; unknown references answer ErrTxNotFound.
type fakeAdapter struct {
	mu      sync.Mutex
	chainID string
	family  common.Family
	txs     map[string]*common.TxInfo
	depths  map[string]uint64
	errs    map[string]error
	height  uint64
	delay   time.Duration
	calls   int
}

func newFakeAdapter(chainID string, family common.Family) *fakeAdapter {
	return &fakeAdapter{
		chainID: chainID,
		family:  family,
		txs:     make(map[string]*common.TxInfo),
		depths:  make(map[string]uint64),
		errs:    make(map[string]error),
		height:  1000,
	}
}

func (f *fakeAdapter) setTx(ref string, info *common.TxInfo, depth uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[ref] = info
	f.depths[ref] = depth
}

func (f *fakeAdapter) setErr(ref string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[ref] = err
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAdapter) ChainID() string       { return f.chainID }
func (f *fakeAdapter) Family() common.Family { return f.family }
func (f *fakeAdapter) Close() error          { return nil }

func (f *fakeAdapter) GetTransaction(ctx context.Context, ref string) (*common.TxInfo, error) {
	f.mu.Lock()
	f.calls++
	err := f.errs[ref]
	info := f.txs[ref]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, common.ErrTxNotFound
	}
	return info, nil
}

func (f *fakeAdapter) GetConfirmationDepth(ctx context.Context, ref string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[ref]; err != nil {
		return 0, err
	}
	depth, ok := f.depths[ref]
	if !ok {
		return 0, common.ErrTxNotFound
	}
	return depth, nil
}

func (f *fakeAdapter) GetCurrentHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

// testEnv bundles the full tracker stack over an in-memory database and
// fake adapters.
type testEnv struct {
	db       *db.DB
	store    *MessageStore
	registry *chains.Registry
	hub      *notify.Hub
	tracker  *Tracker
	engine   *Engine
	adapters map[string]*fakeAdapter
}

func testDescriptors() []common.ChainDescriptor {
	return []common.ChainDescriptor{
		{
			ChainID:            "solana",
			Name:               "solana",
			Family:             common.FamilySVM,
			RPCURLs:            []string{"http://localhost:8899"},
			LayerZeroEID:       40168,
			RequiredDepth:      2,
			GracePeriodSeconds: 1,
			NativeToken:        "SOL",
		},
		{
			ChainID:            "ethereum",
			Name:               "ethereum",
			Family:             common.FamilyEVM,
			RPCURLs:            []string{"http://localhost:8545"},
			LayerZeroEID:       40161,
			RequiredDepth:      3,
			GracePeriodSeconds: 1,
			NativeToken:        "ETH",
		},
		{
			ChainID:            "solana-2",
			Name:               "solana-2",
			Family:             common.FamilySVM,
			RPCURLs:            []string{"http://localhost:8900"},
			LayerZeroEID:       40169,
			RequiredDepth:      2,
			GracePeriodSeconds: 1,
			NativeToken:        "SOL",
		},
	}
}

func fastRetryConfig() *common.RetryConfig {
	return &common.RetryConfig{
		MaxRetries:     2,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		BackoffFactor:  2.0,
		JitterFraction: 0,
		RetryableError: func(err error) bool {
			return common.Classify(err) == common.OutcomeRetryable
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log := zerolog.Nop()

	adapters := make(map[string]*fakeAdapter)
	factory := func(d *common.ChainDescriptor, _ zerolog.Logger) (common.ChainAdapter, error) {
		a := newFakeAdapter(d.ChainID, d.Family)
		adapters[d.ChainID] = a
		return a, nil
	}

	registry := chains.NewRegistryWithFactory(factory, log)
	require.NoError(t, registry.Init(testDescriptors()))

	messageStore := NewMessageStore(database, log)
	hub := notify.NewHub(messageStore, log)

	trk := NewTracker(messageStore, registry, hub, Config{
		HomeChain:               "solana",
		MaxVerificationAttempts: 3,
		CheckInterval:           10 * time.Millisecond,
	}, log)

	engine := NewEngine(registry, fastRetryConfig(), log)

	return &testEnv{
		db:       database,
		store:    messageStore,
		registry: registry,
		hub:      hub,
		tracker:  trk,
		engine:   engine,
		adapters: adapters,
	}
}

// sendInFlight creates a message and reports its source submission so it
// sits in InFlight with a scheduled check.
func (env *testEnv) sendInFlight(t *testing.T, payload []byte, nonce uint64) string {
	t.Helper()

	id, err := env.tracker.SendMessage(context.Background(), "solana", "ethereum", "transfer", payload, nonce)
	require.NoError(t, err)
	require.NoError(t, env.tracker.ReportSourceSubmission(context.Background(), id, "srctx-"+id[:8]))

	msg, err := env.store.Get(id)
	require.NoError(t, err)
	env.adapters["solana"].setTx(msg.SourceTxRef, &common.TxInfo{
		Ref:     msg.SourceTxRef,
		Height:  100,
		Success: true,
	}, 10)

	return id
}
