// Package core wires the bridge daemon together: database, chain registry,
// message tracker, verification scheduler, notification hub and API server.
package core

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/api"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/config"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/db"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/fees"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/notify"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/tracker"

	"github.com/pkg/errors"
)

const dbFileName = "bridged.db"

// BridgeClient owns the lifecycle of every daemon component.
type BridgeClient struct {
	ctx context.Context
	log zerolog.Logger
	cfg config.Config

	db        *db.DB
	registry  *chains.Registry
	hub       *notify.Hub
	tracker   *tracker.Tracker
	scheduler *tracker.Scheduler
	cleaner   *tracker.Cleaner
	apiServer *api.Server
}

// NewBridgeClient builds the full component graph. Nothing starts running
// until Start.
func NewBridgeClient(ctx context.Context, log zerolog.Logger, cfg config.Config) (*BridgeClient, error) {
	database, err := db.OpenFileDB(filepath.Join(cfg.NodeHome, "data"), dbFileName, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	registry := chains.NewRegistry(log)
	if err := registry.Init(cfg.Chains); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to initialize chain registry")
	}

	messageStore := tracker.NewMessageStore(database, log)
	hub := notify.NewHub(messageStore, log)

	trk := tracker.NewTracker(messageStore, registry, hub, tracker.Config{
		HomeChain:               cfg.HomeChain,
		MaxVerificationAttempts: uint(cfg.Verification.MaxAttempts),
		CheckInterval:           cfg.Verification.CheckInterval(),
	}, log)

	engine := tracker.NewEngine(registry, common.DefaultRetryConfig(), log)
	scheduler := tracker.NewScheduler(trk, engine, tracker.SchedulerConfig{
		Workers:      cfg.Verification.Workers,
		PollInterval: cfg.Verification.PollInterval(),
		BatchLimit:   cfg.Verification.BatchLimit,
	}, log)
	trk.SetAttemptCanceler(scheduler)

	cleaner := tracker.NewCleaner(
		messageStore,
		database,
		cfg.Retention.CleanupInterval(),
		cfg.Retention.RetentionPeriod(),
		log,
	)

	apiServer := api.NewServer(log, cfg.APIPort, trk, messageStore, registry, fees.NewEstimator(), hub)

	return &BridgeClient{
		ctx:       ctx,
		log:       log,
		cfg:       cfg,
		db:        database,
		registry:  registry,
		hub:       hub,
		tracker:   trk,
		scheduler: scheduler,
		cleaner:   cleaner,
		apiServer: apiServer,
	}, nil
}

// Tracker exposes the message tracker for tests and embedding callers.
func (c *BridgeClient) Tracker() *tracker.Tracker {
	return c.tracker
}

// Start launches the scheduler and the API server, then blocks until the
// context is canceled. Shutdown runs in reverse start order.
func (c *BridgeClient) Start() error {
	c.log.Info().Msg("🚀 Starting bridge daemon...")

	c.scheduler.Start(c.ctx)
	c.cleaner.Start(c.ctx)

	if err := c.apiServer.Start(); err != nil {
		c.cleaner.Stop()
		c.scheduler.Stop()
		c.db.Close()
		return errors.Wrap(err, "failed to start API server")
	}

	c.log.Info().
		Int("api_port", c.cfg.APIPort).
		Int("chains", len(c.cfg.Chains)).
		Msg("✅ Initialization complete. Entering main loop...")

	<-c.ctx.Done()

	c.log.Info().Msg("🛑 Shutting down bridge daemon...")

	if err := c.apiServer.Stop(); err != nil {
		c.log.Error().Err(err).Msg("failed to stop API server")
	}
	c.cleaner.Stop()
	c.scheduler.Stop()
	c.registry.StopAll()
	return c.db.Close()
}
