package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/db"
)

// Cleaner periodically prunes terminal messages that have aged past the
// retention period. Pruning runs off the verification hot path; the only
// shared resource is the database.
type Cleaner struct {
	store           *MessageStore
	database        *db.DB
	cleanupInterval time.Duration
	retentionPeriod time.Duration
	logger          zerolog.Logger
	stopCh          chan struct{}
}

// NewCleaner creates a cleaner over the message store.
func NewCleaner(
	messageStore *MessageStore,
	database *db.DB,
	cleanupInterval time.Duration,
	retentionPeriod time.Duration,
	logger zerolog.Logger,
) *Cleaner {
	return &Cleaner{
		store:           messageStore,
		database:        database,
		cleanupInterval: cleanupInterval,
		retentionPeriod: retentionPeriod,
		logger:          logger.With().Str("component", "message_cleaner").Logger(),
		stopCh:          make(chan struct{}),
	}
}

// Start begins the periodic cleanup process.
func (c *Cleaner) Start(ctx context.Context) {
	c.logger.Info().
		Str("cleanup_interval", c.cleanupInterval.String()).
		Str("retention_period", c.retentionPeriod.String()).
		Msg("starting message cleaner")

	// Initial cleanup failures are logged, never fatal at startup.
	if err := c.performCleanup(); err != nil {
		c.logger.Error().Err(err).Msg("failed to perform initial cleanup")
	}

	ticker := time.NewTicker(c.cleanupInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				if err := c.performCleanup(); err != nil {
					c.logger.Error().Err(err).Msg("failed to perform scheduled cleanup")
				}
			}
		}
	}()
}

// Stop gracefully stops the cleaner.
func (c *Cleaner) Stop() {
	close(c.stopCh)
}

// performCleanup prunes terminal messages older than the retention period.
func (c *Cleaner) performCleanup() error {
	start := time.Now()
	cutoff := start.Add(-c.retentionPeriod)

	deleted, err := c.store.PruneTerminal(cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		c.logger.Info().
			Int64("deleted_count", deleted).
			Str("duration", time.Since(start).String()).
			Msg("terminal message cleanup completed")
		c.checkpointWAL()
	} else {
		c.logger.Debug().
			Str("duration", time.Since(start).String()).
			Msg("message cleanup completed, nothing to delete")
	}
	return nil
}

// checkpointWAL truncates the WAL so the space freed by pruning is returned
// to the filesystem.
func (c *Cleaner) checkpointWAL() {
	if err := c.database.Client().Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		c.logger.Warn().Err(err).Msg("failed to checkpoint WAL")
	}
}
