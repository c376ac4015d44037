package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

// SchedulerConfig tunes the verification worker pool.
type SchedulerConfig struct {
	// Workers is the number of concurrent verification goroutines.
	Workers int

	// PollInterval is how often the dispatcher scans for due messages.
	PollInterval time.Duration

	// BatchLimit caps how many due messages one scan picks up.
	BatchLimit int
}

// DefaultSchedulerConfig returns the scheduler defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:      4,
		PollInterval: 5 * time.Second,
		BatchLimit:   100,
	}
}

// Scheduler drives verification: a dispatcher scans the store for messages
// whose next check is due and hands them to a bounded worker pool. At most
// one verification attempt runs per message id at any time.
type Scheduler struct {
	tracker *Tracker
	engine  *Engine
	cfg     SchedulerConfig
	logger  zerolog.Logger

	// inflight maps message id to the cancel func of its running attempt.
	inflight sync.Map

	jobs   chan store.Message
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler over the tracker's store.
func NewScheduler(tracker *Tracker, engine *Engine, cfg SchedulerConfig, logger zerolog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultSchedulerConfig().Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultSchedulerConfig().PollInterval
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultSchedulerConfig().BatchLimit
	}
	return &Scheduler{
		tracker: tracker,
		engine:  engine,
		cfg:     cfg,
		logger:  logger.With().Str("component", "verification_scheduler").Logger(),
		jobs:    make(chan store.Message, cfg.Workers*2),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the dispatcher and worker goroutines. The pool drains and
// exits when ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.wg.Add(1)
	go s.dispatch(ctx)

	s.logger.Info().
		Int("workers", s.cfg.Workers).
		Dur("poll_interval", s.cfg.PollInterval).
		Msg("verification scheduler started")
}

// Stop shuts the pool down and waits for running attempts to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("verification scheduler stopped")
}

// CancelAttempt aborts the running verification attempt for a message, if
// any. The attempt's verdict is discarded and no attempt is consumed.
func (s *Scheduler) CancelAttempt(messageID string) {
	if cancel, ok := s.inflight.Load(messageID); ok {
		cancel.(context.CancelFunc)()
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.jobs)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scanDue(ctx)
		}
	}
}

func (s *Scheduler) scanDue(ctx context.Context) {
	due, err := s.tracker.Store().DueForVerification(time.Now(), s.cfg.BatchLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to scan for due messages")
		return
	}

	for _, msg := range due {
		select {
		case s.jobs <- msg:
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case msg, ok := <-s.jobs:
			if !ok {
				return
			}
			s.verifyOne(ctx, msg)
		}
	}
}

// verifyOne runs a single verification attempt. The inflight map keeps a
// second attempt for the same id from starting while one is running; a
// duplicate pick-up from overlapping scans is dropped.
func (s *Scheduler) verifyOne(ctx context.Context, msg store.Message) {
	attemptCtx, cancel := context.WithCancel(ctx)
	if _, running := s.inflight.LoadOrStore(msg.MessageID, cancel); running {
		cancel()
		return
	}
	defer func() {
		s.inflight.Delete(msg.MessageID)
		cancel()
	}()

	verdict, err := s.engine.Verify(attemptCtx, &msg)
	if err != nil {
		if attemptCtx.Err() != nil {
			s.logger.Debug().
				Str("message_id", msg.MessageID).
				Msg("verification attempt canceled")
			return
		}
		s.logger.Warn().Err(err).
			Str("message_id", msg.MessageID).
			Msg("verification attempt hit transient fault, rescheduling")
		s.tracker.RescheduleAfterFault(msg.MessageID)
		return
	}

	s.tracker.ApplyVerdict(msg.MessageID, verdict)
}
