// Package tracker owns the cross-chain message lifecycle: it creates the
// durable record for every outbound message, applies the state machine
// Created -> InFlight -> Delivered -> Completed (Failed from any
// non-terminal state), schedules verification, and fans transitions out to
// the notification hub. The verification engine only returns verdicts; all
// state changes happen here.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/notify"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

// Publisher receives every applied status transition. Satisfied by
// *notify.Hub.
type Publisher interface {
	Publish(tr notify.Transition)
}

// AttemptCanceler cancels a message's in-flight verification attempt.
// Satisfied by *Scheduler; wired after construction.
type AttemptCanceler interface {
	CancelAttempt(messageID string)
}

// Config tunes the tracker's lifecycle policy.
type Config struct {
	// HomeChain is the source chain assumed when a caller does not name
	// one.
	HomeChain string

	// MaxVerificationAttempts bounds completed check cycles before the
	// timeout-as-failure policy fires.
	MaxVerificationAttempts uint

	// CheckInterval is the pause between verification cycles for one
	// message.
	CheckInterval time.Duration
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		MaxVerificationAttempts: 30,
		CheckInterval:           15 * time.Second,
	}
}

// Tracker is the message lifecycle state machine.
type Tracker struct {
	store    *MessageStore
	registry *chains.Registry
	hub      Publisher
	canceler AttemptCanceler
	cfg      Config
	logger   zerolog.Logger
}

// NewTracker creates a tracker. hub may be nil when no subscriber fan-out
// is wanted (tests).
func NewTracker(
	messageStore *MessageStore,
	registry *chains.Registry,
	hub Publisher,
	cfg Config,
	logger zerolog.Logger,
) *Tracker {
	if cfg.MaxVerificationAttempts == 0 {
		cfg.MaxVerificationAttempts = DefaultConfig().MaxVerificationAttempts
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	return &Tracker{
		store:    messageStore,
		registry: registry,
		hub:      hub,
		cfg:      cfg,
		logger:   logger.With().Str("component", "message_tracker").Logger(),
	}
}

// SetAttemptCanceler wires the scheduler's cancel hook. Must be called
// before RetryVerification is exposed to callers.
func (t *Tracker) SetAttemptCanceler(c AttemptCanceler) {
	t.canceler = c
}

// Store exposes the underlying message store for read paths (API scans,
// hub replay).
func (t *Tracker) Store() *MessageStore {
	return t.store
}

// SendMessage validates the payload against the chain pair and creates the
// Created record. It never touches any chain. A repeat of the same logical
// send (same chain pair, type, nonce) returns the existing message id.
func (t *Tracker) SendMessage(
	ctx context.Context,
	sourceChain, destChain, messageType string,
	payload []byte,
	nonce uint64,
) (string, error) {
	if sourceChain == "" {
		sourceChain = t.cfg.HomeChain
	}

	srcDesc := t.registry.Descriptor(sourceChain)
	if srcDesc == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownChain, sourceChain)
	}
	dstDesc := t.registry.Descriptor(destChain)
	if dstDesc == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownChain, destChain)
	}
	if sourceChain == destChain {
		return "", fmt.Errorf("%w: source and destination are both %s", ErrInvalidPayload, sourceChain)
	}

	if err := validatePayload(messageType, payload, srcDesc.MaxPayload(), dstDesc.MaxPayload()); err != nil {
		return "", err
	}

	messageID, err := DeriveMessageID(srcDesc.LayerZeroEID, dstDesc.LayerZeroEID, messageType, nonce)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	msg := &store.Message{
		MessageID:     messageID,
		SourceChain:   sourceChain,
		DestChain:     destChain,
		MessageType:   messageType,
		Nonce:         nonce,
		Payload:       payload,
		PayloadDigest: PayloadDigest(payload),
		Status:        store.StatusCreated,
	}

	created, isNew, err := t.store.Create(msg)
	if err != nil {
		return "", err
	}
	if !isNew {
		t.logger.Debug().
			Str("message_id", created.MessageID).
			Msg("duplicate send detected, returning existing message")
		return created.MessageID, nil
	}

	t.logger.Info().
		Str("message_id", messageID).
		Str("source_chain", sourceChain).
		Str("dest_chain", destChain).
		Str("type", messageType).
		Int("payload_bytes", len(payload)).
		Msg("message created")

	return messageID, nil
}

// ReportSourceSubmission records the source-chain transaction reference and
// moves the message into InFlight, scheduling the first verification check.
// Idempotent for the same txRef; a different txRef after one is set fails
// with ErrConflictingSubmission and changes nothing.
func (t *Tracker) ReportSourceSubmission(ctx context.Context, messageID, txRef string) error {
	if txRef == "" {
		return fmt.Errorf("%w: empty transaction reference", ErrInvalidPayload)
	}

	msg, err := t.store.Get(messageID)
	if err != nil {
		return err
	}

	if msg.SourceTxRef == txRef {
		return nil
	}
	if msg.SourceTxRef != "" {
		return fmt.Errorf("%w: message %s already has source tx %s",
			ErrConflictingSubmission, messageID, msg.SourceTxRef)
	}
	if msg.Status != store.StatusCreated {
		return fmt.Errorf("%w: message %s is %s", ErrStaleTransition, messageID, msg.Status)
	}

	now := time.Now()
	_, tr, err := t.store.Transition(messageID, store.StatusCreated, store.StatusInFlight, func(m *store.Message) {
		m.SourceTxRef = txRef
		m.SourceReportedAt = &now
		m.NextCheckAt = &now
	})
	if err != nil {
		if errors.Is(err, ErrStaleTransition) {
			// Lost a race against a concurrent report. Same ref means the
			// other call did our work; different ref is a conflict.
			current, getErr := t.store.Get(messageID)
			if getErr == nil && current.SourceTxRef == txRef {
				return nil
			}
			return fmt.Errorf("%w: message %s", ErrConflictingSubmission, messageID)
		}
		return err
	}

	t.publish(tr)
	return nil
}

// ReportDestinationObservation records the destination-side transaction
// reference once the relaying layer observes it. Allowed only while the
// message is InFlight or Delivered; idempotent for the same ref.
func (t *Tracker) ReportDestinationObservation(ctx context.Context, messageID, txRef string) error {
	if txRef == "" {
		return fmt.Errorf("%w: empty transaction reference", ErrInvalidPayload)
	}

	_, err := t.store.Update(messageID, func(m *store.Message) error {
		if m.DestTxRef == txRef {
			return nil
		}
		if m.DestTxRef != "" {
			return fmt.Errorf("%w: message %s already has destination tx %s",
				ErrConflictingSubmission, messageID, m.DestTxRef)
		}
		if m.Status != store.StatusInFlight && m.Status != store.StatusDelivered {
			return fmt.Errorf("%w: message %s is %s", ErrStaleTransition, messageID, m.Status)
		}
		now := time.Now()
		m.DestTxRef = txRef
		m.DestReportedAt = &now
		return nil
	})
	return err
}

// GetStatus returns the current record. Pure store read; never blocks on
// network I/O.
func (t *Tracker) GetStatus(ctx context.Context, messageID string) (*store.Message, error) {
	return t.store.Get(messageID)
}

// RetryVerification forces a fresh check cycle for a message stuck in
// InFlight or Delivered: it cancels any in-flight attempt, resets the
// backoff timer, and leaves the attempt counter untouched.
func (t *Tracker) RetryVerification(ctx context.Context, messageID string) error {
	msg, err := t.store.Get(messageID)
	if err != nil {
		return err
	}
	if msg.Status != store.StatusInFlight && msg.Status != store.StatusDelivered {
		return fmt.Errorf("%w: message %s is %s", ErrNotRetryable, messageID, msg.Status)
	}

	if t.canceler != nil {
		t.canceler.CancelAttempt(messageID)
	}

	now := time.Now()
	_, err = t.store.Update(messageID, func(m *store.Message) error {
		if m.IsTerminal() {
			return fmt.Errorf("%w: message %s is %s", ErrNotRetryable, messageID, m.Status)
		}
		m.NextCheckAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	t.logger.Info().
		Str("message_id", messageID).
		Msg("verification retry requested")
	return nil
}

// ApplyVerdict folds one completed verification cycle into the message
// state. Completed cycles consume an attempt regardless of outcome;
// transient faults never reach here. Late verdicts for messages that
// already reached a terminal state are logged as anomalies and dropped;
// the first terminal transition wins.
func (t *Tracker) ApplyVerdict(messageID string, v Verdict) {
	now := time.Now()
	next := now.Add(t.cfg.CheckInterval)

	msg, err := t.store.Update(messageID, func(m *store.Message) error {
		if m.IsTerminal() {
			return ErrStaleTransition
		}
		m.VerificationAttempts++
		m.LastCheckedAt = &now
		m.NextCheckAt = &next
		if v.SourceMissing {
			m.SourceMissingChecks++
		} else {
			m.SourceMissingChecks = 0
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStaleTransition) {
			t.logger.Warn().
				Str("message_id", messageID).
				Str("verdict", v.String()).
				Msg("anomaly: verdict arrived after terminal state, ignoring")
			return
		}
		t.logger.Error().Err(err).Str("message_id", messageID).Msg("failed to record verification attempt")
		return
	}

	switch v.Kind {
	case VerdictPending:
		if msg.VerificationAttempts >= t.cfg.MaxVerificationAttempts {
			t.fail(msg, store.ReasonVerificationTimeout)
		}

	case VerdictDelivered:
		if msg.Status == store.StatusInFlight {
			t.transition(messageID, store.StatusInFlight, store.StatusDelivered, nil)
			msg.Status = store.StatusDelivered
		}
		// Delivered is not resolution: a destination stuck short of the
		// required depth must still time out like a Pending message.
		if msg.VerificationAttempts >= t.cfg.MaxVerificationAttempts {
			t.fail(msg, store.ReasonVerificationTimeout)
		}

	case VerdictVerified:
		if msg.Status == store.StatusInFlight {
			t.transition(messageID, store.StatusInFlight, store.StatusDelivered, nil)
		}
		t.transition(messageID, store.StatusDelivered, store.StatusCompleted, func(m *store.Message) {
			m.NextCheckAt = nil
		})

	case VerdictRejected:
		t.fail(msg, v.Reason)
	}
}

// RescheduleAfterFault pushes the next check out after a transient RPC
// fault without consuming a verification attempt.
func (t *Tracker) RescheduleAfterFault(messageID string) {
	next := time.Now().Add(t.cfg.CheckInterval)
	_, err := t.store.Update(messageID, func(m *store.Message) error {
		if m.IsTerminal() {
			return ErrStaleTransition
		}
		m.NextCheckAt = &next
		return nil
	})
	if err != nil && !errors.Is(err, ErrStaleTransition) {
		t.logger.Error().Err(err).Str("message_id", messageID).Msg("failed to reschedule after fault")
	}
}

// CheckInterval exposes the configured pause between check cycles.
func (t *Tracker) CheckInterval() time.Duration {
	return t.cfg.CheckInterval
}

// fail moves a message into the terminal Failed state with a taxonomy
// reason. A lost race against another terminal transition is an anomaly,
// not an error: the first one wins.
func (t *Tracker) fail(msg *store.Message, reason string) {
	_, tr, err := t.store.Transition(msg.MessageID, msg.Status, store.StatusFailed, func(m *store.Message) {
		m.FailureReason = reason
		m.NextCheckAt = nil
	})
	if err != nil {
		if errors.Is(err, ErrStaleTransition) {
			t.logger.Warn().
				Str("message_id", msg.MessageID).
				Str("reason", reason).
				Msg("anomaly: failure signal lost race against another transition")
			return
		}
		t.logger.Error().Err(err).Str("message_id", msg.MessageID).Msg("failed to mark message failed")
		return
	}

	t.logger.Info().
		Str("message_id", msg.MessageID).
		Str("reason", reason).
		Msg("message failed")
	t.publish(tr)
}

// transition applies one CAS state change and publishes it. Stale results
// are logged at debug level: they are the expected outcome of racing
// signals, resolved by processing order.
func (t *Tracker) transition(messageID, from, to string, mutate func(*store.Message)) {
	_, tr, err := t.store.Transition(messageID, from, to, mutate)
	if err != nil {
		if errors.Is(err, ErrStaleTransition) {
			t.logger.Debug().
				Str("message_id", messageID).
				Str("from", from).
				Str("to", to).
				Msg("transition lost race, skipping")
			return
		}
		t.logger.Error().Err(err).
			Str("message_id", messageID).
			Str("from", from).
			Str("to", to).
			Msg("failed to apply transition")
		return
	}
	t.publish(tr)
}

func (t *Tracker) publish(tr *notify.Transition) {
	if t.hub != nil && tr != nil {
		t.hub.Publish(*tr)
	}
}

// validatePayload enforces the chain pair's size bound and the
// type-specific shape checks.
func validatePayload(messageType string, payload []byte, srcMax, dstMax int) error {
	if !store.ValidMessageType(messageType) {
		return fmt.Errorf("%w: unknown message type %q", ErrInvalidPayload, messageType)
	}

	limit := srcMax
	if dstMax < limit {
		limit = dstMax
	}
	if len(payload) > limit {
		return fmt.Errorf("%w: payload is %d bytes, chain pair allows %d",
			ErrInvalidPayload, len(payload), limit)
	}

	switch messageType {
	case store.TypeTransfer:
		if len(payload) == 0 {
			return fmt.Errorf("%w: transfer payload must not be empty", ErrInvalidPayload)
		}
	case store.TypeQuery:
		// First byte is the query kind (NFT data, token transfer history,
		// market activity, wallet history).
		if len(payload) == 0 || payload[0] == 0 || payload[0] > 4 {
			return fmt.Errorf("%w: query payload must start with a query kind in 1..4", ErrInvalidPayload)
		}
	}
	return nil
}
