// Package store contains the GORM-backed SQLite models for the message
// tracker: the cross-chain message records themselves plus the append-only
// status transition log used for subscriber replay.
package store

import (
	"time"

	"gorm.io/gorm"
)

// Message lifecycle states. Transitions are monotonic: a message moves
// forward through Created -> InFlight -> Delivered -> Completed, or falls
// into Failed from any non-terminal state. Completed and Failed are
// terminal and never left.
const (
	StatusCreated   = "created"
	StatusInFlight  = "in_flight"
	StatusDelivered = "delivered"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Message types routed through the messaging network.
const (
	TypeTransfer     = "transfer"
	TypeQuery        = "query"
	TypeNotification = "notification"
	TypeCustom       = "custom"
)

// Failure reasons recorded on terminal Failed messages. These are the only
// values ever written to Message.FailureReason; raw RPC errors stay in logs.
const (
	ReasonInvalidPayload        = "INVALID_PAYLOAD"
	ReasonConflictingSubmission = "CONFLICTING_SUBMISSION"
	ReasonUnsupportedChainPair  = "UNSUPPORTED_CHAIN_PAIR"
	ReasonSourceTxNotFound      = "SOURCE_TX_NOT_FOUND"
	ReasonDestTxNotFound        = "DEST_TX_NOT_FOUND"
	ReasonPayloadMismatch       = "PAYLOAD_MISMATCH"
	ReasonVerificationTimeout   = "VERIFICATION_TIMEOUT"
)

// Message is the durable record of one tracked cross-chain message.
// MessageID is derived deterministically from the chain pair, message type
// and nonce, so a retried send maps onto the same record instead of
// creating a duplicate.
type Message struct {
	gorm.Model
	MessageID   string `gorm:"uniqueIndex;size:64"` // hex-encoded 32-byte id
	SourceChain string `gorm:"index"`
	DestChain   string `gorm:"index"`
	MessageType string
	Nonce       uint64
	Payload     []byte
	// PayloadDigest is the hex SHA-256 of Payload, cross-referenced against
	// the digest observed in the destination-side effect.
	PayloadDigest string `gorm:"size:64"`
	Status        string `gorm:"index"`
	SourceTxRef   string
	DestTxRef     string
	FailureReason string

	// VerificationAttempts counts completed check cycles (any definitive
	// verdict, including Pending). Transient RPC faults do not count.
	VerificationAttempts uint
	// SourceMissingChecks counts consecutive cycles in which the source
	// transaction could not be found. Reset to zero once it is seen.
	SourceMissingChecks uint

	SourceReportedAt *time.Time
	DestReportedAt   *time.Time
	LastCheckedAt    *time.Time
	// NextCheckAt drives verification scheduling; the worker pool only
	// picks up messages whose NextCheckAt has passed.
	NextCheckAt *time.Time
}

// IsTerminal reports whether the message can no longer change state.
func (m *Message) IsTerminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusFailed
}

// CanTransition reports whether the state machine permits moving from the
// message's current status to the target status.
func (m *Message) CanTransition(to string) bool {
	switch m.Status {
	case StatusCreated:
		return to == StatusInFlight || to == StatusFailed
	case StatusInFlight:
		return to == StatusDelivered || to == StatusFailed
	case StatusDelivered:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// ValidMessageType reports whether t is one of the known message types.
func ValidMessageType(t string) bool {
	switch t {
	case TypeTransfer, TypeQuery, TypeNotification, TypeCustom:
		return true
	}
	return false
}

// StatusTransition is one entry in the append-only transition log. The
// auto-incremented primary key doubles as the replay cursor handed to
// subscribers, so a reconnecting client can resume from the last entry it
// acknowledged without skipping intermediate states.
type StatusTransition struct {
	gorm.Model
	MessageID string `gorm:"index"`
	OldStatus string
	NewStatus string
}
