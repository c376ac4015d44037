package tracker

import "errors"

// Errors surfaced synchronously to callers of the tracker's public
// operations. Verification failures are never returned this way; they end
// as a terminal Failed status with a FailureReason on the message itself.
var (
	// ErrMessageNotFound means no tracked message has the given id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidPayload means the payload exceeds the chain pair's size
	// bound or fails its type-specific check. Never retried.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUnknownChain means the chain is not in the registry catalog.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrConflictingSubmission means a second, different source transaction
	// reference was reported for a message that already has one.
	ErrConflictingSubmission = errors.New("conflicting source submission")

	// ErrStaleTransition means the message's status changed between reading
	// it and applying a transition; the signal that drove the transition is
	// stale and must not be applied.
	ErrStaleTransition = errors.New("stale status transition")

	// ErrNotRetryable means RetryVerification was called on a message that
	// is not awaiting verification.
	ErrNotRetryable = errors.New("message is not awaiting verification")
)
