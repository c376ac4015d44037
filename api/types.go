package api

import (
	"time"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendMessageRequest is the body of POST /api/v1/messages. Payload is
// base64-encoded.
type SendMessageRequest struct {
	SourceChain string `json:"source_chain,omitempty"`
	DestChain   string `json:"dest_chain"`
	MessageType string `json:"message_type"`
	Payload     []byte `json:"payload"`
	Nonce       uint64 `json:"nonce"`
}

// SendMessageResponse carries the deterministic message id back to the
// caller.
type SendMessageResponse struct {
	MessageID string `json:"message_id"`
}

// TxRefRequest is the body of the source/destination report endpoints.
type TxRefRequest struct {
	TxRef string `json:"tx_ref"`
}

// MessageResponse is the external view of a message record.
type MessageResponse struct {
	MessageID            string     `json:"message_id"`
	SourceChain          string     `json:"source_chain"`
	DestChain            string     `json:"dest_chain"`
	MessageType          string     `json:"message_type"`
	Nonce                uint64     `json:"nonce"`
	Status               string     `json:"status"`
	SourceTxRef          string     `json:"source_tx_ref,omitempty"`
	DestTxRef            string     `json:"dest_tx_ref,omitempty"`
	FailureReason        string     `json:"failure_reason,omitempty"`
	VerificationAttempts uint       `json:"verification_attempts"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	LastCheckedAt        *time.Time `json:"last_checked_at,omitempty"`
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		MessageID:            m.MessageID,
		SourceChain:          m.SourceChain,
		DestChain:            m.DestChain,
		MessageType:          m.MessageType,
		Nonce:                m.Nonce,
		Status:               m.Status,
		SourceTxRef:          m.SourceTxRef,
		DestTxRef:            m.DestTxRef,
		FailureReason:        m.FailureReason,
		VerificationAttempts: m.VerificationAttempts,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
		LastCheckedAt:        m.LastCheckedAt,
	}
}

// TransitionEvent is one status change on the websocket stream. Seq is the
// replay cursor: clients resubscribe with since=<last seq> after a drop.
type TransitionEvent struct {
	Seq       uint64    `json:"seq"`
	MessageID string    `json:"message_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}
