// Package notify fans out message status transitions to subscribers. The
// hub delivers with at-least-once semantics: every subscriber carries a
// cursor (the sequence number of the last transition it acknowledged) and
// on subscribe the hub replays everything after the cursor from the durable
// transition log before going live, so a reconnecting client cannot
// silently skip an intermediate state.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Transition is one observed status change of a tracked message. Seq is
// the position in the durable transition log and doubles as the replay
// cursor.
type Transition struct {
	Seq       uint64    `json:"seq"`
	MessageID string    `json:"message_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}

// Source reads historical transitions from the durable log. messageID ""
// means all messages.
type Source interface {
	TransitionsSince(messageID string, afterSeq uint64) ([]Transition, error)
}

// Subscription is one subscriber's live feed. Transitions arrive on C in
// log order. When the subscriber falls too far behind, the hub closes C and
// sets Lagged; the client re-subscribes with its last acknowledged cursor
// and the replay fills the gap.
type Subscription struct {
	C <-chan Transition

	id        int
	messageID string
	ch        chan Transition
	hub       *Hub

	mu     sync.Mutex
	closed bool
	lagged bool
}

// Lagged reports whether the hub dropped this subscription for falling
// behind.
func (s *Subscription) Lagged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagged
}

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}

// DefaultBuffer is the per-subscriber channel depth.
const DefaultBuffer = 64

// Hub fans out transitions. Publish and Subscribe share one mutex so a
// subscriber's replay and its live feed observe a single total order.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
	source Source
	logger zerolog.Logger
}

// NewHub creates a hub reading replay data from source.
func NewHub(source Source, logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]*Subscription),
		source: source,
		logger: logger.With().Str("component", "notification_hub").Logger(),
	}
}

// Subscribe registers a subscriber for one message (or all, with
// messageID "") and replays every logged transition after afterSeq before
// any live delivery.
func (h *Hub) Subscribe(messageID string, afterSeq uint64) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	replay, err := h.source.TransitionsSince(messageID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to replay transitions: %w", err)
	}

	// Buffer must hold the full replay; live traffic gets the default
	// headroom on top.
	buffer := len(replay) + DefaultBuffer
	ch := make(chan Transition, buffer)

	h.nextID++
	sub := &Subscription{
		C:         ch,
		id:        h.nextID,
		messageID: messageID,
		ch:        ch,
		hub:       h,
	}

	for _, tr := range replay {
		ch <- tr
	}

	h.subs[sub.id] = sub
	h.logger.Debug().
		Str("message_id", messageID).
		Uint64("after_seq", afterSeq).
		Int("replayed", len(replay)).
		Msg("subscriber registered")

	return sub, nil
}

// Publish delivers a transition to every matching subscriber. A subscriber
// whose buffer is full is marked lagged and dropped rather than blocking
// the tracker; its cursor-based re-subscribe recovers the missed entries.
func (h *Hub) Publish(tr Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		if sub.messageID != "" && sub.messageID != tr.MessageID {
			continue
		}
		select {
		case sub.ch <- tr:
		default:
			sub.mu.Lock()
			sub.lagged = true
			sub.closed = true
			sub.mu.Unlock()
			close(sub.ch)
			delete(h.subs, id)
			h.logger.Warn().
				Str("message_id", sub.messageID).
				Msg("dropping lagged subscriber")
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
	sub.mu.Unlock()
	delete(h.subs, id)
}
