package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/db"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/notify"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

// MessageStore is the single source of truth for tracked messages. Writes
// are serialized per message id through keyed mutexes; unrelated messages
// proceed fully in parallel. Every status change goes through Transition,
// which compares the expected current status inside the database
// transaction, so a late-arriving stale signal can never regress state.
type MessageStore struct {
	database *db.DB
	locks    sync.Map // message id -> *sync.Mutex
	logger   zerolog.Logger
}

// NewMessageStore creates a MessageStore on the given database.
func NewMessageStore(database *db.DB, logger zerolog.Logger) *MessageStore {
	return &MessageStore{
		database: database,
		logger:   logger.With().Str("component", "message_store").Logger(),
	}
}

func (s *MessageStore) lock(messageID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(messageID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Get returns the current record for a message id.
func (s *MessageStore) Get(messageID string) (*store.Message, error) {
	var msg store.Message
	err := s.database.Client().Where("message_id = ?", messageID).First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message %s: %w", messageID, err)
	}
	return &msg, nil
}

// Create inserts a new message record. When a record with the same id
// already exists the existing record is returned with created=false:
// deterministic ids make a retried send land here instead of duplicating.
func (s *MessageStore) Create(msg *store.Message) (*store.Message, bool, error) {
	mu := s.lock(msg.MessageID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.Get(msg.MessageID)
	if err == nil {
		return existing, false, nil
	}
	if err != ErrMessageNotFound {
		return nil, false, err
	}

	if err := s.database.Client().Create(msg).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create message %s: %w", msg.MessageID, err)
	}
	return msg, true, nil
}

// Update applies mutate to the message under its per-id lock and persists
// the result. The status field must not be changed here; use Transition.
func (s *MessageStore) Update(messageID string, mutate func(*store.Message) error) (*store.Message, error) {
	mu := s.lock(messageID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.Get(messageID)
	if err != nil {
		return nil, err
	}

	before := msg.Status
	if err := mutate(msg); err != nil {
		return nil, err
	}
	if msg.Status != before {
		return nil, fmt.Errorf("status may only change through Transition")
	}

	if err := s.database.Client().Save(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to update message %s: %w", messageID, err)
	}
	return msg, nil
}

// Transition moves the message from status from to status to, applying
// mutate to the record on the way, and appends a row to the transition log
// in the same database transaction. Returns ErrStaleTransition when the
// message is no longer in the expected status: the caller's signal lost
// the race and must not be applied.
func (s *MessageStore) Transition(
	messageID, from, to string,
	mutate func(*store.Message),
) (*store.Message, *notify.Transition, error) {
	mu := s.lock(messageID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.Get(messageID)
	if err != nil {
		return nil, nil, err
	}

	if msg.Status != from {
		return nil, nil, fmt.Errorf("%w: message %s is %s, expected %s",
			ErrStaleTransition, messageID, msg.Status, from)
	}
	if !msg.CanTransition(to) {
		return nil, nil, fmt.Errorf("%w: %s -> %s is not a legal transition",
			ErrStaleTransition, from, to)
	}

	msg.Status = to
	if mutate != nil {
		mutate(msg)
	}

	logEntry := store.StatusTransition{
		MessageID: messageID,
		OldStatus: from,
		NewStatus: to,
	}

	err = s.database.Client().Transaction(func(tx *gorm.DB) error {
		// The WHERE status guard re-checks the precondition inside the
		// database transaction.
		res := tx.Model(&store.Message{}).
			Where("message_id = ? AND status = ?", messageID, from).
			Select("*").Omit("id", "created_at").
			Updates(msg)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleTransition
		}
		return tx.Create(&logEntry).Error
	})
	if err != nil {
		return nil, nil, err
	}

	tr := &notify.Transition{
		Seq:       uint64(logEntry.ID),
		MessageID: messageID,
		OldStatus: from,
		NewStatus: to,
		Timestamp: logEntry.CreatedAt,
	}

	s.logger.Info().
		Str("message_id", messageID).
		Str("from", from).
		Str("to", to).
		Msg("message transitioned")

	return msg, tr, nil
}

// DueForVerification returns messages awaiting verification whose next
// check time has passed, oldest first, capped at limit.
func (s *MessageStore) DueForVerification(now time.Time, limit int) ([]store.Message, error) {
	var msgs []store.Message
	err := s.database.Client().
		Where("status IN (?)", []string{store.StatusInFlight, store.StatusDelivered}).
		Where("next_check_at IS NOT NULL AND next_check_at <= ?", now).
		Order("next_check_at asc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan due messages: %w", err)
	}
	return msgs, nil
}

// Scan returns messages matching the optional status filter, newest first.
func (s *MessageStore) Scan(status string, limit int) ([]store.Message, error) {
	q := s.database.Client().Order("created_at desc").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var msgs []store.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return msgs, nil
}

// PruneTerminal deletes messages that reached a terminal state before the
// cutoff, together with their transition-log rows, and returns how many
// messages were removed. This is the only path that ever destroys a
// message record; non-terminal messages are never touched.
func (s *MessageStore) PruneTerminal(updatedBefore time.Time) (int64, error) {
	var ids []string
	err := s.database.Client().Model(&store.Message{}).
		Where("status IN ? AND updated_at < ?",
			[]string{store.StatusCompleted, store.StatusFailed}, updatedBefore).
		Pluck("message_id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find prunable messages: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err = s.database.Client().Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().
			Where("message_id IN ?", ids).
			Delete(&store.Message{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return tx.Unscoped().
			Where("message_id IN ?", ids).
			Delete(&store.StatusTransition{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune terminal messages: %w", err)
	}

	for _, id := range ids {
		s.locks.Delete(id)
	}
	return deleted, nil
}

// TransitionsSince implements notify.Source: it reads the durable
// transition log after the given cursor, oldest first.
func (s *MessageStore) TransitionsSince(messageID string, afterSeq uint64) ([]notify.Transition, error) {
	q := s.database.Client().
		Where("id > ?", afterSeq).
		Order("id asc")
	if messageID != "" {
		q = q.Where("message_id = ?", messageID)
	}

	var rows []store.StatusTransition
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read transition log: %w", err)
	}

	out := make([]notify.Transition, 0, len(rows))
	for _, row := range rows {
		out = append(out, notify.Transition{
			Seq:       uint64(row.ID),
			MessageID: row.MessageID,
			OldStatus: row.OldStatus,
			NewStatus: row.NewStatus,
			Timestamp: row.CreatedAt,
		})
	}
	return out, nil
}
