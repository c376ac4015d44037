package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySource is an in-memory transition log for hub tests.
type memorySource struct {
	mu  sync.Mutex
	log []Transition
}

func (m *memorySource) append(tr Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, tr)
}

func (m *memorySource) TransitionsSince(messageID string, afterSeq uint64) ([]Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Transition
	for _, tr := range m.log {
		if tr.Seq <= afterSeq {
			continue
		}
		if messageID != "" && tr.MessageID != messageID {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

func tr(seq uint64, id, from, to string) Transition {
	return Transition{Seq: seq, MessageID: id, OldStatus: from, NewStatus: to, Timestamp: time.Now()}
}

func collect(t *testing.T, sub *Subscription, n int) []Transition {
	t.Helper()
	out := make([]Transition, 0, n)
	for len(out) < n {
		select {
		case got, ok := <-sub.C:
			require.True(t, ok, "channel closed after %d of %d transitions", len(out), n)
			out = append(out, got)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d transitions", len(out), n)
		}
	}
	return out
}

func TestHubReplayBeforeLive(t *testing.T) {
	source := &memorySource{}
	source.append(tr(1, "m1", "created", "in_flight"))
	source.append(tr(2, "m1", "in_flight", "delivered"))

	hub := NewHub(source, zerolog.Nop())

	sub, err := hub.Subscribe("m1", 0)
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish(tr(3, "m1", "delivered", "completed"))

	got := collect(t, sub, 3)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Equal(t, uint64(3), got[2].Seq)
}

func TestHubReplayRespectsCursor(t *testing.T) {
	source := &memorySource{}
	source.append(tr(1, "m1", "created", "in_flight"))
	source.append(tr(2, "m1", "in_flight", "delivered"))

	hub := NewHub(source, zerolog.Nop())

	sub, err := hub.Subscribe("m1", 1)
	require.NoError(t, err)
	defer sub.Close()

	got := collect(t, sub, 1)
	assert.Equal(t, uint64(2), got[0].Seq)
}

func TestHubFiltersByMessageID(t *testing.T) {
	hub := NewHub(&memorySource{}, zerolog.Nop())

	sub, err := hub.Subscribe("m1", 0)
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish(tr(1, "m2", "created", "in_flight"))
	hub.Publish(tr(2, "m1", "created", "in_flight"))

	got := collect(t, sub, 1)
	assert.Equal(t, "m1", got[0].MessageID)
}

func TestHubAllMessagesSubscription(t *testing.T) {
	hub := NewHub(&memorySource{}, zerolog.Nop())

	sub, err := hub.Subscribe("", 0)
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish(tr(1, "m1", "created", "in_flight"))
	hub.Publish(tr(2, "m2", "created", "in_flight"))

	got := collect(t, sub, 2)
	assert.Equal(t, "m1", got[0].MessageID)
	assert.Equal(t, "m2", got[1].MessageID)
}

func TestHubDropsLaggedSubscriberAndCursorRecovers(t *testing.T) {
	source := &memorySource{}
	hub := NewHub(source, zerolog.Nop())

	sub, err := hub.Subscribe("m1", 0)
	require.NoError(t, err)

	// Fill the buffer past capacity without draining. The hub must drop
	// the subscriber rather than block publishing.
	total := DefaultBuffer + 10
	for i := 1; i <= total; i++ {
		entry := tr(uint64(i), "m1", "in_flight", "in_flight")
		source.append(entry)
		hub.Publish(entry)
	}

	assert.Equal(t, 0, hub.SubscriberCount())

	// Drain what was delivered; the channel is closed at the end.
	var lastSeq uint64
	for got := range sub.C {
		require.Equal(t, lastSeq+1, got.Seq, "no gaps before the drop")
		lastSeq = got.Seq
	}
	assert.True(t, sub.Lagged())
	assert.Less(t, lastSeq, uint64(total))

	// Re-subscribing with the cursor replays exactly the missed tail.
	resub, err := hub.Subscribe("m1", lastSeq)
	require.NoError(t, err)
	defer resub.Close()

	missed := collect(t, resub, total-int(lastSeq))
	assert.Equal(t, lastSeq+1, missed[0].Seq)
	assert.Equal(t, uint64(total), missed[len(missed)-1].Seq)
}

func TestHubCloseUnregisters(t *testing.T) {
	hub := NewHub(&memorySource{}, zerolog.Nop())

	sub, err := hub.Subscribe("m1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount())

	// Closing twice is safe.
	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount())
}
