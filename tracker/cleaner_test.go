package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

func TestCleanerPrunesAgedTerminalMessages(t *testing.T) {
	env := newTestEnv(t)

	seedMessage(t, env, "aged", store.StatusCompleted)
	backdate(t, env, "aged", time.Now().Add(-2*time.Hour))
	seedMessage(t, env, "recent", store.StatusCompleted)

	cleaner := NewCleaner(env.store, env.db, 10*time.Millisecond, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cleaner.Start(ctx)
	t.Cleanup(func() {
		cancel()
		cleaner.Stop()
	})

	require.Eventually(t, func() bool {
		_, err := env.store.Get("aged")
		return err == ErrMessageNotFound
	}, 5*time.Second, 5*time.Millisecond, "aged terminal message was never pruned")

	_, err := env.store.Get("recent")
	assert.NoError(t, err)
}

func TestCleanerLeavesActiveMessagesAlone(t *testing.T) {
	env := newTestEnv(t)

	id := env.sendInFlight(t, []byte("nft"), 1)
	backdate(t, env, id, time.Now().Add(-48*time.Hour))

	cleaner := NewCleaner(env.store, env.db, 10*time.Millisecond, time.Hour, zerolog.Nop())
	cleaner.Start(context.Background())
	t.Cleanup(cleaner.Stop)

	time.Sleep(50 * time.Millisecond)

	msg, err := env.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, store.StatusInFlight, msg.Status)
}
