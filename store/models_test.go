package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{StatusCreated, StatusInFlight, true},
		{StatusCreated, StatusFailed, true},
		{StatusCreated, StatusDelivered, false},
		{StatusCreated, StatusCompleted, false},

		{StatusInFlight, StatusDelivered, true},
		{StatusInFlight, StatusFailed, true},
		{StatusInFlight, StatusCompleted, false},
		{StatusInFlight, StatusCreated, false},

		{StatusDelivered, StatusCompleted, true},
		{StatusDelivered, StatusFailed, true},
		{StatusDelivered, StatusInFlight, false},

		// Terminal states never transition, not even to Failed.
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusInFlight, false},
		{StatusFailed, StatusFailed, false},
	}
	for _, tc := range testCases {
		t.Run(tc.from+"->"+tc.to, func(t *testing.T) {
			m := &Message{Status: tc.from}
			assert.Equal(t, tc.allowed, m.CanTransition(tc.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, (&Message{Status: StatusCreated}).IsTerminal())
	assert.False(t, (&Message{Status: StatusInFlight}).IsTerminal())
	assert.False(t, (&Message{Status: StatusDelivered}).IsTerminal())
	assert.True(t, (&Message{Status: StatusCompleted}).IsTerminal())
	assert.True(t, (&Message{Status: StatusFailed}).IsTerminal())
}

func TestValidMessageType(t *testing.T) {
	for _, valid := range []string{TypeTransfer, TypeQuery, TypeNotification, TypeCustom} {
		assert.True(t, ValidMessageType(valid), valid)
	}
	assert.False(t, ValidMessageType(""))
	assert.False(t, ValidMessageType("Transfer"))
	assert.False(t, ValidMessageType("teleport"))
}
