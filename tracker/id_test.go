package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMessageID(t *testing.T) {
	id1, err := DeriveMessageID(40168, 40161, "transfer", 7)
	require.NoError(t, err)
	assert.Len(t, id1, 64)

	// Same inputs always produce the same id.
	id2, err := DeriveMessageID(40168, 40161, "transfer", 7)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// Any single differing field changes the id.
	variants := []struct {
		name    string
		src     uint32
		dst     uint32
		msgType string
		nonce   uint64
	}{
		{"different source", 40169, 40161, "transfer", 7},
		{"different dest", 40168, 40162, "transfer", 7},
		{"different type", 40168, 40161, "query", 7},
		{"different nonce", 40168, 40161, "transfer", 8},
		{"swapped chain pair", 40161, 40168, "transfer", 7},
	}
	for _, tc := range variants {
		t.Run(tc.name, func(t *testing.T) {
			other, err := DeriveMessageID(tc.src, tc.dst, tc.msgType, tc.nonce)
			require.NoError(t, err)
			assert.NotEqual(t, id1, other)
		})
	}
}

func TestDeriveMessageIDUnknownType(t *testing.T) {
	_, err := DeriveMessageID(40168, 40161, "teleport", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown message type")
}

func TestPayloadDigest(t *testing.T) {
	d1 := PayloadDigest([]byte("hello"))
	d2 := PayloadDigest([]byte("hello"))
	d3 := PayloadDigest([]byte("hellp"))

	assert.Len(t, d1, 64)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)

	// Empty payloads still digest deterministically.
	assert.Len(t, PayloadDigest(nil), 64)
	assert.Equal(t, PayloadDigest(nil), PayloadDigest([]byte{}))
}
