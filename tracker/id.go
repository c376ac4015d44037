package tracker

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

// Numeric codes for message types, part of the id derivation. Stable wire
// values; never renumber.
var messageTypeCodes = map[string]uint8{
	store.TypeTransfer:     1,
	store.TypeQuery:        2,
	store.TypeNotification: 3,
	store.TypeCustom:       4,
}

// DeriveMessageID computes the deterministic 32-byte message identifier as
// the SHA-256 over the little-endian encoding of (source endpoint ID, dest
// endpoint ID, message type code, nonce). Independent callers computing the
// same logical send arrive at the same id, which is what makes duplicate
// detection work without a coordination round-trip.
func DeriveMessageID(sourceEID, destEID uint32, messageType string, nonce uint64) (string, error) {
	code, ok := messageTypeCodes[messageType]
	if !ok {
		return "", fmt.Errorf("unknown message type %q", messageType)
	}

	h := sha256.New()

	var buf4 [4]byte
	binary.LittleEndian.PutUint32(buf4[:], sourceEID)
	h.Write(buf4[:])
	binary.LittleEndian.PutUint32(buf4[:], destEID)
	h.Write(buf4[:])

	h.Write([]byte{code})

	var buf8 [8]byte
	binary.LittleEndian.PutUint64(buf8[:], nonce)
	h.Write(buf8[:])

	return hex.EncodeToString(h.Sum(nil)), nil
}

// PayloadDigest computes the hex SHA-256 digest of a payload, the value
// cross-referenced against the destination-side effect during verification.
func PayloadDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
