package evm

import (
	"encoding/hex"
	"strings"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
)

func TestParseTxHash(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 32)

	hash, err := parseTxHash(valid)
	require.NoError(t, err)
	assert.Equal(t, ethcommon.HexToHash(valid), hash)

	// The 0x prefix is optional.
	_, err = parseTxHash(strings.Repeat("ab", 32))
	assert.NoError(t, err)

	malformed := []string{
		"",
		"0x1234",
		"0x" + strings.Repeat("ab", 31),
		"0x" + strings.Repeat("ab", 33),
		"0x" + strings.Repeat("zz", 32),
		"5j9mPP1N6RkL3HksaTqhZnnqLKPqbuTKa5VbQkYWu2Uk", // solana signature
	}
	for _, ref := range malformed {
		_, err := parseTxHash(ref)
		assert.ErrorIs(t, err, common.ErrMalformedRef, ref)
	}
}

func TestExtractDigest(t *testing.T) {
	gateway := ethcommon.HexToAddress("0x6EDCE65403992e310A62460808c4b910D972f10f")
	other := ethcommon.HexToAddress("0x1111111111111111111111111111111111111111")

	digest := ethcommon.HexToHash("0x" + strings.Repeat("cd", 32))
	eventSig := ethcommon.HexToHash("0x" + strings.Repeat("01", 32))

	adapter := &Adapter{descriptor: &common.ChainDescriptor{
		GatewayAddress: gateway.Hex(),
	}}

	receipt := &types.Receipt{Logs: []*types.Log{
		// Noise from an unrelated contract, skipped.
		{Address: other, Topics: []ethcommon.Hash{eventSig, ethcommon.HexToHash("0xff")}},
		// No indexed digest topic, skipped.
		{Address: gateway, Topics: []ethcommon.Hash{eventSig}},
		// The gateway delivery event.
		{Address: gateway, Topics: []ethcommon.Hash{eventSig, digest}},
	}}

	assert.Equal(t, hex.EncodeToString(digest.Bytes()), adapter.extractDigest(receipt))
}

func TestExtractDigestWithoutGatewayFilter(t *testing.T) {
	digest := ethcommon.HexToHash("0x" + strings.Repeat("cd", 32))
	eventSig := ethcommon.HexToHash("0x" + strings.Repeat("01", 32))

	// No gateway configured: the first log with an indexed topic wins.
	adapter := &Adapter{descriptor: &common.ChainDescriptor{}}
	receipt := &types.Receipt{Logs: []*types.Log{
		{Topics: []ethcommon.Hash{eventSig, digest}},
	}}

	assert.Equal(t, hex.EncodeToString(digest.Bytes()), adapter.extractDigest(receipt))
}

func TestExtractDigestNoMatch(t *testing.T) {
	adapter := &Adapter{descriptor: &common.ChainDescriptor{}}
	assert.Empty(t, adapter.extractDigest(&types.Receipt{}))
}
