package svm

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
)

func TestExtractDigest(t *testing.T) {
	result := &rpc.GetTransactionResult{
		Meta: &rpc.TransactionMeta{
			LogMessages: []string{
				"Program 7KvHz4 invoke [1]",
				"Program log: Instruction: ReceiveMessage",
				"Program log: message_digest=abcdef0123456789",
				"Program 7KvHz4 success",
			},
		},
	}
	assert.Equal(t, "abcdef0123456789", extractDigest(result))
}

func TestExtractDigestAbsent(t *testing.T) {
	assert.Empty(t, extractDigest(&rpc.GetTransactionResult{}))
	assert.Empty(t, extractDigest(&rpc.GetTransactionResult{
		Meta: &rpc.TransactionMeta{
			LogMessages: []string{"Program log: something else"},
		},
	}))
}

func TestIsNotFoundErr(t *testing.T) {
	assert.False(t, isNotFoundErr(nil))
	assert.True(t, isNotFoundErr(rpc.ErrNotFound))
	assert.True(t, isNotFoundErr(errors.New("transaction not found")))
	assert.True(t, isNotFoundErr(errors.New("rpc: NotFound")))
	assert.False(t, isNotFoundErr(errors.New("connection refused")))
}
