package api

import (
	"context"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/chains/common"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/fees"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/notify"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/store"
)

// TrackerInterface defines the lifecycle methods needed by the API server
type TrackerInterface interface {
	SendMessage(ctx context.Context, sourceChain, destChain, messageType string, payload []byte, nonce uint64) (string, error)
	ReportSourceSubmission(ctx context.Context, messageID, txRef string) error
	ReportDestinationObservation(ctx context.Context, messageID, txRef string) error
	GetStatus(ctx context.Context, messageID string) (*store.Message, error)
	RetryVerification(ctx context.Context, messageID string) error
}

// MessageLister reads message records for the listing endpoints
type MessageLister interface {
	Scan(status string, limit int) ([]store.Message, error)
}

// ChainDirectory resolves chain ids to descriptors for fee quoting and the
// chain listing endpoint
type ChainDirectory interface {
	Descriptor(chainID string) *common.ChainDescriptor
	All() []*common.ChainDescriptor
}

// FeeQuoter estimates the cost of delivering a payload to a destination
type FeeQuoter interface {
	Estimate(source, dest *common.ChainDescriptor, payloadSize int, gasLimit uint64) (*fees.Quote, error)
}

// SubscriptionHub hands out transition subscriptions for the websocket stream
type SubscriptionHub interface {
	Subscribe(messageID string, afterSeq uint64) (*notify.Subscription, error)
}
