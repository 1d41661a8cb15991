package messaging

import (
	"context"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// EventHandler is called for every raw mint event delivered by a live subscription.
// It must not block for long: the subscription delivers events from a single goroutine.
type EventHandler func(event domain.RawEvent)

// Subscription is a live subscription to contract mint events
//
//go:generate mockgen -source=source.go -destination=../mocks/mint_source.go -package=mocks -mock_names=Subscription=MockSubscription,MintSource=MockMintSource
type Subscription interface {
	// Err delivers at most one subscription-level failure. The channel is closed by Unsubscribe.
	Err() <-chan error

	// Unsubscribe stops delivery and releases the connection resources
	Unsubscribe()
}

// MintSource is the read side of the chain: live mint subscription, historical range
// queries and the current chain head. Delivery is at-least-once.
type MintSource interface {
	// SubscribeMintEvents starts delivering live mint events to handler
	SubscribeMintEvents(ctx context.Context, handler EventHandler) (Subscription, error)

	// QueryMintEvents returns the mint events emitted in [fromBlock, toBlock], ascending
	QueryMintEvents(ctx context.Context, fromBlock, toBlock uint64) ([]domain.RawEvent, error)

	// GetCurrentBlock returns the latest block number
	GetCurrentBlock(ctx context.Context) (uint64, error)

	// Close closes the connection and cleans up resources
	Close()
}
