package messaging

import (
	"context"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// Publisher defines the interface for publishing applied-mint notifications to a message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishMint publishes a notification for a mint that has been applied to the projection
	PublishMint(ctx context.Context, notification *domain.MintNotification) error
	// Close closes the connection
	Close()
}

// NoopPublisher discards notifications. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishMint(context.Context, *domain.MintNotification) error { return nil }

func (NoopPublisher) Close() {}
