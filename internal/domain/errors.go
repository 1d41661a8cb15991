package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNormalization is returned when a raw event cannot be converted into a MintEvent
	ErrNormalization = errors.New("malformed mint event")

	// ErrMetadataFetch is returned when off-chain metadata could not be retrieved or decoded
	ErrMetadataFetch = errors.New("metadata fetch failed")

	// ErrStore is returned when the projection store is unavailable or a write fails
	ErrStore = errors.New("projection store error")

	// ErrRecordRejected is returned when the store refuses a record for its content; retrying cannot help
	ErrRecordRejected = errors.New("record rejected by the projection store")

	// ErrSubscriptionFailed is returned when subscription to events fails
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrUnsupportedURI is returned when a metadata URI is not a fetchable locator
	ErrUnsupportedURI = errors.New("unsupported metadata uri")

	// ErrNFTNotFound is returned when an NFT record is not found
	ErrNFTNotFound = errors.New("nft not found")

	// ErrTransactionNotFound is returned when a transaction record is not found
	ErrTransactionNotFound = errors.New("transaction not found")
)

// NormalizationError describes why a raw event was rejected. It is never retried.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrNormalization, e.Field, e.Reason)
}

func (e *NormalizationError) Unwrap() error {
	return ErrNormalization
}

// MetadataFetchError is recovered locally by the ingestion pipeline with a fallback document
type MetadataFetchError struct {
	URI string
	Err error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMetadataFetch, e.URI, e.Err)
}

func (e *MetadataFetchError) Unwrap() []error {
	return []error{ErrMetadataFetch, e.Err}
}

// StoreError wraps a persistence failure; callers retry the event with backoff unless Rejected
type StoreError struct {
	Op  string
	Err error
	// Rejected marks a failure caused by the record itself (bad encoding, constraint violation)
	Rejected bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Rejected {
		return []error{ErrStore, ErrRecordRejected, e.Err}
	}
	return []error{ErrStore, e.Err}
}

// NewStoreError wraps err as a StoreError for the given operation
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// NewRejectedStoreError wraps err as a StoreError that must not be retried
func NewRejectedStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err, Rejected: true}
}

// SubscriptionError is a connection-level failure of the live event feed
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSubscriptionFailed, e.Err)
}

func (e *SubscriptionError) Unwrap() []error {
	return []error{ErrSubscriptionFailed, e.Err}
}
