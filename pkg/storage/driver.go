// Package storage defines the session ledger: where the relay keeps a record
// of every finished session, and the drivers that persist it.
package storage

import (
	"context"
)

// Driver defines the interface for persisting and retrieving session records.
type Driver interface {
	// Put stores a record. Storing a record whose ID already exists replaces
	// it.
	Put(ctx context.Context, record *Record) error

	// Get retrieves a record by its session ID.
	Get(ctx context.Context, id string) (*Record, error)

	// ListByConversation returns the records of one conversation, oldest
	// first.
	ListByConversation(ctx context.Context, conversationID string) ([]*Record, error)

	// Close closes the store and releases any resources.
	Close() error
}
