// Package inmemory provides a map-backed storage.Driver.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/papercomputeco/relay/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards records
	mu sync.RWMutex

	// records is keyed by session ID
	records map[string]*storage.Record
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*storage.Record),
	}
}

// Put stores a copy of record.
func (d *Driver) Put(_ context.Context, record *storage.Record) error {
	if record == nil {
		return storage.ErrNilRecord
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *record
	d.records[record.ID] = &cp
	return nil
}

// Get retrieves a record by its session ID.
func (d *Driver) Get(_ context.Context, id string) (*storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	record, ok := d.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	cp := *record
	return &cp, nil
}

// ListByConversation returns the records of one conversation, oldest first.
func (d *Driver) ListByConversation(_ context.Context, conversationID string) ([]*storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*storage.Record
	for _, r := range d.records {
		if r.ConversationID == conversationID {
			cp := *r
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Count returns the number of stored records.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
