package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/relay/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionCompleted is emitted after a relay session ends, whether
	// it closed cleanly or failed.
	EventTypeSessionCompleted = "relay.session.completed"
)

// SessionCompletedEvent is a transport-neutral event payload for a finished
// relay session.
type SessionCompletedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	DurationMs    int64          `json:"duration_ms"`
	Session       storage.Record `json:"session"`
}

// NewSessionCompleted builds the completion event for record.
func NewSessionCompleted(record *storage.Record, now time.Time) *SessionCompletedEvent {
	return &SessionCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
		DurationMs:    record.Duration().Milliseconds(),
		Session:       *record,
	}
}

// Key is the partitioning key of the event: events of one conversation share
// a key so ordered transports keep them in order.
func (e *SessionCompletedEvent) Key() string {
	return e.Session.ConversationID
}
