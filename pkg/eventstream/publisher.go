// Package eventstream announces finished relay sessions to downstream
// consumers.
package eventstream

import (
	"context"
	"errors"
)

// ErrNilEvent is returned by publishers handed a nil event.
var ErrNilEvent = errors.New("nil session event")

// Publisher emits one event per finished session. The relay publishes after
// the session record has been stored, so consumers may look the record up by
// the event key.
type Publisher interface {
	PublishSession(ctx context.Context, event *SessionCompletedEvent) error
	Close() error
}
