// Package nop provides the publisher used when no event backend is configured.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/relay/pkg/eventstream"
)

// Publisher drops every event, counting how many it was given.
type Publisher struct {
	published atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishSession(_ context.Context, event *eventstream.SessionCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.published.Add(1)
	return nil
}

// Published reports how many events were accepted.
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

func (p *Publisher) Close() error {
	return nil
}
