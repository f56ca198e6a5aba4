package eventstreamutils

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/eventstream/kafka"
	"github.com/papercomputeco/relay/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	// ProviderType is one of nop or kafka.
	ProviderType string

	// Brokers is a comma separated list of host:port addresses.
	Brokers string

	Topic  string
	Logger *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}

	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil

	case "kafka":
		brokers := SplitBrokers(o.Brokers)
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   o.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		log.Info("publishing session events to kafka",
			"brokers", brokers,
			"topic", o.Topic,
		)
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}

// SplitBrokers splits a comma separated broker list, dropping blanks.
func SplitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
