package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/curator/pkg/channels/gochannel"
	"github.com/dukex/curator/pkg/channels/kafka"
	"github.com/dukex/curator/pkg/eventbus"
)

const serviceName = "curator"

// NewEventBus creates the audit event bus. "none" and the empty string disable
// publishing and return a nil bus.
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "none":
		return nil, nil
	case "memory":
		pub, sub := gochannel.CreateChannel(adapter)

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, kafka.ParseBrokers(os.Getenv("KAFKA_BROKERS")), serviceName)
		if err != nil {
			if errors.Is(err, kafka.ErrNoBrokers) {
				return nil, fmt.Errorf("KAFKA_BROKERS must list at least one broker: %w", err)
			}

			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
