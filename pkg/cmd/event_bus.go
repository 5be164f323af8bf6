package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/betoarts/masszap/pkg/channels/gochannel"
	"github.com/betoarts/masszap/pkg/channels/kafka"
	"github.com/betoarts/masszap/pkg/eventbus"
)

// NewEventBus creates the lifecycle event bus. An empty broker list selects
// the in-process GoChannel bus; a non-empty one selects Kafka.
func NewEventBus(kafkaBrokers, serviceName string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	if kafkaBrokers == "" {
		pub, sub := gochannel.CreateChannel(wmLogger)

		return eventbus.NewWatermillEventBus(pub, sub)
	}

	pub, sub, err := kafka.CreateChannel(wmLogger, kafkaBrokers, serviceName)
	if err != nil {
		panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
	}

	return eventbus.NewWatermillEventBus(pub, sub)
}
