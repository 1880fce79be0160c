package main

import (
	"context"
	"log/slog"

	"github.com/dukex/curator/pkg/eventbus"
	"github.com/dukex/curator/pkg/events"
)

// subscribeAuditLog writes every event delivered by bus to the audit logger.
func subscribeAuditLog(ctx context.Context, bus eventbus.EventSubscriber, logger *slog.Logger) error {
	audit := logger.With("module", "audit")

	for _, eventType := range events.Types() {
		err := bus.Handle(eventType, func(ctx context.Context, event any) error {
			audit.InfoContext(ctx, "Configuration changed", "event_type", eventType, "event", event)

			return nil
		})
		if err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}
