// Package service implements the authentication and listing use cases on
// top of the repository interfaces.
package service

import (
	"context"
	"log/slog"

	"github.com/iliyamo/listing-platform/internal/queue"
)

// EventPublisher emits domain events. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// CacheInvalidator drops cached listing responses after a write.
type CacheInvalidator interface {
	Purge(ctx context.Context) error
}

func publish(ctx context.Context, p EventPublisher, logger *slog.Logger, module string, ev queue.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("publish domain event failed",
			"event", "domain_event_publish_failed",
			"module", module,
			"layer", "application",
			"event_type", ev.Type,
			"error", err.Error(),
		)
	}
}
