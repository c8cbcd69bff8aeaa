package support

import (
	"context"

	"shortlet/internal/app/outbox"
	"shortlet/internal/domain/shared/events"
)

// EventSource is any aggregate embedding events.EventRecorder.
type EventSource interface {
	Drain() []events.DomainEvent
}

// RecordEvents moves pending events of every source into the outbox.
func RecordEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...EventSource) error {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if err := outbox.RecordDomainEvents(ctx, box, encoder, src.Drain()); err != nil {
			return err
		}
	}
	return nil
}
