package memory

import (
	"context"
	"sync"

	appoutbox "shortlet/internal/app/outbox"
	"shortlet/internal/app/uow"
)

// Outbox keeps events in memory. Events added inside a memory unit of work
// are buffered only when that unit commits. Flush moves buffered events to
// the published list; there is no broker behind it.
type Outbox struct {
	mu        sync.Mutex
	buffered  []appoutbox.EventRecord
	published []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if current, ok := uow.FromContext(ctx); ok {
		if unit, ok := current.(*Unit); ok {
			unit.afterCommit(func() { o.buffer(record) })
			return nil
		}
	}
	o.buffer(record)
	return nil
}

func (o *Outbox) buffer(record appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.buffered = append(o.buffered, record)
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published = append(o.published, o.buffered...)
	o.buffered = nil
	return nil
}

// Published returns the names of flushed events in order.
func (o *Outbox) Published() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.published))
	for _, rec := range o.published {
		names = append(names, rec.Name)
	}
	return names
}

var _ appoutbox.Outbox = (*Outbox)(nil)
