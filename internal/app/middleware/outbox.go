package middleware

import (
	"context"
	"log/slog"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/outbox"
)

// OutboxFlush publishes the events a command recorded once its unit of work
// has committed. By then the booking, escrow or wallet change is durable, so
// a flush failure is logged and the result still returned; the events stay
// in the outbox for the relay to pick up.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil && logger != nil {
				logger.Warn("outbox flush deferred", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
