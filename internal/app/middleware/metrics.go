package middleware

import (
	"context"
	"log/slog"
	"time"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/queries"
)

// Observer receives the outcome of every dispatched message.
type Observer interface {
	Observe(kind, key string, elapsed time.Duration, err error)
}

// Metrics reports command outcomes to o and logs failures.
func Metrics(o Observer, logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			report(o, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func QueryMetrics(o Observer, logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			report(o, logger, "query", q.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func report(o Observer, logger *slog.Logger, kind, key string, elapsed time.Duration, err error) {
	if o != nil {
		o.Observe(kind, key, elapsed, err)
	}
	if err != nil && logger != nil {
		logger.Debug(kind+" failed", "key", key, "error", err, "duration_ms", elapsed.Milliseconds())
	}
}
