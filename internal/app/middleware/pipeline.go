package middleware

import (
	"context"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/queries"
)

// CommandMiddleware wraps a command bus with additional behavior (logging, tx, etc.).
type CommandMiddleware func(next commands.Bus) commands.Bus

// QueryMiddleware wraps a query bus with extra behavior.
type QueryMiddleware func(next queries.Bus) queries.Bus

// CommandStages names the layers of the command bus. Build applies them in
// field order, outermost first, and skips nil stages. Transaction is the
// innermost layer, so OutboxFlush runs after commit and an idempotent replay
// never opens a unit of work.
type CommandStages struct {
	Metrics       CommandMiddleware
	Validation    CommandMiddleware
	Authorization CommandMiddleware
	Idempotency   CommandMiddleware
	Outbox        CommandMiddleware
	Transaction   CommandMiddleware
}

func (s CommandStages) Build(base commands.Bus) commands.Bus {
	return ChainCommands(base, present(
		s.Metrics,
		s.Validation,
		s.Authorization,
		s.Idempotency,
		s.Outbox,
		s.Transaction,
	)...)
}

// QueryStages is the read-side counterpart of CommandStages.
type QueryStages struct {
	Metrics    QueryMiddleware
	Validation QueryMiddleware
}

func (s QueryStages) Build(base queries.Bus) queries.Bus {
	return ChainQueries(base, present(s.Metrics, s.Validation)...)
}

// ChainCommands wraps base so that mws[0] sees a command first.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	return chain(base, mws)
}

func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	return chain(base, mws)
}

func chain[B any, M ~func(B) B](base B, mws []M) B {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

func present[M ~func(B) B, B any](stages ...M) []M {
	out := make([]M, 0, len(stages))
	for _, stage := range stages {
		if stage != nil {
			out = append(out, stage)
		}
	}
	return out
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}
