package middleware

import (
	"context"

	"shortlet/internal/app/commands"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// ActorCommand exposes the user issuing a command so it can be authorized.
type ActorCommand interface {
	ActorID() string
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}
