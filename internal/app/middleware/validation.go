package middleware

import (
	"context"
	"errors"
	"fmt"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/queries"
)

// ErrValidation marks errors returned by the validation middleware.
var ErrValidation = errors.New("validation failed")

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// SelfValidating messages check their own fields before reaching a handler.
type SelfValidating interface {
	Validate() error
}

// SelfValidator validates messages that implement SelfValidating and lets the rest through.
type SelfValidator struct{}

func (SelfValidator) Validate(_ context.Context, message any) error {
	if v, ok := message.(SelfValidating); ok {
		return v.Validate()
	}
	return nil
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrValidation, err)
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrValidation, err)
			}
			return nextFn(ctx, q)
		})
	}
}
