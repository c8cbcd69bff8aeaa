package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type pingCommand struct{ n int }

func (pingCommand) Key() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchRoutesToTypedHandler(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, int](bus, "test.ping", HandlerFunc[pingCommand, int](func(ctx context.Context, cmd pingCommand) (int, error) {
		return cmd.n * 2, nil
	}))

	got, err := Dispatch[pingCommand, int](context.Background(), bus, pingCommand{n: 21})
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Equal(t, []string{"test.ping"}, bus.Keys())

	_, err = Dispatch[pingCommand, string](context.Background(), bus, pingCommand{n: 1})
	require.ErrorIs(t, err, ErrResultType)

	_, err = bus.Dispatch(context.Background(), otherCommand{})
	require.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[pingCommand, int](context.Background(), nil, pingCommand{})
	require.ErrorIs(t, err, ErrNilBus)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[pingCommand, int](func(ctx context.Context, cmd pingCommand) (int, error) { return 0, nil })
	RegisterHandler[pingCommand, int](bus, "test.ping", h)
	require.Panics(t, func() {
		RegisterHandler[pingCommand, int](bus, "test.ping", h)
	})
}

func TestDispatchResultTypeErrorNamesCommand(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, int](bus, "test.ping", HandlerFunc[pingCommand, int](func(ctx context.Context, cmd pingCommand) (int, error) {
		return 7, nil
	}))
	_, err := Dispatch[pingCommand, string](context.Background(), bus, pingCommand{})
	require.ErrorIs(t, err, ErrResultType)
	require.EqualError(t, err, "commands: result type mismatch: test.ping returned int, want string")
}
