package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/middleware"
	appoutbox "shortlet/internal/app/outbox"
	"shortlet/internal/app/uow"
	domainlistings "shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/money"
	"shortlet/internal/infra/storage/memory"
)

type saveListing struct {
	ID      string
	Fail    bool
	Client  string
	ActorV  string
	Invalid bool
}

func (c saveListing) Key() string            { return "test.save_listing" }
func (c saveListing) IdempotencyKey() string { return c.Client }
func (c saveListing) ResultPrototype() any   { return &saveResult{} }
func (c saveListing) ActorID() string        { return c.ActorV }

func (c saveListing) Validate() error {
	if c.Invalid {
		return errors.New("id is required")
	}
	return nil
}

type saveResult struct {
	ID    string `json:"id"`
	Calls int    `json:"calls"`
}

var errHandler = errors.New("handler failed")

type fixture struct {
	bus    commands.Bus
	store  *memory.Store
	outbox *memory.Outbox
	calls  int
}

func newFixture(t *testing.T, authorizer middleware.Authorizer) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), outbox: memory.NewOutbox()}
	base := commands.NewInMemoryBus()
	commands.RegisterHandler[saveListing, *saveResult](base, saveListing{}.Key(), commands.HandlerFunc[saveListing, *saveResult](
		func(ctx context.Context, cmd saveListing) (*saveResult, error) {
			f.calls++
			unit, ok := uow.FromContext(ctx)
			if !ok {
				return nil, uow.ErrUnitOfWorkMissing
			}
			listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
				ID:          domainlistings.ListingID(cmd.ID),
				Realtor:     "realtor-1",
				Title:       "Yaba flat",
				GuestsLimit: 1,
				NightlyRate: money.Money{Amount: 9000, Currency: "NGN"},
				Now:         time.Now(),
			})
			if err != nil {
				return nil, err
			}
			if err := unit.Listings().Save(ctx, listing); err != nil {
				return nil, err
			}
			if err := f.outbox.Add(ctx, appoutbox.EventRecord{Name: "listing.created"}); err != nil {
				return nil, err
			}
			if cmd.Fail {
				return nil, errHandler
			}
			return &saveResult{ID: cmd.ID, Calls: f.calls}, nil
		}))

	mws := []middleware.CommandMiddleware{middleware.Validation(middleware.SelfValidator{})}
	if authorizer != nil {
		mws = append(mws, middleware.Authorization(authorizer))
	}
	mws = append(mws,
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
		middleware.OutboxFlush(f.outbox, nil),
		middleware.Transaction(memory.Factory{Store: f.store}, nil),
	)
	f.bus = middleware.ChainCommands(base, mws...)
	return f
}

func (f *fixture) listingExists(t *testing.T, id string) bool {
	t.Helper()
	unit, err := memory.Factory{Store: f.store}.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	_, err = unit.Listings().ByID(context.Background(), domainlistings.ListingID(id))
	return err == nil
}

func TestPipelineCommitsAndPublishes(t *testing.T) {
	f := newFixture(t, nil)
	res, err := commands.Dispatch[saveListing, *saveResult](context.Background(), f.bus, saveListing{ID: "l-1"})
	require.NoError(t, err)
	assert.Equal(t, "l-1", res.ID)
	assert.True(t, f.listingExists(t, "l-1"))
	assert.Equal(t, []string{"listing.created"}, f.outbox.Published())
}

func TestPipelineRollsBackOnHandlerError(t *testing.T) {
	f := newFixture(t, nil)
	_, err := commands.Dispatch[saveListing, *saveResult](context.Background(), f.bus, saveListing{ID: "l-1", Fail: true})
	require.ErrorIs(t, err, errHandler)
	assert.False(t, f.listingExists(t, "l-1"))
	assert.Empty(t, f.outbox.Published())
}

func TestValidationRejectsBeforeHandler(t *testing.T) {
	f := newFixture(t, nil)
	_, err := commands.Dispatch[saveListing, *saveResult](context.Background(), f.bus, saveListing{ID: "l-1", Invalid: true})
	require.ErrorIs(t, err, middleware.ErrValidation)
	assert.Contains(t, err.Error(), "id is required")
	assert.Zero(t, f.calls)
}

func TestIdempotencyReplaysSuccessfulResult(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-1", Client: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-1", Client: "k1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.calls)
	assert.Len(t, f.outbox.Published(), 1)
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-1", Client: "k1", Fail: true})
	require.ErrorIs(t, err, errHandler)
	res, err := commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-1", Client: "k1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Calls)
}

func TestIdempotencyKeysAreScopedByActor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-1", Client: "k1", ActorV: "alice"})
	require.NoError(t, err)
	second, err := commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-2", Client: "k1", ActorV: "bob"})
	require.NoError(t, err)

	assert.Equal(t, "l-1", first.ID)
	assert.Equal(t, "l-2", second.ID)
	assert.Equal(t, 2, f.calls)
}

type denyActor string

func (d denyActor) Authorize(_ context.Context, message any) error {
	if actor, ok := message.(middleware.ActorCommand); ok && actor.ActorID() == string(d) {
		return errors.New("blocked")
	}
	return nil
}

func TestAuthorizationStopsDeniedActors(t *testing.T) {
	f := newFixture(t, denyActor("mallory"))
	ctx := context.Background()

	_, err := commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-1", ActorV: "mallory"})
	require.EqualError(t, err, "blocked")
	assert.Zero(t, f.calls)

	_, err = commands.Dispatch[saveListing, *saveResult](ctx, f.bus, saveListing{ID: "l-2", ActorV: "alice"})
	require.NoError(t, err)
}

func TestChainAppliesOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	bus := middleware.ChainCommands(base, tag("outer"), tag("inner"))
	_, err := bus.Dispatch(context.Background(), saveListing{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

func TestCommandStagesSkipUnsetLayers(t *testing.T) {
	var order []string
	tag := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	bus := middleware.CommandStages{
		Validation:  tag("validation"),
		Outbox:      tag("outbox"),
		Transaction: tag("transaction"),
	}.Build(base)
	_, err := bus.Dispatch(context.Background(), saveListing{})
	require.NoError(t, err)
	assert.Equal(t, []string{"validation", "outbox", "transaction", "handler"}, order)
}

type stuckOutbox struct{ flushes int }

func (o *stuckOutbox) Add(context.Context, appoutbox.EventRecord) error { return nil }

func (o *stuckOutbox) Flush(context.Context) error {
	o.flushes++
	return errors.New("broker unreachable")
}

func TestOutboxFlushFailureKeepsCommittedResult(t *testing.T) {
	box := &stuckOutbox{}
	base := busFunc(func(context.Context, commands.Command) (any, error) {
		return &saveResult{ID: "l-1"}, nil
	})
	bus := middleware.ChainCommands(base, middleware.OutboxFlush(box, nil))
	res, err := commands.Dispatch[saveListing, *saveResult](context.Background(), bus, saveListing{ID: "l-1"})
	require.NoError(t, err)
	assert.Equal(t, "l-1", res.ID)
	assert.Equal(t, 1, box.flushes)

	failing := busFunc(func(context.Context, commands.Command) (any, error) { return nil, errHandler })
	bus = middleware.ChainCommands(failing, middleware.OutboxFlush(box, nil))
	_, err = bus.Dispatch(context.Background(), saveListing{})
	require.ErrorIs(t, err, errHandler)
	assert.Equal(t, 1, box.flushes)
}
