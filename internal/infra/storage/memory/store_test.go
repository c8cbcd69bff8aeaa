package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlet/internal/app/middleware"
	appoutbox "shortlet/internal/app/outbox"
	"shortlet/internal/app/uow"
	domainlistings "shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/money"
)

func newListing(t *testing.T, id string) *domainlistings.Listing {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(id),
		Realtor:     "realtor-1",
		Title:       "Ikoyi studio",
		Address:     domainlistings.Address{Line1: "4 Bourdillon", City: "Lagos", Country: "NG"},
		GuestsLimit: 2,
		MinNights:   1,
		MaxNights:   14,
		NightlyRate: money.Money{Amount: 15000, Currency: "NGN"},
		Now:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return listing
}

func begin(t *testing.T, f Factory) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return unit
}

func TestUnitWritesInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	writer := begin(t, f)
	require.NoError(t, writer.Listings().Save(ctx, newListing(t, "l-1")))

	_, err := begin(t, f).Listings().ByID(ctx, "l-1")
	assert.ErrorIs(t, err, domainlistings.ErrListingNotFound)

	got, err := writer.Listings().ByID(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	require.NoError(t, writer.Commit(ctx))
	got, err = begin(t, f).Listings().ByID(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, "Ikoyi studio", got.Title)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	unit := begin(t, f)
	require.NoError(t, unit.Listings().Save(ctx, newListing(t, "l-1")))
	require.NoError(t, unit.Rollback(ctx))

	_, err := begin(t, f).Listings().ByID(ctx, "l-1")
	assert.ErrorIs(t, err, domainlistings.ErrListingNotFound)
}

func TestConcurrentCommitConflicts(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	seed := begin(t, f)
	require.NoError(t, seed.Listings().Save(ctx, newListing(t, "l-1")))
	require.NoError(t, seed.Commit(ctx))

	first, second := begin(t, f), begin(t, f)
	a, err := first.Listings().ByID(ctx, "l-1")
	require.NoError(t, err)
	b, err := second.Listings().ByID(ctx, "l-1")
	require.NoError(t, err)

	a.Title = "first"
	b.Title = "second"
	require.NoError(t, first.Listings().Save(ctx, a))
	require.NoError(t, second.Listings().Save(ctx, b))
	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), uow.ErrConcurrentUpdate)

	got, err := begin(t, f).Listings().ByID(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func TestStaleSaveRejectedInsideUnit(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	unit := begin(t, f)
	listing := newListing(t, "l-1")
	require.NoError(t, unit.Listings().Save(ctx, listing))

	stale := newListing(t, "l-1")
	assert.ErrorIs(t, unit.Listings().Save(ctx, stale), uow.ErrConcurrentUpdate)
}

func TestOutboxPublishesOnlyCommittedEvents(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	box := NewOutbox()

	committed := begin(t, f)
	require.NoError(t, box.Add(uow.ContextWithUnitOfWork(ctx, committed), appoutbox.EventRecord{Name: "listing.created"}))
	rolledBack := begin(t, f)
	require.NoError(t, box.Add(uow.ContextWithUnitOfWork(ctx, rolledBack), appoutbox.EventRecord{Name: "listing.published"}))

	require.NoError(t, box.Flush(ctx))
	assert.Empty(t, box.Published())

	require.NoError(t, committed.Commit(ctx))
	require.NoError(t, rolledBack.Rollback(ctx))
	require.NoError(t, box.Flush(ctx))
	assert.Equal(t, []string{"listing.created"}, box.Published())
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(time.Minute)
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "fresh", OccurredAt: time.Now()}))
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "old", OccurredAt: time.Now().Add(-time.Hour)}))

	_, found, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, found)
}
