package bootstrap

import (
	"context"
	"fmt"
	"time"

	mongodb "shortlet/internal/infra/db/mongo"
	"shortlet/internal/infra/outbox"
	"shortlet/internal/infra/storage/memory"
)

// MemoryStorage keeps everything in process. Events are published to the
// returned outbox only after the surrounding transaction commits.
func MemoryStorage(idempotencyTTL time.Duration) (Storage, *memory.Outbox) {
	box := memory.NewOutbox()
	return Storage{
		UoW:         memory.Factory{Store: memory.NewStore()},
		Users:       memory.NewUserRepository(),
		Sessions:    memory.NewSessionStore(),
		Idempotency: memory.NewIdempotencyStore(idempotencyTTL),
		Outbox:      box,
	}, box
}

// MongoStorage ensures indexes and returns the Mongo-backed adapters plus the
// outbox store the relay worker drains.
func MongoStorage(ctx context.Context, client *mongodb.Client, idempotencyTTL time.Duration) (Storage, *outbox.MongoStore, error) {
	if err := mongodb.EnsureIndexes(ctx, client.DB, idempotencyTTL); err != nil {
		return Storage{}, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	box, err := outbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return Storage{}, nil, fmt.Errorf("outbox store: %w", err)
	}
	return Storage{
		UoW:         mongodb.Factory{DB: client.DB},
		Users:       mongodb.NewUserRepository(client.DB),
		Sessions:    mongodb.NewSessionStore(client.DB),
		Idempotency: mongodb.NewIdempotencyStore(client.DB),
		Outbox:      box,
		Ready:       client.Ping,
	}, box, nil
}
