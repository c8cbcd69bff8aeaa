package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the secondary, unique and TTL indexes every
// collection relies on. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database, idempotencyTTL time.Duration) error {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	specs := map[string][]mongo.IndexModel{
		bookingsCollection: {
			{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "realtor_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "state", Value: 1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "payment_deadline", Value: 1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "range.check_in", Value: 1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "range.check_out", Value: 1}}},
		},
		listingsCollection: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "nightly_rate.amount", Value: 1}}},
			{Keys: bson.D{{Key: "realtor_id", Value: 1}}},
			{Keys: bson.D{{Key: "search.city", Value: 1}}},
		},
		escrowsCollection: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "check_in", Value: 1}}},
			{Keys: bson.D{{Key: "pending_entries", Value: 1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "stay_release_at", Value: 1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "deposit_release_at", Value: 1}}},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		disputesCollection: {
			{Keys: bson.D{{Key: "booking_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		payoutsCollection: {
			{Keys: bson.D{{Key: "realtor_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		idempotencyCollection: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(idempotencyTTL.Seconds()))},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: ensure indexes on %s: %w", name, err)
		}
	}
	return nil
}
