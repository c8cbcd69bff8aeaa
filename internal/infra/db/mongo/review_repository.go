package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "shortlet/internal/domain/booking"
	domainlistings "shortlet/internal/domain/listings"
	domainreviews "shortlet/internal/domain/reviews"
)

const reviewsCollection = "agg_review"

type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{col: db.Collection(reviewsCollection)}
}

func (r *ReviewRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) (*domainreviews.Review, error) {
	var doc reviewDocument
	if err := findOne(ctx, r.col, bson.M{"booking_id": string(bookingID)}, &doc, domainreviews.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

// ListByListing returns reviews newest first. A zero limit returns all of them.
func (r *ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) ([]*domainreviews.Review, error) {
	opts := findOptions(limit, bson.D{{Key: "created_at", Value: -1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	docs, err := findAll[reviewDocument](ctx, r.col, bson.M{"listing_id": string(listingID)}, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*domainreviews.Review, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

// Save inserts the review. The unique booking_id index rejects a second
// review for the same stay.
func (r *ReviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	doc := newReviewDocument(review)
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return conflictOr(err)
	}
	return nil
}

type reviewDocument struct {
	ID        string `bson:"_id"`
	BookingID string `bson:"booking_id"`
	AuthorID  string `bson:"author_id"`
	ListingID string `bson:"listing_id"`
	Rating    int    `bson:"rating"`
	Text      string `bson:"text"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at,omitempty"`
}

func newReviewDocument(r *domainreviews.Review) reviewDocument {
	return reviewDocument{
		ID:        string(r.ID),
		BookingID: string(r.BookingID),
		AuthorID:  r.AuthorID,
		ListingID: string(r.ListingID),
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: r.CreatedAt.UnixMilli(),
		UpdatedAt: millis(r.UpdatedAt),
	}
}

func (d reviewDocument) toAggregate() *domainreviews.Review {
	return &domainreviews.Review{
		ID:        domainreviews.ReviewID(d.ID),
		BookingID: domainbooking.BookingID(d.BookingID),
		AuthorID:  d.AuthorID,
		ListingID: domainlistings.ListingID(d.ListingID),
		Rating:    d.Rating,
		Text:      d.Text,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

var _ domainreviews.Repository = (*ReviewRepository)(nil)
