package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainbooking "shortlet/internal/domain/booking"
	"shortlet/internal/domain/listings"
	domainpricing "shortlet/internal/domain/pricing"
	domainrange "shortlet/internal/domain/shared/daterange"
)

const bookingsCollection = "agg_booking"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := findOne(ctx, r.col, bson.M{"_id": string(id)}, &doc, domainbooking.ErrBookingNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, b.Version, doc); err != nil {
		return err
	}
	b.Version = doc.Version
	return nil
}

// Find returns matching bookings, newest first.
func (r *BookingRepository) Find(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	query := bson.M{}
	if filter.GuestID != "" {
		query["guest_id"] = filter.GuestID
	}
	if filter.RealtorID != "" {
		query["realtor_id"] = string(filter.RealtorID)
	}
	if filter.ListingID != "" {
		query["listing_id"] = string(filter.ListingID)
	}
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		query["state"] = bson.M{"$in": states}
	}
	if !filter.DueBy.IsZero() {
		due := filter.DueBy.UnixMilli()
		query["$or"] = bson.A{
			bson.M{"state": string(domainbooking.StatePendingPayment), "payment_deadline": bson.M{"$lte": due}},
			bson.M{"state": string(domainbooking.StateConfirmed), "range.check_in": bson.M{"$lte": due}},
			bson.M{"state": string(domainbooking.StateCheckedIn), "range.check_out": bson.M{"$lte": due}},
		}
	}
	docs, err := findAll[bookingDocument](ctx, r.col, query, findOptions(filter.Limit, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type bookingDocument struct {
	ID               string                       `bson:"_id"`
	ListingID        string                       `bson:"listing_id"`
	RealtorID        string                       `bson:"realtor_id"`
	GuestID          string                       `bson:"guest_id"`
	Range            rangeDocument                `bson:"range"`
	Guests           int                          `bson:"guests"`
	Price            domainpricing.PriceBreakdown `bson:"price"`
	State            string                       `bson:"state"`
	PaymentReference string                       `bson:"payment_reference"`
	PaymentDeadline  int64                        `bson:"payment_deadline"`
	Cancellation     *domainbooking.Cancellation  `bson:"cancellation,omitempty"`
	CheckedInAt      int64                        `bson:"checked_in_at"`
	CheckedOutAt     int64                        `bson:"checked_out_at"`
	CreatedAt        int64                        `bson:"created_at"`
	UpdatedAt        int64                        `bson:"updated_at"`
	Version          int64                        `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:               string(b.ID),
		ListingID:        string(b.ListingID),
		RealtorID:        string(b.RealtorID),
		GuestID:          b.GuestID,
		Range:            rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:           b.Guests,
		Price:            b.Price,
		State:            string(b.State),
		PaymentReference: b.PaymentReference,
		PaymentDeadline:  millis(b.PaymentDeadline),
		Cancellation:     b.Cancellation,
		CheckedInAt:      millis(b.CheckedInAt),
		CheckedOutAt:     millis(b.CheckedOutAt),
		CreatedAt:        b.CreatedAt.UnixMilli(),
		UpdatedAt:        b.UpdatedAt.UnixMilli(),
		Version:          b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	dr := domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)}
	return &domainbooking.Booking{
		ID:               domainbooking.BookingID(d.ID),
		ListingID:        listings.ListingID(d.ListingID),
		RealtorID:        listings.RealtorID(d.RealtorID),
		GuestID:          d.GuestID,
		Range:            dr,
		Guests:           d.Guests,
		Price:            d.Price,
		State:            domainbooking.BookingState(d.State),
		PaymentReference: d.PaymentReference,
		PaymentDeadline:  timestampToTime(d.PaymentDeadline),
		Cancellation:     d.Cancellation,
		CheckedInAt:      timestampToTime(d.CheckedInAt),
		CheckedOutAt:     timestampToTime(d.CheckedOutAt),
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
