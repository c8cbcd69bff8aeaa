package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainescrow "shortlet/internal/domain/escrow"
	domainpricing "shortlet/internal/domain/pricing"
	"shortlet/internal/domain/shared/money"
)

const escrowsCollection = "agg_escrow"

type EscrowRepository struct {
	col *mongo.Collection
}

func NewEscrowRepository(db *mongo.Database) *EscrowRepository {
	return &EscrowRepository{col: db.Collection(escrowsCollection)}
}

func (r *EscrowRepository) ByBookingID(ctx context.Context, bookingID string) (*domainescrow.Escrow, error) {
	var doc escrowDocument
	if err := findOne(ctx, r.col, bson.M{"_id": bookingID}, &doc, domainescrow.ErrEscrowNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *EscrowRepository) Save(ctx context.Context, e *domainescrow.Escrow) error {
	doc := newEscrowDocument(e)
	doc.Version = e.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, e.Version, doc); err != nil {
		return err
	}
	e.Version = doc.Version
	return nil
}

// Find returns matching escrows, oldest check-in first.
func (r *EscrowRepository) Find(ctx context.Context, filter domainescrow.Filter) ([]*domainescrow.Escrow, error) {
	query := bson.M{}
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		query["state"] = bson.M{"$in": states}
	}
	if filter.PendingEntries {
		query["pending_entries"] = true
	}
	if !filter.DueBy.IsZero() {
		due := filter.DueBy.UnixMilli()
		query["$or"] = bson.A{
			bson.M{"state": string(domainescrow.StateHeld), "stay_closed": false, "stay_release_at": bson.M{"$lte": due}},
			bson.M{"state": string(domainescrow.StatePartiallyReleased), "deposit_closed": false, "deposit_release_at": bson.M{"$lte": due}},
		}
	}
	docs, err := findAll[escrowDocument](ctx, r.col, query, findOptions(filter.Limit, bson.D{{Key: "check_in", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]*domainescrow.Escrow, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type escrowDocument struct {
	ID               string                       `bson:"_id"`
	GuestID          string                       `bson:"guest_id"`
	RealtorID        string                       `bson:"realtor_id"`
	Price            domainpricing.PriceBreakdown `bson:"price"`
	Funded           money.Money                  `bson:"funded"`
	PaymentReference string                       `bson:"payment_reference"`
	State            string                       `bson:"state"`
	CheckIn          int64                        `bson:"check_in"`
	CheckOut         int64                        `bson:"check_out"`
	Holds            domainescrow.Holds           `bson:"holds"`
	StayClosed       bool                         `bson:"stay_closed"`
	DepositClosed    bool                         `bson:"deposit_closed"`
	Cancelled        bool                         `bson:"cancelled"`
	Dispute          *domainescrow.Dispute        `bson:"dispute,omitempty"`
	Entries          []domainescrow.LedgerEntry   `bson:"entries"`
	PendingEntries   bool                         `bson:"pending_entries"`
	StayReleaseAt    int64                        `bson:"stay_release_at"`
	DepositReleaseAt int64                        `bson:"deposit_release_at"`
	FundedAt         int64                        `bson:"funded_at"`
	ClosedAt         int64                        `bson:"closed_at"`
	CreatedAt        int64                        `bson:"created_at"`
	UpdatedAt        int64                        `bson:"updated_at"`
	Version          int64                        `bson:"version"`
}

func newEscrowDocument(e *domainescrow.Escrow) escrowDocument {
	return escrowDocument{
		ID:               e.BookingID,
		GuestID:          e.GuestID,
		RealtorID:        e.RealtorID,
		Price:            e.Price,
		Funded:           e.Funded,
		PaymentReference: e.PaymentReference,
		State:            string(e.State),
		CheckIn:          e.CheckIn.UnixMilli(),
		CheckOut:         e.CheckOut.UnixMilli(),
		Holds:            e.Holds,
		StayClosed:       e.StayClosed,
		DepositClosed:    e.DepositClosed,
		Cancelled:        e.Cancelled,
		Dispute:          e.Dispute,
		Entries:          append([]domainescrow.LedgerEntry(nil), e.Entries...),
		PendingEntries:   e.HasPendingEntries(),
		StayReleaseAt:    e.StayReleaseAt().UnixMilli(),
		DepositReleaseAt: e.DepositReleaseAt().UnixMilli(),
		FundedAt:         millis(e.FundedAt),
		ClosedAt:         millis(e.ClosedAt),
		CreatedAt:        e.CreatedAt.UnixMilli(),
		UpdatedAt:        e.UpdatedAt.UnixMilli(),
		Version:          e.Version,
	}
}

func (d escrowDocument) toAggregate() *domainescrow.Escrow {
	return &domainescrow.Escrow{
		BookingID:        d.ID,
		GuestID:          d.GuestID,
		RealtorID:        d.RealtorID,
		Price:            d.Price,
		Funded:           d.Funded,
		PaymentReference: d.PaymentReference,
		State:            domainescrow.State(d.State),
		CheckIn:          timestampToTime(d.CheckIn),
		CheckOut:         timestampToTime(d.CheckOut),
		Holds:            d.Holds,
		StayClosed:       d.StayClosed,
		DepositClosed:    d.DepositClosed,
		Cancelled:        d.Cancelled,
		Dispute:          d.Dispute,
		Entries:          d.Entries,
		FundedAt:         timestampToTime(d.FundedAt),
		ClosedAt:         timestampToTime(d.ClosedAt),
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
}

var _ domainescrow.Repository = (*EscrowRepository)(nil)
