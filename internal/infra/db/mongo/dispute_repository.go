package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domaindisputes "shortlet/internal/domain/disputes"
	"shortlet/internal/domain/shared/money"
)

const disputesCollection = "agg_dispute"

type DisputeRepository struct {
	col *mongo.Collection
}

func NewDisputeRepository(db *mongo.Database) *DisputeRepository {
	return &DisputeRepository{col: db.Collection(disputesCollection)}
}

func (r *DisputeRepository) ByID(ctx context.Context, id domaindisputes.ID) (*domaindisputes.Dispute, error) {
	var doc disputeDocument
	if err := findOne(ctx, r.col, bson.M{"_id": string(id)}, &doc, domaindisputes.ErrDisputeNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *DisputeRepository) Save(ctx context.Context, d *domaindisputes.Dispute) error {
	doc := newDisputeDocument(d)
	doc.Version = d.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, d.Version, doc); err != nil {
		return err
	}
	d.Version = doc.Version
	return nil
}

// Find returns matching disputes, newest first.
func (r *DisputeRepository) Find(ctx context.Context, filter domaindisputes.Filter) ([]*domaindisputes.Dispute, error) {
	query := bson.M{}
	if filter.BookingID != "" {
		query["booking_id"] = filter.BookingID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	docs, err := findAll[disputeDocument](ctx, r.col, query, findOptions(filter.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := make([]*domaindisputes.Dispute, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type disputeDocument struct {
	ID         string                     `bson:"_id"`
	BookingID  string                     `bson:"booking_id"`
	RaisedBy   string                     `bson:"raised_by"`
	RaiserID   string                     `bson:"raiser_id"`
	Reason     string                     `bson:"reason"`
	Claim      money.Money                `bson:"claim"`
	Status     string                     `bson:"status"`
	Resolution *domaindisputes.Resolution `bson:"resolution,omitempty"`
	CreatedAt  int64                      `bson:"created_at"`
	UpdatedAt  int64                      `bson:"updated_at"`
	Version    int64                      `bson:"version"`
}

func newDisputeDocument(d *domaindisputes.Dispute) disputeDocument {
	return disputeDocument{
		ID:         string(d.ID),
		BookingID:  d.BookingID,
		RaisedBy:   string(d.RaisedBy),
		RaiserID:   d.RaiserID,
		Reason:     d.Reason,
		Claim:      d.Claim,
		Status:     string(d.Status),
		Resolution: d.Resolution,
		CreatedAt:  d.CreatedAt.UnixMilli(),
		UpdatedAt:  d.UpdatedAt.UnixMilli(),
		Version:    d.Version,
	}
}

func (d disputeDocument) toAggregate() *domaindisputes.Dispute {
	return &domaindisputes.Dispute{
		ID:         domaindisputes.ID(d.ID),
		BookingID:  d.BookingID,
		RaisedBy:   domaindisputes.Side(d.RaisedBy),
		RaiserID:   d.RaiserID,
		Reason:     d.Reason,
		Claim:      d.Claim,
		Status:     domaindisputes.Status(d.Status),
		Resolution: d.Resolution,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

var _ domaindisputes.Repository = (*DisputeRepository)(nil)
