package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainpayments "shortlet/internal/domain/payments"
	"shortlet/internal/domain/shared/money"
)

const paymentsCollection = "agg_payment"

type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{col: db.Collection(paymentsCollection)}
}

func (r *PaymentRepository) ByReference(ctx context.Context, reference string) (*domainpayments.Payment, error) {
	var doc paymentDocument
	if err := findOne(ctx, r.col, bson.M{"_id": reference}, &doc, domainpayments.ErrPaymentNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

// ByBooking returns every payment attempt for a booking, oldest first.
func (r *PaymentRepository) ByBooking(ctx context.Context, bookingID string) ([]*domainpayments.Payment, error) {
	docs, err := findAll[paymentDocument](ctx, r.col, bson.M{"booking_id": bookingID}, findOptions(0, bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]*domainpayments.Payment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *domainpayments.Payment) error {
	doc := newPaymentDocument(p)
	doc.Version = p.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, p.Version, doc); err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

type paymentDocument struct {
	ID               string      `bson:"_id"`
	BookingID        string      `bson:"booking_id"`
	GuestID          string      `bson:"guest_id"`
	Email            string      `bson:"email"`
	Amount           money.Money `bson:"amount"`
	Status           string      `bson:"status"`
	AuthorizationURL string      `bson:"authorization_url"`
	AccessCode       string      `bson:"access_code"`
	GatewayRef       string      `bson:"gateway_ref"`
	FailureReason    string      `bson:"failure_reason"`
	PaidAt           int64       `bson:"paid_at"`
	CreatedAt        int64       `bson:"created_at"`
	UpdatedAt        int64       `bson:"updated_at"`
	Version          int64       `bson:"version"`
}

func newPaymentDocument(p *domainpayments.Payment) paymentDocument {
	return paymentDocument{
		ID:               p.Reference,
		BookingID:        p.BookingID,
		GuestID:          p.GuestID,
		Email:            p.Email,
		Amount:           p.Amount,
		Status:           string(p.Status),
		AuthorizationURL: p.AuthorizationURL,
		AccessCode:       p.AccessCode,
		GatewayRef:       p.GatewayRef,
		FailureReason:    p.FailureReason,
		PaidAt:           millis(p.PaidAt),
		CreatedAt:        p.CreatedAt.UnixMilli(),
		UpdatedAt:        p.UpdatedAt.UnixMilli(),
		Version:          p.Version,
	}
}

func (d paymentDocument) toAggregate() *domainpayments.Payment {
	return &domainpayments.Payment{
		Reference:        d.ID,
		BookingID:        d.BookingID,
		GuestID:          d.GuestID,
		Email:            d.Email,
		Amount:           d.Amount,
		Status:           domainpayments.Status(d.Status),
		AuthorizationURL: d.AuthorizationURL,
		AccessCode:       d.AccessCode,
		GatewayRef:       d.GatewayRef,
		FailureReason:    d.FailureReason,
		PaidAt:           timestampToTime(d.PaidAt),
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
}

var _ domainpayments.Repository = (*PaymentRepository)(nil)
