package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"shortlet/internal/domain/shared/money"
	domainwallet "shortlet/internal/domain/wallet"
)

const (
	walletsCollection = "agg_wallet"
	payoutsCollection = "agg_payout"
)

type WalletRepository struct {
	col *mongo.Collection
}

func NewWalletRepository(db *mongo.Database) *WalletRepository {
	return &WalletRepository{col: db.Collection(walletsCollection)}
}

func (r *WalletRepository) ByOwner(ctx context.Context, ownerID string) (*domainwallet.Wallet, error) {
	var doc walletDocument
	if err := findOne(ctx, r.col, bson.M{"_id": ownerID}, &doc, domainwallet.ErrWalletNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *WalletRepository) Save(ctx context.Context, w *domainwallet.Wallet) error {
	doc := newWalletDocument(w)
	doc.Version = w.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, w.Version, doc); err != nil {
		return err
	}
	w.Version = doc.Version
	return nil
}

type walletDocument struct {
	ID             string      `bson:"_id"`
	Kind           string      `bson:"kind"`
	Balance        money.Money `bson:"balance"`
	TotalEarned    money.Money `bson:"total_earned"`
	TotalWithdrawn money.Money `bson:"total_withdrawn"`
	AppliedKeys    []string    `bson:"applied_keys"`
	CreatedAt      int64       `bson:"created_at"`
	UpdatedAt      int64       `bson:"updated_at"`
	Version        int64       `bson:"version"`
}

func newWalletDocument(w *domainwallet.Wallet) walletDocument {
	return walletDocument{
		ID:             w.OwnerID,
		Kind:           string(w.Kind),
		Balance:        w.Balance,
		TotalEarned:    w.TotalEarned,
		TotalWithdrawn: w.TotalWithdrawn,
		AppliedKeys:    append([]string(nil), w.AppliedKeys...),
		CreatedAt:      w.CreatedAt.UnixMilli(),
		UpdatedAt:      w.UpdatedAt.UnixMilli(),
		Version:        w.Version,
	}
}

func (d walletDocument) toAggregate() *domainwallet.Wallet {
	return &domainwallet.Wallet{
		OwnerID:        d.ID,
		Kind:           domainwallet.Kind(d.Kind),
		Balance:        d.Balance,
		TotalEarned:    d.TotalEarned,
		TotalWithdrawn: d.TotalWithdrawn,
		AppliedKeys:    d.AppliedKeys,
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
		Version:        d.Version,
	}
}

type PayoutRepository struct {
	col *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) *PayoutRepository {
	return &PayoutRepository{col: db.Collection(payoutsCollection)}
}

func (r *PayoutRepository) ByID(ctx context.Context, id string) (*domainwallet.Payout, error) {
	var doc payoutDocument
	if err := findOne(ctx, r.col, bson.M{"_id": id}, &doc, domainwallet.ErrPayoutNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PayoutRepository) Save(ctx context.Context, p *domainwallet.Payout) error {
	doc := newPayoutDocument(p)
	doc.Version = p.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, p.Version, doc); err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (r *PayoutRepository) ListByRealtor(ctx context.Context, realtorID string, limit int) ([]*domainwallet.Payout, error) {
	return r.list(ctx, bson.M{"realtor_id": realtorID}, limit)
}

func (r *PayoutRepository) ListPending(ctx context.Context, limit int) ([]*domainwallet.Payout, error) {
	return r.list(ctx, bson.M{"status": string(domainwallet.PayoutPending)}, limit)
}

func (r *PayoutRepository) list(ctx context.Context, query bson.M, limit int) ([]*domainwallet.Payout, error) {
	docs, err := findAll[payoutDocument](ctx, r.col, query, findOptions(limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := make([]*domainwallet.Payout, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type payoutDocument struct {
	ID            string      `bson:"_id"`
	RealtorID     string      `bson:"realtor_id"`
	Amount        money.Money `bson:"amount"`
	RecipientCode string      `bson:"recipient_code"`
	Status        string      `bson:"status"`
	GatewayRef    string      `bson:"gateway_ref"`
	FailureReason string      `bson:"failure_reason"`
	LastError     string      `bson:"last_error,omitempty"`
	Attempts      int         `bson:"attempts"`
	CreatedAt     int64       `bson:"created_at"`
	UpdatedAt     int64       `bson:"updated_at"`
	Version       int64       `bson:"version"`
}

func newPayoutDocument(p *domainwallet.Payout) payoutDocument {
	return payoutDocument{
		ID:            p.ID,
		RealtorID:     p.RealtorID,
		Amount:        p.Amount,
		RecipientCode: p.RecipientCode,
		Status:        string(p.Status),
		GatewayRef:    p.GatewayRef,
		FailureReason: p.FailureReason,
		LastError:     p.LastError,
		Attempts:      p.Attempts,
		CreatedAt:     p.CreatedAt.UnixMilli(),
		UpdatedAt:     p.UpdatedAt.UnixMilli(),
		Version:       p.Version,
	}
}

func (d payoutDocument) toAggregate() *domainwallet.Payout {
	return &domainwallet.Payout{
		ID:            d.ID,
		RealtorID:     d.RealtorID,
		Amount:        d.Amount,
		RecipientCode: d.RecipientCode,
		Status:        domainwallet.PayoutStatus(d.Status),
		GatewayRef:    d.GatewayRef,
		FailureReason: d.FailureReason,
		LastError:     d.LastError,
		Attempts:      d.Attempts,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}

var (
	_ domainwallet.Repository       = (*WalletRepository)(nil)
	_ domainwallet.PayoutRepository = (*PayoutRepository)(nil)
)
