package disputes

import (
	"context"
	"errors"
	"strings"
	"time"

	"shortlet/internal/domain/shared/events"
	"shortlet/internal/domain/shared/money"
)

var (
	ErrDisputeNotFound  = errors.New("disputes: not found")
	ErrReasonRequired   = errors.New("disputes: reason is required")
	ErrNegativeClaim    = errors.New("disputes: claim cannot be negative")
	ErrAlreadyResolved  = errors.New("disputes: already resolved")
	ErrInvalidRaiser    = errors.New("disputes: only guest or realtor may raise a dispute")
	ErrResolverRequired = errors.New("disputes: resolver is required")
)

type ID string

type Side string

const (
	SideGuest   Side = "GUEST"
	SideRealtor Side = "REALTOR"
)

type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

type Resolution struct {
	Award      money.Money `json:"award" bson:"award"`
	Note       string      `json:"note" bson:"note"`
	ResolvedBy string      `json:"resolved_by" bson:"resolved_by"`
	At         time.Time   `json:"at" bson:"at"`
}

type Dispute struct {
	ID         ID
	BookingID  string
	RaisedBy   Side
	RaiserID   string
	Reason     string
	Claim      money.Money
	Status     Status
	Resolution *Resolution
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Filter struct {
	BookingID string
	Status    Status
	Limit     int
}

func (f Filter) Matches(d *Dispute) bool {
	if f.BookingID != "" && d.BookingID != f.BookingID {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	return true
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Dispute, error)
	Save(ctx context.Context, dispute *Dispute) error
	Find(ctx context.Context, filter Filter) ([]*Dispute, error)
}

type OpenParams struct {
	ID        ID
	BookingID string
	RaisedBy  Side
	RaiserID  string
	Reason    string
	Claim     money.Money
	Now       time.Time
}

func Open(params OpenParams) (*Dispute, error) {
	if params.RaisedBy != SideGuest && params.RaisedBy != SideRealtor {
		return nil, ErrInvalidRaiser
	}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if params.Claim.Amount < 0 {
		return nil, ErrNegativeClaim
	}
	now := params.Now.UTC()
	d := &Dispute{
		ID:        params.ID,
		BookingID: params.BookingID,
		RaisedBy:  params.RaisedBy,
		RaiserID:  params.RaiserID,
		Reason:    reason,
		Claim:     params.Claim,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.Record(DisputeOpened{DisputeID: d.ID, BookingID: d.BookingID, RaisedBy: d.RaisedBy, Claim: d.Claim, At: now})
	return d, nil
}

func (d *Dispute) Resolve(award money.Money, note, resolvedBy string, now time.Time) error {
	if d.Status == StatusResolved {
		return ErrAlreadyResolved
	}
	if strings.TrimSpace(resolvedBy) == "" {
		return ErrResolverRequired
	}
	d.Status = StatusResolved
	d.UpdatedAt = now.UTC()
	d.Resolution = &Resolution{Award: award, Note: strings.TrimSpace(note), ResolvedBy: resolvedBy, At: d.UpdatedAt}
	d.Record(DisputeClosed{DisputeID: d.ID, BookingID: d.BookingID, Award: award, At: d.UpdatedAt})
	return nil
}

type DisputeOpened struct {
	DisputeID ID          `json:"dispute_id"`
	BookingID string      `json:"booking_id"`
	RaisedBy  Side        `json:"raised_by"`
	Claim     money.Money `json:"claim"`
	At        time.Time   `json:"at"`
}

func (e DisputeOpened) EventName() string     { return "dispute.opened" }
func (e DisputeOpened) AggregateID() string   { return string(e.DisputeID) }
func (e DisputeOpened) OccurredAt() time.Time { return e.At }

type DisputeClosed struct {
	DisputeID ID          `json:"dispute_id"`
	BookingID string      `json:"booking_id"`
	Award     money.Money `json:"award"`
	At        time.Time   `json:"at"`
}

func (e DisputeClosed) EventName() string     { return "dispute.resolved" }
func (e DisputeClosed) AggregateID() string   { return string(e.DisputeID) }
func (e DisputeClosed) OccurredAt() time.Time { return e.At }
