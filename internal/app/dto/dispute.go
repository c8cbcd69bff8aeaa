package dto

import (
	"time"

	domaindisputes "shortlet/internal/domain/disputes"
)

type DisputeResolution struct {
	Award      MoneyDTO  `json:"award"`
	Note       string    `json:"note"`
	ResolvedBy string    `json:"resolved_by"`
	At         time.Time `json:"at"`
}

type Dispute struct {
	ID         string             `json:"id"`
	BookingID  string             `json:"booking_id"`
	RaisedBy   string             `json:"raised_by"`
	RaiserID   string             `json:"raiser_id"`
	Reason     string             `json:"reason"`
	Claim      MoneyDTO           `json:"claim"`
	Status     string             `json:"status"`
	Resolution *DisputeResolution `json:"resolution,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

type DisputeCollection struct {
	Items []Dispute `json:"items"`
}

func MapDispute(d *domaindisputes.Dispute) Dispute {
	out := Dispute{
		ID:        string(d.ID),
		BookingID: d.BookingID,
		RaisedBy:  string(d.RaisedBy),
		RaiserID:  d.RaiserID,
		Reason:    d.Reason,
		Claim:     MapMoney(d.Claim),
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt,
	}
	if r := d.Resolution; r != nil {
		out.Resolution = &DisputeResolution{Award: MapMoney(r.Award), Note: r.Note, ResolvedBy: r.ResolvedBy, At: r.At}
	}
	return out
}
