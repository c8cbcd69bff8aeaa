package listings

import (
	"time"
)

type ListingCreatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	RealtorID RealtorID `json:"realtor_id"`
	At        time.Time `json:"at"`
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingActivatedEvent struct {
	ListingID ListingID `json:"listing_id"`
	RealtorID RealtorID `json:"realtor_id"`
	At        time.Time `json:"at"`
}

func (e ListingActivatedEvent) EventName() string     { return "listing.activated" }
func (e ListingActivatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingActivatedEvent) OccurredAt() time.Time { return e.At }

type ListingSuspendedEvent struct {
	ListingID ListingID `json:"listing_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e ListingSuspendedEvent) EventName() string     { return "listing.suspended" }
func (e ListingSuspendedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingSuspendedEvent) OccurredAt() time.Time { return e.At }
