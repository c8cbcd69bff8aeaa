package escrow

import (
	"time"

	"shortlet/internal/domain/shared/money"
)

type EscrowFunded struct {
	BookingID        string      `json:"booking_id"`
	Amount           money.Money `json:"amount"`
	PaymentReference string      `json:"payment_reference"`
	At               time.Time   `json:"at"`
}

func (e EscrowFunded) EventName() string     { return "escrow.funded" }
func (e EscrowFunded) AggregateID() string   { return e.BookingID }
func (e EscrowFunded) OccurredAt() time.Time { return e.At }

type StayReleased struct {
	BookingID string      `json:"booking_id"`
	Realtor   money.Money `json:"realtor"`
	Platform  money.Money `json:"platform"`
	At        time.Time   `json:"at"`
}

func (e StayReleased) EventName() string     { return "escrow.stay_released" }
func (e StayReleased) AggregateID() string   { return e.BookingID }
func (e StayReleased) OccurredAt() time.Time { return e.At }

type DepositReleased struct {
	BookingID string      `json:"booking_id"`
	Amount    money.Money `json:"amount"`
	At        time.Time   `json:"at"`
}

func (e DepositReleased) EventName() string     { return "escrow.deposit_released" }
func (e DepositReleased) AggregateID() string   { return e.BookingID }
func (e DepositReleased) OccurredAt() time.Time { return e.At }

type RefundScheduled struct {
	BookingID string      `json:"booking_id"`
	Amount    money.Money `json:"amount"`
	Reason    string      `json:"reason"`
	At        time.Time   `json:"at"`
}

func (e RefundScheduled) EventName() string     { return "escrow.refund_scheduled" }
func (e RefundScheduled) AggregateID() string   { return e.BookingID }
func (e RefundScheduled) OccurredAt() time.Time { return e.At }

type RefundCompleted struct {
	BookingID  string      `json:"booking_id"`
	EntryKey   string      `json:"entry_key"`
	Kind       EntryKind   `json:"kind"`
	Amount     money.Money `json:"amount"`
	GatewayRef string      `json:"gateway_ref"`
	At         time.Time   `json:"at"`
}

func (e RefundCompleted) EventName() string     { return "escrow.refund_completed" }
func (e RefundCompleted) AggregateID() string   { return e.BookingID }
func (e RefundCompleted) OccurredAt() time.Time { return e.At }

type EscrowDisputed struct {
	BookingID string    `json:"booking_id"`
	DisputeID string    `json:"dispute_id"`
	Party     Party     `json:"party"`
	At        time.Time `json:"at"`
}

func (e EscrowDisputed) EventName() string     { return "escrow.disputed" }
func (e EscrowDisputed) AggregateID() string   { return e.BookingID }
func (e EscrowDisputed) OccurredAt() time.Time { return e.At }

type DisputeResolved struct {
	BookingID string      `json:"booking_id"`
	DisputeID string      `json:"dispute_id"`
	Party     Party       `json:"party"`
	Award     money.Money `json:"award"`
	At        time.Time   `json:"at"`
}

func (e DisputeResolved) EventName() string     { return "escrow.dispute_resolved" }
func (e DisputeResolved) AggregateID() string   { return e.BookingID }
func (e DisputeResolved) OccurredAt() time.Time { return e.At }

type EscrowClosed struct {
	BookingID string    `json:"booking_id"`
	State     State     `json:"state"`
	At        time.Time `json:"at"`
}

func (e EscrowClosed) EventName() string     { return "escrow.closed" }
func (e EscrowClosed) AggregateID() string   { return e.BookingID }
func (e EscrowClosed) OccurredAt() time.Time { return e.At }

type EscrowVoided struct {
	BookingID string    `json:"booking_id"`
	At        time.Time `json:"at"`
}

func (e EscrowVoided) EventName() string     { return "escrow.voided" }
func (e EscrowVoided) AggregateID() string   { return e.BookingID }
func (e EscrowVoided) OccurredAt() time.Time { return e.At }
