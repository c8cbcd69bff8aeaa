package booking

import (
	"errors"
	"strings"

	domainbooking "shortlet/internal/domain/booking"
)

var (
	ErrBookingNotOwned   = errors.New("booking: not owned by actor")
	errBookingIDRequired = errors.New("booking id is required")
	errActorIDRequired   = errors.New("actor id is required")
	errUnsupportedActor  = errors.New("booking: unsupported actor")
	errListingIDRequired = errors.New("listing id is required")
	errGuestIDRequired   = errors.New("guest id is required")
	errRealtorIDRequired = errors.New("realtor id is required")
)

// ensureParticipant checks that actorID may act on b in the given role.
func ensureParticipant(b *domainbooking.Booking, actor domainbooking.Actor, actorID string) error {
	actorID = strings.TrimSpace(actorID)
	switch actor {
	case domainbooking.ActorAdmin, domainbooking.ActorSystem:
		return nil
	case domainbooking.ActorGuest:
		if b.GuestID != actorID {
			return ErrBookingNotOwned
		}
	case domainbooking.ActorRealtor:
		if string(b.RealtorID) != actorID {
			return ErrBookingNotOwned
		}
	default:
		return errUnsupportedActor
	}
	return nil
}
