package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/commands"
	adminapp "shortlet/internal/app/handlers/admin"
	bookingapp "shortlet/internal/app/handlers/booking"
	disputeapp "shortlet/internal/app/handlers/disputes"
	listingapp "shortlet/internal/app/handlers/listings"
	paymentapp "shortlet/internal/app/handlers/payments"
	reviewapp "shortlet/internal/app/handlers/reviews"
	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/middleware"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/queries"
	authsvc "shortlet/internal/app/services/auth"
	"shortlet/internal/app/uow"
	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainpayments "shortlet/internal/domain/payments"
	domainpricing "shortlet/internal/domain/pricing"
	domainreviews "shortlet/internal/domain/reviews"
	"shortlet/internal/domain/shared/daterange"
	"shortlet/internal/domain/shared/money"
	domainuser "shortlet/internal/domain/user"
	domainwallet "shortlet/internal/domain/wallet"
)

type errorClass struct {
	status int
	errs   []error
}

// errorClasses is checked in order; the first match decides the status.
var errorClasses = []errorClass{
	{http.StatusBadRequest, []error{
		middleware.ErrValidation,
		daterange.ErrInvalidRange,
		money.ErrInvalidCurrency,
		money.ErrCurrencyMismatch,
		money.ErrInvalidRate,
		domainbooking.ErrCheckInInPast,
		domainbooking.ErrInvalidGuests,
		domainpricing.ErrGuestsExceeded,
		domainpricing.ErrInvalidGuests,
		domainpricing.ErrStayTooShort,
		domainpricing.ErrStayTooLong,
		domainlistings.ErrGuestsLimit,
		domainlistings.ErrNightsRange,
		domainlistings.ErrAddressRequired,
		domainlistings.ErrTitleRequired,
		domainlistings.ErrNightlyRate,
		domainlistings.ErrNegativeFee,
		listingapp.ErrUnsupportedCurrency,
		domaindisputes.ErrReasonRequired,
		domaindisputes.ErrNegativeClaim,
		domaindisputes.ErrInvalidRaiser,
		domainescrow.ErrAwardTooLarge,
		domainreviews.ErrInvalidRating,
		domainreviews.ErrTextTooLong,
		domainwallet.ErrInvalidAmount,
		domainwallet.ErrRecipientRequired,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
		authsvc.ErrPasswordTooShort,
		adminapp.ErrSelfBlock,
	}},
	{http.StatusUnauthorized, []error{
		authsvc.ErrInvalidCredentials,
	}},
	{http.StatusForbidden, []error{
		bookingapp.ErrBookingNotOwned,
		listingapp.ErrListingNotOwned,
		domainlistings.ErrNotOwner,
		disputeapp.ErrNotParticipant,
		paymentapp.ErrNotBookingGuest,
		reviewapp.ErrBookingOwnership,
		reviewapp.ErrReviewOwnership,
		handlersupport.ErrForbidden,
		domainbooking.ErrCannotBookOwnListing,
		domainuser.ErrBlocked,
	}},
	{http.StatusNotFound, []error{
		domainbooking.ErrBookingNotFound,
		domainlistings.ErrListingNotFound,
		reviewapp.ErrListingNotFound,
		domainescrow.ErrEscrowNotFound,
		domainescrow.ErrEntryNotFound,
		domainpayments.ErrPaymentNotFound,
		domaindisputes.ErrDisputeNotFound,
		domainwallet.ErrWalletNotFound,
		domainwallet.ErrPayoutNotFound,
		domainreviews.ErrNotFound,
		domainuser.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		uow.ErrConcurrentUpdate,
		domainbooking.ErrInvalidState,
		domainbooking.ErrPaymentRefMismatch,
		domainbooking.ErrPaymentWindowOpen,
		domainbooking.ErrPaymentWindowClosed,
		domainbooking.ErrTooEarlyForCheckIn,
		domainbooking.ErrDatesUnavailable,
		bookingapp.ErrEscrowNotSettled,
		domainpricing.ErrListingUnavailable,
		domainlistings.ErrInvalidState,
		domainescrow.ErrInvalidState,
		domainescrow.ErrAmountMismatch,
		domainescrow.ErrPaymentRefMismatch,
		domainescrow.ErrHoldPeriodActive,
		domainescrow.ErrAlreadyReleased,
		domainescrow.ErrOverAllocation,
		domainescrow.ErrRefundExceedsPaid,
		domainescrow.ErrDisputeOpen,
		domainescrow.ErrDisputeWindowClosed,
		domainescrow.ErrNoOpenDispute,
		domainescrow.ErrDisputeMismatch,
		domainpayments.ErrInvalidState,
		domainpayments.ErrAmountMismatch,
		paymentapp.ErrBookingNotPayable,
		domaindisputes.ErrAlreadyResolved,
		domainwallet.ErrInsufficientFunds,
		domainwallet.ErrPayoutState,
		reviewapp.ErrStayNotFinished,
		reviewapp.ErrDuplicateReview,
		domainuser.ErrEmailAlreadyUsed,
	}},
	{http.StatusBadGateway, []error{
		policies.ErrGateway,
	}},
	{http.StatusServiceUnavailable, []error{
		commands.ErrHandlerNotFound,
		queries.ErrHandlerNotFound,
	}},
}

func statusFor(err error) int {
	for _, class := range errorClasses {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return class.status
			}
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status of its class. Unclassified errors
// are logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "error", err, "request_id", c.GetString("request_id"))
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
