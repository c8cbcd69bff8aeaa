package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	bookingapp "shortlet/internal/app/handlers/booking"
	listingapp "shortlet/internal/app/handlers/listings"
	walletapp "shortlet/internal/app/handlers/wallets"
	"shortlet/internal/app/queries"
	domainlistings "shortlet/internal/domain/listings"
	domainwallet "shortlet/internal/domain/wallet"
)

type RealtorHTTP interface {
	CreateListing(c *gin.Context)
	PublishListing(c *gin.Context)
	Bookings(c *gin.Context)
	Wallet(c *gin.Context)
	Payouts(c *gin.Context)
	RequestPayout(c *gin.Context)
}

// RealtorHandler serves the realtor workspace: listings, bookings and earnings.
type RealtorHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type listingRequest struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	PropertyType    string                 `json:"property_type"`
	Address         domainlistings.Address `json:"address"`
	Amenities       []string               `json:"amenities"`
	GuestsLimit     int                    `json:"guests_limit"`
	Bedrooms        int                    `json:"bedrooms"`
	Bathrooms       int                    `json:"bathrooms"`
	MinNights       int                    `json:"min_nights"`
	MaxNights       int                    `json:"max_nights"`
	Currency        string                 `json:"currency"`
	NightlyRate     int64                  `json:"nightly_rate"`
	CleaningFee     int64                  `json:"cleaning_fee"`
	SecurityDeposit int64                  `json:"security_deposit"`
}

type payoutRequest struct {
	Amount        int64  `json:"amount"`
	RecipientCode string `json:"recipient_code"`
}

func (h RealtorHandler) CreateListing(c *gin.Context) {
	user, ok := requireRole(c, roleRealtor)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := listingapp.CreateListingCommand{
		RealtorID: user.ID,
		Payload: listingapp.ListingPayload{
			Title:           req.Title,
			Description:     req.Description,
			PropertyType:    req.PropertyType,
			Address:         req.Address,
			Amenities:       req.Amenities,
			GuestsLimit:     req.GuestsLimit,
			Bedrooms:        req.Bedrooms,
			Bathrooms:       req.Bathrooms,
			MinNights:       req.MinNights,
			MaxNights:       req.MaxNights,
			Currency:        req.Currency,
			NightlyRate:     req.NightlyRate,
			CleaningFee:     req.CleaningFee,
			SecurityDeposit: req.SecurityDeposit,
		},
	}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h RealtorHandler) PublishListing(c *gin.Context) {
	user, ok := requireRole(c, roleRealtor)
	if !ok {
		return
	}
	cmd := listingapp.PublishListingCommand{RealtorID: user.ID, ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.PublishListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RealtorHandler) Bookings(c *gin.Context) {
	user, ok := requireRole(c, roleRealtor)
	if !ok {
		return
	}
	query := bookingapp.ListRealtorBookingsQuery{RealtorID: user.ID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListRealtorBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RealtorHandler) Wallet(c *gin.Context) {
	user, ok := requireRole(c, roleRealtor)
	if !ok {
		return
	}
	result, err := queries.Ask[walletapp.GetWalletQuery, dto.Wallet](c.Request.Context(), h.Queries, walletapp.GetWalletQuery{OwnerID: user.ID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RealtorHandler) Payouts(c *gin.Context) {
	user, ok := requireRole(c, roleRealtor)
	if !ok {
		return
	}
	result, err := queries.Ask[walletapp.ListPayoutsQuery, dto.PayoutCollection](c.Request.Context(), h.Queries, walletapp.ListPayoutsQuery{RealtorID: user.ID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RealtorHandler) RequestPayout(c *gin.Context) {
	user, ok := requireRole(c, roleRealtor)
	if !ok {
		return
	}
	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := walletapp.RequestPayoutCommand{
		RealtorID:       user.ID,
		Amount:          req.Amount,
		RecipientCode:   req.RecipientCode,
		IdempotencyKeyV: idempotencyKey(c, user.ID),
	}
	result, err := commands.Dispatch[walletapp.RequestPayoutCommand, *dto.Payout](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result.Status == string(domainwallet.PayoutPending) {
		// The debit is committed; a failed transfer attempt here is retried by the payout sweep.
		settled, err := commands.Dispatch[walletapp.SettlePayoutCommand, *dto.Payout](c.Request.Context(), h.Commands, walletapp.SettlePayoutCommand{PayoutID: result.ID})
		if err != nil {
			if h.Logger != nil {
				h.Logger.Warn("payout settlement deferred", "payout_id", result.ID, "error", err)
			}
		} else {
			result = settled
		}
	}
	c.JSON(http.StatusCreated, result)
}

var _ RealtorHTTP = RealtorHandler{}
