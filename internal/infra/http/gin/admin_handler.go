package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	adminapp "shortlet/internal/app/handlers/admin"
	bookingapp "shortlet/internal/app/handlers/booking"
	disputeapp "shortlet/internal/app/handlers/disputes"
	escrowapp "shortlet/internal/app/handlers/escrow"
	listingapp "shortlet/internal/app/handlers/listings"
	"shortlet/internal/app/queries"
	domainbooking "shortlet/internal/domain/booking"
)

const adminReleaseTrigger = "admin"

type AdminHTTP interface {
	Bookings(c *gin.Context)
	Disputes(c *gin.Context)
	Stats(c *gin.Context)
	ResolveDispute(c *gin.Context)
	RefundBooking(c *gin.Context)
	SuspendListing(c *gin.Context)
	BlockUser(c *gin.Context)
	ReleaseEscrow(c *gin.Context)
}

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type resolveDisputeRequest struct {
	Award int64  `json:"award"`
	Note  string `json:"note"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type blockUserRequest struct {
	Reason  string `json:"reason"`
	Unblock bool   `json:"unblock"`
}

func (h AdminHandler) Bookings(c *gin.Context) {
	if _, ok := requireRole(c, roleAdmin); !ok {
		return
	}
	query := bookingapp.ListAdminBookingsQuery{Status: c.Query("status"), Limit: parseInt(c.Query("limit"))}
	result, err := queries.Ask[bookingapp.ListAdminBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) Disputes(c *gin.Context) {
	if _, ok := requireRole(c, roleAdmin); !ok {
		return
	}
	query := disputeapp.ListDisputesQuery{BookingID: c.Query("booking_id"), Status: c.Query("status")}
	result, err := queries.Ask[disputeapp.ListDisputesQuery, dto.DisputeCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) Stats(c *gin.Context) {
	if _, ok := requireRole(c, roleAdmin); !ok {
		return
	}
	result, err := queries.Ask[adminapp.StatsQuery, dto.AdminStats](c.Request.Context(), h.Queries, adminapp.StatsQuery{})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) ResolveDispute(c *gin.Context) {
	admin, ok := requireRole(c, roleAdmin)
	if !ok {
		return
	}
	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := disputeapp.ResolveDisputeCommand{DisputeID: c.Param("id"), AdminID: admin.ID, Award: req.Award, Note: req.Note}
	result, err := commands.Dispatch[disputeapp.ResolveDisputeCommand, *disputeapp.ResolveDisputeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefundBooking cancels on the platform's behalf, which refunds the guest in full.
func (h AdminHandler) RefundBooking(c *gin.Context) {
	admin, ok := requireRole(c, roleAdmin)
	if !ok {
		return
	}
	var req reasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       c.Param("id"),
		ActorID:         admin.ID,
		Actor:           domainbooking.ActorAdmin,
		Reason:          req.Reason,
		IdempotencyKeyV: idempotencyKey(c, admin.ID),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) SuspendListing(c *gin.Context) {
	admin, ok := requireRole(c, roleAdmin)
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := listingapp.SuspendListingCommand{AdminID: admin.ID, ListingID: c.Param("id"), Reason: req.Reason}
	result, err := commands.Dispatch[listingapp.SuspendListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AdminHandler) BlockUser(c *gin.Context) {
	admin, ok := requireRole(c, roleAdmin)
	if !ok {
		return
	}
	var req blockUserRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := adminapp.BlockUserCommand{AdminID: admin.ID, UserID: c.Param("id"), Reason: req.Reason, Unblock: req.Unblock}
	result, err := commands.Dispatch[adminapp.BlockUserCommand, *dto.UserProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReleaseEscrow releases every bucket that is due now instead of waiting for the sweep.
func (h AdminHandler) ReleaseEscrow(c *gin.Context) {
	if _, ok := requireRole(c, roleAdmin); !ok {
		return
	}
	cmd := escrowapp.ReleaseEscrowCommand{BookingID: c.Param("id"), Trigger: adminReleaseTrigger}
	result, err := commands.Dispatch[escrowapp.ReleaseEscrowCommand, *escrowapp.ReleaseEscrowResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AdminHTTP = AdminHandler{}
