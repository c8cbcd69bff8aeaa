package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/commands"
	"shortlet/internal/app/dto"
	bookingapp "shortlet/internal/app/handlers/booking"
	disputeapp "shortlet/internal/app/handlers/disputes"
	paymentapp "shortlet/internal/app/handlers/payments"
	reviewapp "shortlet/internal/app/handlers/reviews"
	"shortlet/internal/app/queries"
	domainbooking "shortlet/internal/domain/booking"
	domaindisputes "shortlet/internal/domain/disputes"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	CheckIn(c *gin.Context)
	CheckOut(c *gin.Context)
	OpenDispute(c *gin.Context)
	Review(c *gin.Context)
	EditReview(c *gin.Context)
	InitializePayment(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Guests    int    `json:"guests"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
	As     string `json:"as"`
}

type disputeRequest struct {
	Reason string `json:"reason"`
	Claim  int64  `json:"claim"`
	As     string `json:"as"`
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type initializePaymentRequest struct {
	CallbackURL string `json:"callback_url"`
}

var errRoleNotHeld = errors.New("insufficient permissions")

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		ListingID:       req.ListingID,
		GuestID:         user.ID,
		CheckIn:         parseDate(req.CheckIn),
		CheckOut:        parseDate(req.CheckOut),
		Guests:          req.Guests,
		IdempotencyKeyV: idempotencyKey(c, user.ID),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Get resolves the viewer role from ?as=. Without it, admins see any booking
// and other users are tried as guest first, then as realtor.
func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	requested := c.Query("as")
	actor, err := bookingActor(user, requested)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id"), ViewerID: user.ID, Viewer: actor}
	result, err := queries.Ask[bookingapp.GetBookingQuery, *dto.BookingDetail](ctx, h.Queries, query)
	if err != nil && requested == "" && actor == domainbooking.ActorGuest && user.HasRole(roleRealtor) && errors.Is(err, bookingapp.ErrBookingNotOwned) {
		query.Viewer = domainbooking.ActorRealtor
		result, err = queries.Ask[bookingapp.GetBookingQuery, *dto.BookingDetail](ctx, h.Queries, query)
	}
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req cancelBookingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, err := bookingActor(user, req.As)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       c.Param("id"),
		ActorID:         user.ID,
		Actor:           actor,
		Reason:          req.Reason,
		IdempotencyKeyV: idempotencyKey(c, user.ID),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) CheckIn(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	actor, err := bookingActor(user, c.Query("as"))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CheckInCommand{BookingID: c.Param("id"), ActorID: user.ID, Actor: actor}
	result, err := commands.Dispatch[bookingapp.CheckInCommand, *bookingapp.StayResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) CheckOut(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	actor, err := bookingActor(user, c.Query("as"))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CheckOutCommand{BookingID: c.Param("id"), ActorID: user.ID, Actor: actor}
	result, err := commands.Dispatch[bookingapp.CheckOutCommand, *bookingapp.StayResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) OpenDispute(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req disputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side := domaindisputes.SideGuest
	if strings.EqualFold(strings.TrimSpace(req.As), roleRealtor) {
		if !user.HasRole(roleRealtor) {
			c.JSON(http.StatusForbidden, gin.H{"error": errRoleNotHeld.Error()})
			return
		}
		side = domaindisputes.SideRealtor
	}
	cmd := disputeapp.OpenDisputeCommand{
		BookingID: c.Param("id"),
		ActorID:   user.ID,
		Side:      side,
		Reason:    req.Reason,
		Claim:     req.Claim,
	}
	result, err := commands.Dispatch[disputeapp.OpenDisputeCommand, *dto.Dispute](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Review(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := reviewapp.SubmitReviewCommand{
		BookingID: c.Param("id"),
		AuthorID:  user.ID,
		Rating:    req.Rating,
		Text:      req.Text,
	}
	result, err := commands.Dispatch[reviewapp.SubmitReviewCommand, dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) EditReview(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := commands.Dispatch[reviewapp.UpdateReviewCommand, dto.Review](c.Request.Context(), h.Commands, reviewapp.UpdateReviewCommand{
		BookingID: c.Param("id"),
		AuthorID:  user.ID,
		Rating:    req.Rating,
		Text:      req.Text,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) InitializePayment(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req initializePaymentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := paymentapp.InitializePaymentCommand{
		BookingID:       c.Param("id"),
		GuestID:         user.ID,
		Email:           user.Email,
		CallbackURL:     req.CallbackURL,
		IdempotencyKeyV: idempotencyKey(c, user.ID),
	}
	result, err := commands.Dispatch[paymentapp.InitializePaymentCommand, *dto.Payment](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// bookingActor maps the requested role onto a booking actor. The caller must
// hold the role it asks for.
func bookingActor(user principal, requested string) (domainbooking.Actor, error) {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case roleRealtor:
		if !user.HasRole(roleRealtor) {
			return "", errRoleNotHeld
		}
		return domainbooking.ActorRealtor, nil
	case roleAdmin:
		if !user.HasRole(roleAdmin) {
			return "", errRoleNotHeld
		}
		return domainbooking.ActorAdmin, nil
	case roleGuest:
		return domainbooking.ActorGuest, nil
	case "":
		if user.HasRole(roleAdmin) {
			return domainbooking.ActorAdmin, nil
		}
		return domainbooking.ActorGuest, nil
	default:
		return "", errRoleNotHeld
	}
}

var _ BookingHTTP = BookingHandler{}
