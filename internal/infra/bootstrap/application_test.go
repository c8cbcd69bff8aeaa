package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	handlersupport "shortlet/internal/app/handlers/support"
	"shortlet/internal/app/jobs"
	"shortlet/internal/app/policies"
	"shortlet/internal/app/uow"
	domainpayments "shortlet/internal/domain/payments"
	sharedmoney "shortlet/internal/domain/shared/money"
	"shortlet/internal/infra/bootstrap"
	"shortlet/internal/infra/config"
	"shortlet/internal/infra/gateway"
	ginserver "shortlet/internal/infra/http/gin"
	"shortlet/internal/infra/obs"
	"shortlet/internal/infra/storage/memory"
)

var testNow = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

const (
	adminEmail    = "ops@shortlet.test"
	adminPassword = "admin-password-1"
)

type harness struct {
	t       *testing.T
	router  http.Handler
	sandbox *gateway.Sandbox
	gateway *flakyGateway
	storage bootstrap.Storage
	outbox  *memory.Outbox
	jobs    *jobs.Runner
	now     time.Time
}

// flakyGateway drops the response of the next lostTransfers transfers after
// the sandbox has already moved the money.
type flakyGateway struct {
	*gateway.Sandbox
	lostTransfers int
}

func (g *flakyGateway) Transfer(ctx context.Context, req policies.TransferRequest) (policies.TransferResult, error) {
	res, err := g.Sandbox.Transfer(ctx, req)
	if err == nil && g.lostTransfers > 0 {
		g.lostTransfers--
		return policies.TransferResult{}, fmt.Errorf("%w: read tcp 10.0.0.7:443: i/o timeout", policies.ErrGateway)
	}
	return res, err
}

func newHarness(t *testing.T, tweaks ...func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Config{
		Env:            "test",
		CORSOrigins:    []string{"*"},
		IdempotencyTTL: time.Hour,
		Currency:       "NGN",
		PaymentWindow:  30 * time.Minute,
		StayHold:       24 * time.Hour,
		DepositHold:    48 * time.Hour,
		RealtorShare:   decimal.RequireFromString("0.90"),
		ServiceFeeRate: decimal.RequireFromString("0.10"),
		GatewayMode:    config.GatewaySandbox,
		SessionTTL:     24 * time.Hour,
		JobBatchSize:   50,
	}
	for _, tweak := range tweaks {
		tweak(&cfg)
	}
	storage, box := bootstrap.MemoryStorage(cfg.IdempotencyTTL)
	sandbox := gateway.NewSandbox()
	h := &harness{t: t, sandbox: sandbox, gateway: &flakyGateway{Sandbox: sandbox}, storage: storage, outbox: box, now: testNow}
	app, err := bootstrap.Build(bootstrap.Deps{
		Config:       cfg,
		Storage:      storage,
		Gateway:      h.gateway,
		Clock:        func() time.Time { return h.now },
		PasswordCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	require.NoError(t, app.Auth.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	h.router = ginserver.NewRouter(cfg, obs.Middleware{}, app.Health, app.Handlers)
	h.jobs = app.Jobs
	return h
}

func (h *harness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type authBody struct {
	User struct {
		ID    string   `json:"id"`
		Roles []string `json:"roles"`
	} `json:"user"`
	Token string `json:"token"`
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type bookingBody struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Price     struct {
		Nights     int   `json:"nights"`
		RoomFee    money `json:"room_fee"`
		ServiceFee money `json:"service_fee"`
		Total      money `json:"total"`
	} `json:"price"`
}

func (h *harness) register(email string, realtor bool) authBody {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":      email,
		"name":       "Test " + email,
		"password":   "correct-horse-9",
		"as_realtor": realtor,
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authBody](h.t, rec)
}

func (h *harness) login(email, password string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authBody](h.t, rec).Token
}

// publishedListing creates and publishes a 3-guest Lagos apartment at
// 10,000 a night with a 5,000 cleaning fee and a 20,000 deposit.
func (h *harness) publishedListing(realtorToken string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/realtor/listings", realtorToken, map[string]any{
		"title":            "Lekki loft",
		"description":      "Two rooms near the beach",
		"property_type":    "apartment",
		"address":          map[string]string{"line1": "1 Admiralty Way", "city": "Lagos", "country": "NG"},
		"amenities":        []string{"wifi", "pool"},
		"guests_limit":     3,
		"bedrooms":         2,
		"bathrooms":        1,
		"min_nights":       1,
		"max_nights":       30,
		"nightly_rate":     10000,
		"cleaning_fee":     5000,
		"security_deposit": 20000,
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	listing := decode[struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}](h.t, rec)
	assert.Equal(h.t, "DRAFT", listing.State)

	rec = h.do(http.MethodPost, "/api/v1/realtor/listings/"+listing.ID+"/publish", realtorToken, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return listing.ID
}

func (h *harness) book(guestToken, listingID string, headers ...string) bookingBody {
	h.t.Helper()
	return h.bookDates(guestToken, listingID, "2026-03-11", "2026-03-14", headers...)
}

func (h *harness) bookDates(guestToken, listingID, checkIn, checkOut string, headers ...string) bookingBody {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/bookings", guestToken, map[string]any{
		"listing_id": listingID,
		"check_in":   checkIn,
		"check_out":  checkOut,
		"guests":     2,
	}, headers...)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[bookingBody](h.t, rec)
}

type verifyBody struct {
	Status        string `json:"status"`
	BookingStatus string `json:"booking_status"`
	EscrowState   string `json:"escrow_state"`
	Refunded      bool   `json:"refunded"`
}

// checkout opens a gateway checkout for the booking and returns its reference.
func (h *harness) checkout(guestToken, bookingID string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/bookings/"+bookingID+"/payments", guestToken, nil)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decode[struct {
		Reference string `json:"reference"`
		Amount    money  `json:"amount"`
	}](h.t, rec)
	require.NotEmpty(h.t, payment.Reference)
	return payment.Reference
}

func (h *harness) verify(reference string) verifyBody {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/api/v1/payments/"+reference+"/verify", "", nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[verifyBody](h.t, rec)
}

func (h *harness) pay(guestToken, bookingID string) string {
	h.t.Helper()
	reference := h.checkout(guestToken, bookingID)
	h.sandbox.Pay(reference)
	verified := h.verify(reference)
	assert.Equal(h.t, "CONFIRMED", verified.BookingStatus)
	assert.Equal(h.t, "ESCROW_HELD", verified.EscrowState)
	return reference
}

// secondCheckout stores another open payment for a booking, as when the guest
// completes checkout in two browser tabs.
func (h *harness) secondCheckout(bookingID, guestID string, amount int64) string {
	h.t.Helper()
	ctx := context.Background()
	reference := "SL-SECOND-" + bookingID
	total := sharedmoney.Money{Amount: amount, Currency: "NGN"}
	err := handlersupport.WithUnit(ctx, h.storage.UoW, func(ctx context.Context, unit uow.UnitOfWork) error {
		payment, err := domainpayments.New(domainpayments.CreateParams{
			Reference: reference,
			BookingID: bookingID,
			GuestID:   guestID,
			Email:     "guest@shortlet.test",
			Amount:    total,
			Now:       h.now,
		})
		if err != nil {
			return err
		}
		return unit.Payments().Save(ctx, payment)
	})
	require.NoError(h.t, err)
	_, err = h.sandbox.Initialize(ctx, policies.InitializeRequest{Reference: reference, Amount: total})
	require.NoError(h.t, err)
	return reference
}

type bookingDetail struct {
	Status string `json:"status"`
	Escrow struct {
		State string `json:"state"`
	} `json:"escrow"`
}

func (h *harness) bookingDetail(token, bookingID string) bookingDetail {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/api/v1/bookings/"+bookingID, token, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[bookingDetail](h.t, rec)
}

func (h *harness) walletBalance(realtorToken string) int64 {
	h.t.Helper()
	rec := h.do(http.MethodGet, "/api/v1/realtor/wallet", realtorToken, nil)
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[struct {
		Balance money `json:"balance"`
	}](h.t, rec).Balance.Amount
}

// releasedStay takes a paid booking through check-in, check-out and the
// stay release, leaving only the deposit in escrow.
func (h *harness) releasedStay() {
	h.t.Helper()
	ctx := context.Background()
	h.now = time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)
	_, err := h.jobs.AdvanceStays(ctx)
	require.NoError(h.t, err)
	h.now = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	_, err = h.jobs.AdvanceStays(ctx)
	require.NoError(h.t, err)
	n, err := h.jobs.ReleaseDueEscrows(ctx)
	require.NoError(h.t, err)
	require.Equal(h.t, 1, n)
}

func (h *harness) refundedTotal() int64 {
	var total int64
	for _, r := range h.sandbox.Refunds() {
		total += r.Amount.Amount
	}
	return total
}

func TestGuestBooksPaysAndCancelsEarly(t *testing.T) {
	h := newHarness(t)
	realtor := h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	assert.ElementsMatch(t, []string{"guest", "realtor"}, realtor.User.Roles)

	listingID := h.publishedListing(realtor.Token)

	rec := h.do(http.MethodGet, "/api/v1/listings?city=lagos", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decode[struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, catalog.Items, 1)
	assert.Equal(t, listingID, catalog.Items[0].ID)

	booking := h.book(guest.Token, listingID)
	assert.Equal(t, "PENDING_PAYMENT", booking.Status)
	assert.Equal(t, 3, booking.Price.Nights)
	assert.Equal(t, int64(30000), booking.Price.RoomFee.Amount)
	assert.Equal(t, int64(3000), booking.Price.ServiceFee.Amount)
	assert.Equal(t, int64(58000), booking.Price.Total.Amount)

	h.pay(guest.Token, booking.BookingID)

	rec = h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/cancel", guest.Token, map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[struct {
		Status string `json:"status"`
		Refund struct {
			Tier    string `json:"tier"`
			Percent int    `json:"percent"`
			Service money  `json:"service"`
			Total   money  `json:"total"`
		} `json:"refund"`
	}](t, rec)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, "EARLY", cancelled.Refund.Tier)
	assert.Equal(t, 100, cancelled.Refund.Percent)
	assert.Zero(t, cancelled.Refund.Service.Amount)
	assert.Equal(t, int64(55000), cancelled.Refund.Total.Amount)
	assert.Equal(t, int64(55000), h.refundedTotal())

	assert.Contains(t, h.outbox.Published(), "booking.requested")
	assert.Contains(t, h.outbox.Published(), "booking.confirmed")
	assert.Contains(t, h.outbox.Published(), "booking.cancelled")

	rec = h.do(http.MethodGet, "/api/v1/me/bookings", guest.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), booking.BookingID)
}

func TestRealtorCancellationRefundsEverything(t *testing.T) {
	h := newHarness(t)
	realtor := h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(realtor.Token)
	booking := h.book(guest.Token, listingID)
	h.pay(guest.Token, booking.BookingID)

	rec := h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/cancel", realtor.Token, map[string]string{"reason": "pipe burst", "as": "realtor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"tier":"FULL"`)
	assert.Equal(t, int64(58000), h.refundedTotal())

	rec = h.do(http.MethodGet, "/api/v1/bookings/"+booking.BookingID, realtor.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[struct {
		Status string `json:"status"`
		Escrow struct {
			State string `json:"state"`
		} `json:"escrow"`
	}](t, rec)
	assert.Equal(t, "CANCELLED", detail.Status)
	assert.Equal(t, "REFUNDED", detail.Escrow.State)
}

func TestIdempotencyKeyReplaysBooking(t *testing.T) {
	h := newHarness(t)
	realtor := h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(realtor.Token)

	first := h.book(guest.Token, listingID, "Idempotency-Key", "book-1")
	second := h.book(guest.Token, listingID, "Idempotency-Key", "book-1")
	assert.Equal(t, first.BookingID, second.BookingID)

	rec := h.do(http.MethodPost, "/api/v1/bookings", guest.Token, map[string]any{
		"listing_id": listingID,
		"check_in":   "2026-03-12",
		"check_out":  "2026-03-13",
		"guests":     1,
	}, "Idempotency-Key", "book-2")
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestErrorStatusMapping(t *testing.T) {
	h := newHarness(t)
	realtor := h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(realtor.Token)

	rec := h.do(http.MethodPost, "/api/v1/bookings", "", map[string]any{"listing_id": listingID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/realtor/listings", guest.Token, map[string]any{"title": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/bookings/missing", guest.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/bookings", guest.Token, map[string]any{
		"listing_id": listingID,
		"check_in":   "2026-03-11",
		"check_out":  "2026-03-14",
		"guests":     9,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/bookings", guest.Token, map[string]any{
		"listing_id": listingID,
		"check_in":   "2026-03-11",
		"check_out":  "2026-03-14",
		"guests":     0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "guest@shortlet.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/admin/stats", guest.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminBlocksUserAndSuspendsListing(t *testing.T) {
	h := newHarness(t)
	realtor := h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(realtor.Token)
	admin := h.login(adminEmail, adminPassword)

	rec := h.do(http.MethodGet, "/api/v1/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/admin/listings/"+listingID+"/suspend", admin, map[string]string{"reason": "fake photos"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"state":"SUSPENDED"`)

	rec = h.do(http.MethodPost, "/api/v1/bookings", guest.Token, map[string]any{
		"listing_id": listingID,
		"check_in":   "2026-03-11",
		"check_out":  "2026-03-14",
		"guests":     2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/admin/users/"+guest.User.ID+"/block", admin, map[string]string{"reason": "chargebacks"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/me/bookings", guest.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "guest@shortlet.test", "password": "correct-horse-9"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBuildRejectsIncompleteStorage(t *testing.T) {
	_, err := bootstrap.Build(bootstrap.Deps{Gateway: gateway.NewSandbox()})
	assert.ErrorIs(t, err, bootstrap.ErrStorageIncomplete)
}

func TestJobsCarryPaidStayThroughSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register("realtor@shortlet.test", true)
	h.register("guest@shortlet.test", false)
	realtorToken := h.login("realtor@shortlet.test", "correct-horse-9")
	guestToken := h.login("guest@shortlet.test", "correct-horse-9")

	listingID := h.publishedListing(realtorToken)
	booking := h.book(guestToken, listingID)
	h.pay(guestToken, booking.BookingID)

	h.now = time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)
	n, err := h.jobs.AdvanceStays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = h.jobs.ReleaseDueEscrows(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.now = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	n, err = h.jobs.AdvanceStays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = h.jobs.ReleaseDueEscrows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	realtorToken = h.login("realtor@shortlet.test", "correct-horse-9")
	rec := h.do(http.MethodGet, "/api/v1/realtor/wallet", realtorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	wallet := decode[struct {
		Balance money `json:"balance"`
	}](t, rec)
	// 90% of the 30,000 room fee plus the whole 5,000 cleaning fee.
	assert.Equal(t, int64(32000), wallet.Balance.Amount)
	assert.Zero(t, h.refundedTotal())

	h.now = time.Date(2026, time.March, 16, 13, 0, 0, 0, time.UTC)
	n, err = h.jobs.ReleaseDueEscrows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(20000), h.refundedTotal())

	n, err = h.jobs.CompleteSettledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	guestToken = h.login("guest@shortlet.test", "correct-horse-9")
	rec = h.do(http.MethodGet, "/api/v1/bookings/"+booking.BookingID, guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[struct {
		Status string `json:"status"`
		Escrow struct {
			State string `json:"state"`
		} `json:"escrow"`
	}](t, rec)
	assert.Equal(t, "COMPLETED", detail.Status)
	assert.Equal(t, "SETTLED", detail.Escrow.State)

	rec = h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/reviews", guestToken, map[string]any{"rating": 4, "text": "Clean and quiet"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/reviews", guestToken, map[string]any{"rating": 5})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/listings/"+listingID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reviews := decode[struct {
		Total int `json:"total"`
		Items []struct {
			Rating int `json:"rating"`
		} `json:"items"`
	}](t, rec)
	assert.Equal(t, 1, reviews.Total)
	require.Len(t, reviews.Items, 1)
	assert.Equal(t, 4, reviews.Items[0].Rating)

	rec = h.do(http.MethodPatch, "/api/v1/bookings/"+booking.BookingID+"/reviews", guestToken, map[string]any{"rating": 2, "text": "Water went off twice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[struct {
		Rating    int        `json:"rating"`
		Text      string     `json:"text"`
		UpdatedAt *time.Time `json:"updated_at"`
	}](t, rec)
	assert.Equal(t, 2, edited.Rating)
	assert.Equal(t, "Water went off twice", edited.Text)
	require.NotNil(t, edited.UpdatedAt)

	rec = h.do(http.MethodGet, "/api/v1/listings/"+listingID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reviews = decode[struct {
		Total int `json:"total"`
		Items []struct {
			Rating int `json:"rating"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, reviews.Items, 1)
	assert.Equal(t, 2, reviews.Items[0].Rating)

	realtorToken = h.login("realtor@shortlet.test", "correct-horse-9")
	rec = h.do(http.MethodPatch, "/api/v1/bookings/"+booking.BookingID+"/reviews", realtorToken, map[string]any{"rating": 5})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	realtorToken = h.login("realtor@shortlet.test", "correct-horse-9")
	rec = h.do(http.MethodPost, "/api/v1/realtor/payouts", realtorToken, map[string]any{"amount": 12000, "recipient_code": "RCP_test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payout := decode[struct {
		Status string `json:"status"`
	}](t, rec)
	assert.Equal(t, "PAID", payout.Status)

	rec = h.do(http.MethodGet, "/api/v1/realtor/wallet", realtorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wallet = decode[struct {
		Balance money `json:"balance"`
	}](t, rec)
	assert.Equal(t, int64(20000), wallet.Balance.Amount)

	rec = h.do(http.MethodPost, "/api/v1/realtor/payouts", realtorToken, map[string]any{"amount": 50000, "recipient_code": "RCP_test"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPayoutStaysPendingWhenTransferResponseIsLost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(h.login("realtor@shortlet.test", "correct-horse-9"))
	booking := h.book(guest.Token, listingID)
	h.pay(guest.Token, booking.BookingID)
	h.releasedStay()

	realtorToken := h.login("realtor@shortlet.test", "correct-horse-9")
	require.Equal(t, int64(32000), h.walletBalance(realtorToken))

	h.gateway.lostTransfers = 1
	rec := h.do(http.MethodPost, "/api/v1/realtor/payouts", realtorToken, map[string]any{"amount": 12000, "recipient_code": "RCP_test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payout := decode[struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		LastError string `json:"last_error"`
	}](t, rec)
	assert.Equal(t, "PENDING", payout.Status)
	assert.Contains(t, payout.LastError, "i/o timeout")
	// The money already left, so the debit must stand.
	assert.Equal(t, int64(20000), h.walletBalance(realtorToken))
	require.Len(t, h.sandbox.Transfers(), 1)

	n, err := h.jobs.RetryDisbursements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec = h.do(http.MethodGet, "/api/v1/realtor/payouts", realtorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payouts := decode[struct {
		Items []struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			GatewayRef string `json:"gateway_ref"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, payouts.Items, 1)
	assert.Equal(t, payout.ID, payouts.Items[0].ID)
	assert.Equal(t, "PAID", payouts.Items[0].Status)
	assert.NotEmpty(t, payouts.Items[0].GatewayRef)

	transfers := h.sandbox.Transfers()
	require.Len(t, transfers, 1)
	assert.Contains(t, transfers, payout.ID)
	assert.Equal(t, int64(20000), h.walletBalance(realtorToken))
}

func TestPayoutRejectedByGatewayRestoresWallet(t *testing.T) {
	h := newHarness(t)
	h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(h.login("realtor@shortlet.test", "correct-horse-9"))
	booking := h.book(guest.Token, listingID)
	h.pay(guest.Token, booking.BookingID)
	h.releasedStay()

	realtorToken := h.login("realtor@shortlet.test", "correct-horse-9")
	h.sandbox.TransferOutcome = policies.GatewayFailed
	rec := h.do(http.MethodPost, "/api/v1/realtor/payouts", realtorToken, map[string]any{"amount": 12000, "recipient_code": "RCP_closed"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"FAILED"`)
	assert.Equal(t, int64(32000), h.walletBalance(realtorToken))
	assert.Empty(t, h.sandbox.Transfers())
}

func TestVerifyPaymentOutcomes(t *testing.T) {
	setup := func(t *testing.T) (*harness, authBody, bookingBody) {
		h := newHarness(t)
		realtor := h.register("realtor@shortlet.test", true)
		guest := h.register("guest@shortlet.test", false)
		booking := h.book(guest.Token, h.publishedListing(realtor.Token))
		return h, guest, booking
	}

	t.Run("amount mismatch keeps booking unpaid", func(t *testing.T) {
		h, guest, booking := setup(t)
		reference := h.checkout(guest.Token, booking.BookingID)
		h.sandbox.PayAmount(reference, sharedmoney.Money{Amount: 40000, Currency: "NGN"})

		verified := h.verify(reference)
		assert.Equal(t, "FAILED", verified.Status)
		assert.Equal(t, "PENDING_PAYMENT", verified.BookingStatus)
		assert.Equal(t, "PENDING", verified.EscrowState)
		assert.False(t, verified.Refunded)
		assert.Zero(t, h.refundedTotal())

		again := h.verify(reference)
		assert.Equal(t, "FAILED", again.Status)
	})

	t.Run("payment after expiry is refunded in full", func(t *testing.T) {
		h, guest, booking := setup(t)
		reference := h.checkout(guest.Token, booking.BookingID)

		h.now = testNow.Add(31 * time.Minute)
		n, err := h.jobs.ExpireUnpaidBookings(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, n)

		h.sandbox.Pay(reference)
		verified := h.verify(reference)
		assert.Equal(t, "SUCCEEDED", verified.Status)
		assert.Equal(t, "EXPIRED", verified.BookingStatus)
		assert.Equal(t, "REFUNDED", verified.EscrowState)
		assert.True(t, verified.Refunded)
		assert.Equal(t, int64(58000), h.refundedTotal())
	})

	t.Run("payment after cancellation is refunded in full", func(t *testing.T) {
		h, guest, booking := setup(t)
		reference := h.checkout(guest.Token, booking.BookingID)

		rec := h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/cancel", guest.Token, map[string]string{"reason": "found another place"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Zero(t, h.refundedTotal())

		h.sandbox.Pay(reference)
		verified := h.verify(reference)
		assert.Equal(t, "CANCELLED", verified.BookingStatus)
		assert.Equal(t, "REFUNDED", verified.EscrowState)
		assert.True(t, verified.Refunded)
		assert.Equal(t, int64(58000), h.refundedTotal())
	})

	t.Run("second payment is refunded without touching escrow", func(t *testing.T) {
		h, guest, booking := setup(t)
		first := h.pay(guest.Token, booking.BookingID)

		second := h.secondCheckout(booking.BookingID, guest.User.ID, 58000)
		h.sandbox.Pay(second)
		verified := h.verify(second)
		assert.Equal(t, "SUCCEEDED", verified.Status)
		assert.Equal(t, "CONFIRMED", verified.BookingStatus)
		assert.Equal(t, "ESCROW_HELD", verified.EscrowState)
		assert.True(t, verified.Refunded)

		refunds := h.sandbox.Refunds()
		require.Len(t, refunds, 1)
		assert.Contains(t, refunds, second+":DUPLICATE_REFUND")
		assert.Equal(t, second, refunds[second+":DUPLICATE_REFUND"].PaymentReference)

		assert.Equal(t, "CONFIRMED", h.verify(first).BookingStatus)
	})
}

func TestDisputesOpenAndResolveOverHTTP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(h.login("realtor@shortlet.test", "correct-horse-9"))
	booking := h.book(guest.Token, listingID)
	h.pay(guest.Token, booking.BookingID)

	h.now = time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)
	_, err := h.jobs.AdvanceStays(ctx)
	require.NoError(t, err)

	guestToken := h.login("guest@shortlet.test", "correct-horse-9")
	rec := h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/disputes", guestToken, map[string]any{"reason": "no hot water", "claim": 10000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	guestDispute := decode[struct {
		ID       string `json:"id"`
		RaisedBy string `json:"raised_by"`
		Status   string `json:"status"`
	}](t, rec)
	assert.Equal(t, "GUEST", guestDispute.RaisedBy)
	assert.Equal(t, "OPEN", guestDispute.Status)
	assert.Equal(t, "DISPUTED", h.bookingDetail(guestToken, booking.BookingID).Escrow.State)

	rec = h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/disputes", guestToken, map[string]any{"reason": "still no hot water"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// A disputed escrow is frozen past its hold period.
	h.now = time.Date(2026, time.March, 12, 12, 0, 0, 0, time.UTC)
	n, err := h.jobs.ReleaseDueEscrows(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	admin := h.login(adminEmail, adminPassword)
	rec = h.do(http.MethodGet, "/api/v1/admin/disputes?status=open", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	open := decode[struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, open.Items, 1)
	assert.Equal(t, guestDispute.ID, open.Items[0].ID)

	guestToken = h.login("guest@shortlet.test", "correct-horse-9")
	rec = h.do(http.MethodPost, "/api/v1/admin/disputes/"+guestDispute.ID+"/resolve", guestToken, map[string]any{"award": 58000})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/admin/disputes/"+guestDispute.ID+"/resolve", admin, map[string]any{"award": 40000})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/admin/disputes/"+guestDispute.ID+"/resolve", admin, map[string]any{"award": 10000, "note": "boiler fault confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decode[struct {
		Dispute struct {
			Status string `json:"status"`
		} `json:"dispute"`
		EscrowState string `json:"escrow_state"`
	}](t, rec)
	assert.Equal(t, "RESOLVED", resolved.Dispute.Status)
	assert.Equal(t, "PARTIALLY_RELEASED", resolved.EscrowState)
	assert.Equal(t, int64(10000), h.refundedTotal())

	rec = h.do(http.MethodPost, "/api/v1/admin/disputes/"+guestDispute.ID+"/resolve", admin, map[string]any{"award": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	realtorToken := h.login("realtor@shortlet.test", "correct-horse-9")
	// 90% of the remaining 20,000 room fee plus the 5,000 cleaning fee.
	assert.Equal(t, int64(23000), h.walletBalance(realtorToken))

	h.now = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	_, err = h.jobs.AdvanceStays(ctx)
	require.NoError(t, err)

	h.now = time.Date(2026, time.March, 14, 13, 0, 0, 0, time.UTC)
	realtorToken = h.login("realtor@shortlet.test", "correct-horse-9")
	rec = h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/disputes", realtorToken, map[string]any{"reason": "broken table", "claim": 5000})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/bookings/"+booking.BookingID+"/disputes", realtorToken, map[string]any{"reason": "broken table", "claim": 5000, "as": "realtor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	realtorDispute := decode[struct {
		ID       string `json:"id"`
		RaisedBy string `json:"raised_by"`
	}](t, rec)
	assert.Equal(t, "REALTOR", realtorDispute.RaisedBy)

	admin = h.login(adminEmail, adminPassword)
	rec = h.do(http.MethodPost, "/api/v1/admin/disputes/"+realtorDispute.ID+"/resolve", admin, map[string]any{"award": 5000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"escrow_state":"SETTLED"`)
	assert.Equal(t, int64(25000), h.refundedTotal())
	assert.Equal(t, int64(28000), h.walletBalance(realtorToken))

	n, err = h.jobs.CompleteSettledBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, h.outbox.Published(), "dispute.opened")
	assert.Contains(t, h.outbox.Published(), "dispute.resolved")
}

func TestDepositRefundRetriedAfterGatewayTrouble(t *testing.T) {
	cases := []struct {
		name    string
		disrupt func(*gateway.Sandbox)
		restore func(*gateway.Sandbox)
	}{
		{
			name:    "gateway down",
			disrupt: func(s *gateway.Sandbox) { s.Down = true },
			restore: func(s *gateway.Sandbox) { s.Down = false },
		},
		{
			name:    "refund still pending at gateway",
			disrupt: func(s *gateway.Sandbox) { s.RefundOutcome = policies.GatewayPending },
			restore: func(s *gateway.Sandbox) { s.RefundOutcome = "" },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.register("realtor@shortlet.test", true)
			guest := h.register("guest@shortlet.test", false)
			listingID := h.publishedListing(h.login("realtor@shortlet.test", "correct-horse-9"))
			booking := h.book(guest.Token, listingID)
			h.pay(guest.Token, booking.BookingID)
			h.releasedStay()

			h.now = time.Date(2026, time.March, 16, 13, 0, 0, 0, time.UTC)
			tc.disrupt(h.sandbox)
			n, err := h.jobs.ReleaseDueEscrows(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Zero(t, h.refundedTotal())

			guestToken := h.login("guest@shortlet.test", "correct-horse-9")
			assert.Equal(t, "PARTIALLY_RELEASED", h.bookingDetail(guestToken, booking.BookingID).Escrow.State)
			n, err = h.jobs.CompleteSettledBookings(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			// Nothing is due any more; only the retry sweep moves the refund.
			n, err = h.jobs.ReleaseDueEscrows(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			tc.restore(h.sandbox)
			n, err = h.jobs.RetryDisbursements(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Equal(t, int64(20000), h.refundedTotal())

			detail := h.bookingDetail(guestToken, booking.BookingID)
			assert.Equal(t, "SETTLED", detail.Escrow.State)
			n, err = h.jobs.CompleteSettledBookings(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			n, err = h.jobs.RetryDisbursements(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestJobsPickDueWorkBeforeApplyingBatchLimit(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.JobBatchSize = 1 })
	ctx := context.Background()
	realtor := h.register("realtor@shortlet.test", true)
	guest := h.register("guest@shortlet.test", false)
	listingID := h.publishedListing(realtor.Token)

	due := h.book(guest.Token, listingID)
	h.pay(guest.Token, due.BookingID)
	h.now = testNow.Add(time.Minute)
	later := h.bookDates(guest.Token, listingID, "2026-03-20", "2026-03-22")
	h.pay(guest.Token, later.BookingID)

	// The newer booking is listed first but is not due.
	h.now = time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)
	n, err := h.jobs.AdvanceStays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	guestToken := h.login("guest@shortlet.test", "correct-horse-9")
	assert.Equal(t, "CHECKED_IN", h.bookingDetail(guestToken, due.BookingID).Status)
	assert.Equal(t, "CONFIRMED", h.bookingDetail(guestToken, later.BookingID).Status)

	h.now = time.Date(2026, time.March, 12, 12, 0, 0, 0, time.UTC)
	n, err = h.jobs.ReleaseDueEscrows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	guestToken = h.login("guest@shortlet.test", "correct-horse-9")
	assert.Equal(t, "PARTIALLY_RELEASED", h.bookingDetail(guestToken, due.BookingID).Escrow.State)
	assert.Equal(t, "ESCROW_HELD", h.bookingDetail(guestToken, later.BookingID).Escrow.State)
}
