package ginserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlet/internal/app/middleware"
	"shortlet/internal/app/policies"
	authsvc "shortlet/internal/app/services/auth"
	domainbooking "shortlet/internal/domain/booking"
	domainescrow "shortlet/internal/domain/escrow"
	domainlistings "shortlet/internal/domain/listings"
	domainuser "shortlet/internal/domain/user"
)

func TestStatusForWrappedErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: %w", middleware.ErrValidation, errors.New("guests is required")), http.StatusBadRequest},
		{"credentials", authsvc.ErrInvalidCredentials, http.StatusUnauthorized},
		{"blocked", fmt.Errorf("login: %w", domainuser.ErrBlocked), http.StatusForbidden},
		{"missing listing", fmt.Errorf("load: %w", domainlistings.ErrListingNotFound), http.StatusNotFound},
		{"overlap", domainbooking.ErrDatesUnavailable, http.StatusConflict},
		{"escrow state", fmt.Errorf("release: %w", domainescrow.ErrHoldPeriodActive), http.StatusConflict},
		{"gateway", fmt.Errorf("%w: timeout", policies.ErrGateway), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, nil, errors.New("mongo: connection reset"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, nil, domainbooking.ErrDatesUnavailable)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domainbooking.ErrDatesUnavailable.Error(), body["error"])
}
