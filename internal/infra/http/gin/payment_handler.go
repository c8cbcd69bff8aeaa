package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/commands"
	paymentapp "shortlet/internal/app/handlers/payments"
	domainpayments "shortlet/internal/domain/payments"
)

const (
	verifySourceCallback = "callback"
	verifySourceWebhook  = "webhook"
)

type PaymentHTTP interface {
	Verify(c *gin.Context)
	Webhook(c *gin.Context)
}

// PaymentHandler never trusts the caller about payment outcomes; both routes
// only name a reference and the gateway is asked for the truth.
type PaymentHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type webhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

func (h PaymentHandler) Verify(c *gin.Context) {
	cmd := paymentapp.VerifyPaymentCommand{Reference: c.Param("reference"), Source: verifySourceCallback}
	result, err := commands.Dispatch[paymentapp.VerifyPaymentCommand, *paymentapp.VerifyPaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	reference := strings.TrimSpace(req.Data.Reference)
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}
	cmd := paymentapp.VerifyPaymentCommand{Reference: reference, Source: verifySourceWebhook}
	result, err := commands.Dispatch[paymentapp.VerifyPaymentCommand, *paymentapp.VerifyPaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if errors.Is(err, domainpayments.ErrPaymentNotFound) {
			if h.Logger != nil {
				h.Logger.Warn("webhook for unknown payment ignored", "reference", reference, "event", req.Event)
			}
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PaymentHTTP = PaymentHandler{}
