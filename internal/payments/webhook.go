package payments

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBody = 65536

// WebhookHandler verifies and dispatches Stripe webhook deliveries.
//
// Contract with the sender: 400 only on a signature/read failure; any
// internal processing failure is logged and still acknowledged with 200,
// so Stripe does not retry-storm an event we cannot process.
type WebhookHandler struct {
	Service       *Service
	WebhookSecret string
}

func (h WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read failed"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		slog.Error("webhook signature verification failed", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			slog.Error("webhook payload unmarshal failed", "event_id", event.ID, "err", err)
			break
		}
		userID := sess.Metadata["user_id"]
		if err := h.Service.CompleteSession(c.Request.Context(), sess.ID, sess.AmountTotal, userID); err != nil {
			slog.Error("checkout settlement failed", "session_id", sess.ID, "err", err)
		}
	default:
		slog.Debug("unhandled webhook event type", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
