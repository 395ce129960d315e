// internal/handlers/webhook.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/services"
	"github.com/arborvest/arbor-backend/internal/utils"
)

// WebhookHandler receives payment gateway callbacks. It lives outside the
// authenticated API surface; authenticity comes from the gateway signature.
type WebhookHandler struct {
	cfg            *config.Config
	webhookService *services.WebhookService
}

func NewWebhookHandler(cfg *config.Config, webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		cfg:            cfg,
		webhookService: webhookService,
	}
}

// POST /webhooks/stripe
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read request body", nil)
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.cfg.Payment.StripeWebhookSecret)
	if err != nil {
		logrus.WithError(err).Warn("Rejected webhook with invalid signature")
		utils.BadRequestResponse(c, "Invalid webhook signature", nil)
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Warn("Malformed webhook payload")
		utils.BadRequestResponse(c, "Malformed event payload", nil)
		return
	}

	err = h.webhookService.HandleEvent(c.Request.Context(), event.ID, string(event.Type), intent.ID, payload)
	if err != nil {
		// A duplicate delivery is acknowledged so the gateway stops
		// retrying; anything else returns 5xx to request a retry.
		if services.IsCode(err, services.ErrCodeAlreadyProcessed) {
			utils.SuccessResponse(c, gin.H{"received": true, "duplicate": true})
			return
		}
		logrus.WithError(err).WithField("event_id", event.ID).Error("Webhook processing failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, string(services.ErrCodeInternal), "Webhook processing failed", nil)
		return
	}

	utils.SuccessResponse(c, gin.H{"received": true})
}
