package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/prepaid-recharge/internal/observability"
	"github.com/ayo6706/prepaid-recharge/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler receives order lifecycle events from the storefront.
type WebhookHandler struct {
	webhookSvc *service.OrderWebhookService
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(webhookSvc *service.OrderWebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc: webhookSvc,
	}
}

// HandleOrderCompleted handles POST /v1/webhooks/order-completed.
// It verifies the HMAC signature and schedules balance adjustments for the
// order's add-credit items.
func (h *WebhookHandler) HandleOrderCompleted(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		observability.IncrementWebhook("read_error")
		RespondError(w, r, http.StatusBadRequest, "webhook/unreadable-body", "Failed to read request body")
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")

	resp, err := h.webhookSvc.HandleOrderCompleted(r.Context(), body, signature)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			observability.IncrementWebhook("invalid_signature")
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
			return
		}
		zap.L().Error("process order webhook failed", zap.Error(err))
		observability.IncrementWebhook("error")
		RespondError(w, r, http.StatusBadRequest, "webhook/invalid-payload", err.Error())
		return
	}

	observability.IncrementWebhook("accepted")
	RespondJSON(w, http.StatusAccepted, resp)
}
