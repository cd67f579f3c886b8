// Package webhook receives payment provider notifications.
package webhook

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/billing-orchestrator/internal/handlers/response"
	"github.com/kevin07696/billing-orchestrator/internal/services/billing"
	"github.com/kevin07696/billing-orchestrator/internal/services/ports"
	"go.uber.org/zap"
)

// Path is where the provider delivers webhooks
const Path = "/api/portone"

// eventRequest is the webhook body. Field checks beyond JSON shape happen in
// the billing service so every rejection is counted the same way.
type eventRequest struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// PortOneHandler turns webhook deliveries into billing events
type PortOneHandler struct {
	service  ports.BillingService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPortOneHandler creates a new webhook handler
func NewPortOneHandler(service ports.BillingService, logger *zap.Logger) *PortOneHandler {
	return &PortOneHandler{
		service:  service,
		validate: response.NewValidator(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the webhook endpoint
func (h *PortOneHandler) RegisterRoutes(r chi.Router) {
	r.Post(Path, h.HandleEvent)
}

// HandleEvent answers {"success": bool}. The provider retries anything that
// is not a 2xx, so 200 is only sent once the ledger reflects the event.
func (h *PortOneHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := response.Decode(r, &req, h.validate); err != nil {
		h.logger.Warn("Rejected malformed webhook", zap.Error(err))
		response.Error(w, r, err, h.logger)
		return
	}

	event := billing.Event{
		PaymentID: req.PaymentID,
		Status:    billing.EventStatus(req.Status),
	}

	result, err := h.service.HandleEvent(r.Context(), event)
	if err != nil {
		h.logger.Info("Webhook not applied",
			zap.String("payment_id", event.PaymentID),
			zap.String("status", req.Status),
			zap.Int("http_status", response.StatusFor(err)),
			zap.Error(err),
		)
		response.Error(w, r, err, h.logger)
		return
	}

	fields := []zap.Field{
		zap.String("payment_id", event.PaymentID),
		zap.String("status", req.Status),
		zap.String("outcome", string(result.Outcome)),
	}
	if result.Entry != nil {
		fields = append(fields, zap.String("transaction_key", result.Entry.TransactionKey))
	}
	if len(result.Warnings) > 0 {
		fields = append(fields, zap.Int("warnings", len(result.Warnings)))
	}
	h.logger.Info("Webhook applied", fields...)

	response.OK(w, response.Envelope{})
}
