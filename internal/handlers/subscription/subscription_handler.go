// Package subscription exposes the ledger read model over HTTP.
package subscription

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kevin07696/billing-orchestrator/internal/handlers/response"
	"github.com/kevin07696/billing-orchestrator/internal/services/ports"
	"go.uber.org/zap"
)

// Handler serves subscription queries
type Handler struct {
	service ports.BillingService
	logger  *zap.Logger
}

// NewHandler creates a new subscription handler
func NewHandler(service ports.BillingService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the subscription endpoints
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/subscriptions/{transactionKey}", h.GetSubscription)
}

// GetSubscription returns the latest ledger row, derived state and net amount
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "transactionKey")

	sub, err := h.service.GetSubscription(r.Context(), key)
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.OK(w, response.Envelope{Data: sub})
}
