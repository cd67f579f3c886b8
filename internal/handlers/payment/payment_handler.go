// Package payment exposes billing-key charges and payment cancellation over HTTP.
package payment

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/kevin07696/billing-orchestrator/internal/handlers/response"
	"github.com/kevin07696/billing-orchestrator/internal/services/ports"
	"go.uber.org/zap"
)

type customer struct {
	ID string `json:"id" validate:"required"`
}

type chargeRequest struct {
	BillingKey string   `json:"billingKey" validate:"required"`
	OrderName  string   `json:"orderName" validate:"required"`
	Customer   customer `json:"customer"`
	Amount     int64    `json:"amount" validate:"gt=0"`
}

type cancelRequest struct {
	TransactionKey string `json:"transactionKey" validate:"required"`
	Reason         string `json:"reason"`
}

// Handler serves the payment endpoints
type Handler struct {
	service  ports.PaymentService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(service ports.PaymentService, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: response.NewValidator(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the payment endpoints
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/", h.Charge)
		r.Post("/cancel", h.Cancel)
	})
}

// Charge bills a stored billing key immediately
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := response.Decode(r, &req, h.validate); err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	h.logger.Info("Charge request received",
		zap.String("customer_id", req.Customer.ID),
		zap.Int64("amount", req.Amount),
	)

	resp, err := h.service.Charge(r.Context(), &ports.ChargeRequest{
		BillingKey: req.BillingKey,
		OrderName:  req.OrderName,
		CustomerID: req.Customer.ID,
		Amount:     req.Amount,
	})
	if err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.OK(w, response.Envelope{PaymentID: resp.PaymentID, Data: resp.Payment})
}

// Cancel asks the provider to cancel a captured payment
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := response.Decode(r, &req, h.validate); err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	h.logger.Info("Cancel request received", zap.String("transaction_key", req.TransactionKey))

	if err := h.service.Cancel(r.Context(), &ports.CancelRequest{
		TransactionKey: req.TransactionKey,
		Reason:         req.Reason,
	}); err != nil {
		response.Error(w, r, err, h.logger)
		return
	}

	response.OK(w, response.Envelope{})
}
