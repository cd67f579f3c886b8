package portone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	pkgerrors "github.com/kevin07696/billing-orchestrator/pkg/errors"
	"github.com/kevin07696/billing-orchestrator/pkg/observability"
	"github.com/kevin07696/billing-orchestrator/pkg/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds PortOne API settings
type Config struct {
	BaseURL   string
	APISecret string
	StoreID   string
	// Timeout bounds each call, including reading the response body
	Timeout time.Duration

	// MaxRetries is how many extra attempts a read (GET) gets after a
	// retriable failure. Writes are never retried.
	MaxRetries int
	Backoff    resilience.BackoffStrategy
}

// DefaultTimeout is the per-call bound when Config.Timeout is unset
const DefaultTimeout = 5 * time.Second

// PaymentAdapter implements ports.PaymentGateway for the PortOne v2 REST API
type PaymentAdapter struct {
	httpClient ports.HTTPClient
	breaker    *CircuitBreaker
	logger     *zap.Logger
	config     Config
}

// NewPaymentAdapter creates a PortOne adapter. A nil breaker gets the default
// configuration, counting only transport failures and 5xx answers.
func NewPaymentAdapter(config Config, httpClient ports.HTTPClient, breaker *CircuitBreaker, logger *zap.Logger) *PaymentAdapter {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Backoff == nil {
		config.Backoff = resilience.ProviderBackoff()
	}

	if breaker == nil {
		cbConfig := DefaultCircuitBreakerConfig()
		cbConfig.IsFailure = IsBreakerFailure
		breaker = NewCircuitBreaker(cbConfig)
	}

	return &PaymentAdapter{
		config:     config,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

// IsBreakerFailure reports whether err indicates the provider is unhealthy.
// A 4xx means the provider is up and refused this particular request.
func IsBreakerFailure(err error) bool {
	var pe *pkgerrors.ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode >= 500
	}
	return true
}

// GetPayment implements PaymentGateway.GetPayment
func (a *PaymentAdapter) GetPayment(ctx context.Context, paymentID string) (*ports.PaymentInfo, error) {
	if paymentID == "" {
		return nil, pkgerrors.NewValidationError("payment_id", "payment id is required")
	}

	var query url.Values
	if a.config.StoreID != "" {
		query = url.Values{"storeId": {a.config.StoreID}}
	}

	var resp paymentResponse
	if err := a.makeRequest(ctx, OpGetPayment, http.MethodGet, "/payments/"+url.PathEscape(paymentID), query, nil, &resp); err != nil {
		return nil, err
	}

	if resp.ID == "" || resp.Amount == nil {
		return nil, pkgerrors.NewMalformedResponseError(OpGetPayment, "payment id or amount missing")
	}
	total, err := minorUnits(OpGetPayment, resp.Amount.Total)
	if err != nil {
		return nil, err
	}

	info := &ports.PaymentInfo{
		ID:          resp.ID,
		Status:      ports.PaymentStatus(resp.Status),
		BillingKey:  resp.BillingKey,
		OrderName:   resp.OrderName,
		TotalAmount: total,
		Currency:    resp.Currency,
	}
	if resp.PaidAt != nil {
		info.PaidAt = resp.PaidAt.UTC()
	}
	if resp.Customer != nil {
		info.Customer = &ports.Customer{ID: resp.Customer.ID, Email: resp.Customer.Email}
		if resp.Customer.Name != nil {
			info.Customer.Name = resp.Customer.Name.Full
		}
	}

	return info, nil
}

// CreateScheduledCharge implements PaymentGateway.CreateScheduledCharge
func (a *PaymentAdapter) CreateScheduledCharge(ctx context.Context, req *ports.ScheduleChargeRequest) (*ports.ScheduledCharge, error) {
	if req.ScheduleID == "" {
		return nil, pkgerrors.NewValidationError("schedule_id", "schedule id is required")
	}
	if req.BillingKey == "" {
		return nil, pkgerrors.NewValidationError("billing_key", "billing key is required")
	}

	apiReq := createScheduleRequest{
		Payment: schedulePayment{
			StoreID:    a.config.StoreID,
			BillingKey: req.BillingKey,
			OrderName:  req.OrderName,
			Customer:   toCustomerBody(req.Customer),
			Amount:     requestAmount{Total: req.Amount},
			Currency:   defaultCurrency,
		},
		TimeToPay: req.TimeToPay.UTC(),
	}

	var resp createScheduleResponse
	endpoint := "/payments/" + url.PathEscape(req.ScheduleID) + "/schedule"
	if err := a.makeRequest(ctx, OpCreateSchedule, http.MethodPost, endpoint, nil, apiReq, &resp); err != nil {
		return nil, err
	}

	return &ports.ScheduledCharge{ScheduleID: resp.Schedule.ID}, nil
}

// ListScheduled implements PaymentGateway.ListScheduled
func (a *PaymentAdapter) ListScheduled(ctx context.Context, billingKey string, from, until time.Time) ([]ports.ScheduleItem, error) {
	if billingKey == "" {
		return nil, pkgerrors.NewValidationError("billing_key", "billing key is required")
	}

	filter, err := json.Marshal(listSchedulesRequest{
		Page: pageInput{Number: 0, Size: listSchedulesPageLen},
		Filter: scheduleFilter{
			StoreID:    a.config.StoreID,
			BillingKey: billingKey,
			From:       from.UTC(),
			Until:      until.UTC(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule filter: %w", err)
	}

	var resp listSchedulesResponse
	query := url.Values{"requestBody": {string(filter)}}
	if err := a.makeRequest(ctx, OpListSchedules, http.MethodGet, "/payment-schedules", query, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]ports.ScheduleItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, ports.ScheduleItem{
			ID:        it.ID,
			PaymentID: it.PaymentID,
			Status:    it.Status,
			TimeToPay: it.TimeToPay.UTC(),
		})
	}

	return items, nil
}

// CancelScheduled implements PaymentGateway.CancelScheduled
func (a *PaymentAdapter) CancelScheduled(ctx context.Context, scheduleIDs []string) ([]string, error) {
	if len(scheduleIDs) == 0 {
		return nil, pkgerrors.NewValidationError("schedule_ids", "at least one schedule id is required")
	}

	var resp cancelSchedulesResponse
	apiReq := cancelSchedulesRequest{StoreID: a.config.StoreID, ScheduleIDs: scheduleIDs}
	if err := a.makeRequest(ctx, OpCancelSchedules, http.MethodDelete, "/payment-schedules", nil, apiReq, &resp); err != nil {
		return nil, err
	}

	return resp.RevokedScheduleIDs, nil
}

// ChargeBillingKey implements PaymentGateway.ChargeBillingKey
func (a *PaymentAdapter) ChargeBillingKey(ctx context.Context, req *ports.BillingKeyChargeRequest) (*ports.BillingKeyChargeResult, error) {
	if req.PaymentID == "" {
		return nil, pkgerrors.NewValidationError("payment_id", "payment id is required")
	}

	apiReq := billingKeyPaymentRequest{
		StoreID:    a.config.StoreID,
		BillingKey: req.BillingKey,
		OrderName:  req.OrderName,
		Customer:   toCustomerBody(req.Customer),
		Amount:     requestAmount{Total: req.Amount},
		Currency:   defaultCurrency,
	}

	var resp billingKeyPaymentResponse
	endpoint := "/payments/" + url.PathEscape(req.PaymentID) + "/billing-key"
	if err := a.makeRequest(ctx, OpChargeBillingKey, http.MethodPost, endpoint, nil, apiReq, &resp); err != nil {
		return nil, err
	}

	result := &ports.BillingKeyChargeResult{PaymentID: req.PaymentID, Payment: resp.Payment}
	if raw, ok := resp.Payment["paidAt"].(string); ok {
		if paidAt, err := time.Parse(time.RFC3339, raw); err == nil {
			paidAt = paidAt.UTC()
			result.PaidAt = &paidAt
		}
	}

	return result, nil
}

// CancelPayment implements PaymentGateway.CancelPayment
func (a *PaymentAdapter) CancelPayment(ctx context.Context, paymentID, reason string) error {
	if paymentID == "" {
		return pkgerrors.NewValidationError("payment_id", "payment id is required")
	}

	apiReq := cancelPaymentRequest{StoreID: a.config.StoreID, Reason: reason}
	endpoint := "/payments/" + url.PathEscape(paymentID) + "/cancel"
	return a.makeRequest(ctx, OpCancelPayment, http.MethodPost, endpoint, nil, apiReq, nil)
}

// makeRequest sends one request through the circuit breaker under the per-call timeout
func (a *PaymentAdapter) makeRequest(ctx context.Context, operation, method, endpoint string, query url.Values, request, response interface{}) error {
	retries := 0
	if method == http.MethodGet {
		retries = a.config.MaxRetries
	}

	for attempt := 0; ; attempt++ {
		err := a.attempt(ctx, operation, method, endpoint, query, request, response)
		if err == nil || attempt >= retries || !isRetriable(err) {
			return err
		}

		delay := a.config.Backoff.NextDelay(attempt)
		a.logger.Info("Retrying PortOne request",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if serr := resilience.Sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

func (a *PaymentAdapter) attempt(ctx context.Context, operation, method, endpoint string, query url.Values, request, response interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	err := a.breaker.Call(func() error {
		return a.doRequest(ctx, operation, method, endpoint, query, request, response)
	})
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		observability.RecordProviderRequest(operation, "circuit_open", time.Since(start))
		a.logger.Warn("PortOne circuit open, request not sent",
			zap.String("operation", operation),
			zap.String("circuit_state", a.breaker.State().String()),
		)
		return pkgerrors.NewTransportError(operation, err)
	}

	observability.RecordProviderRequest(operation, resultLabel(err), time.Since(start))
	if err != nil {
		a.logger.Warn("PortOne request failed",
			zap.String("operation", operation),
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}

	return err
}

// isRetriable reports failures a repeated read may get past. An open
// circuit is not retried.
func isRetriable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		return false
	}
	var pe *pkgerrors.ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetriable()
	}
	var te *pkgerrors.TransportError
	return errors.As(err, &te)
}

func (a *PaymentAdapter) doRequest(ctx context.Context, operation, method, endpoint string, query url.Values, request, response interface{}) error {
	var body io.Reader
	if request != nil {
		payload, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	target := a.config.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", authorizationScheme+" "+a.config.APISecret)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	a.logger.Debug("Sending PortOne request",
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.NewTransportError(operation, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return pkgerrors.NewTransportError(operation, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var apiErr errorResponse
		_ = json.Unmarshal(respBody, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(httpResp.StatusCode)
		}
		return pkgerrors.NewProviderError(operation, httpResp.StatusCode, apiErr.Type, apiErr.Message)
	}

	if response == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, response); err != nil {
		return pkgerrors.NewMalformedResponseError(operation, fmt.Sprintf("failed to decode response: %v", err))
	}

	return nil
}

// minorUnits converts a KRW amount to an integer, rejecting fractional values
func minorUnits(operation string, amount decimal.Decimal) (int64, error) {
	if !amount.IsInteger() {
		return 0, pkgerrors.NewMalformedResponseError(operation, fmt.Sprintf("non-integral amount %s", amount.String()))
	}
	return amount.IntPart(), nil
}

func toCustomerBody(c *ports.Customer) *customerBody {
	if c == nil || c.ID == "" {
		return nil
	}
	body := &customerBody{ID: c.ID, Email: c.Email}
	if c.Name != "" {
		body.Name = &customerName{Full: c.Name}
	}
	return body
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case pkgerrors.IsTransportError(err):
		return "transport_error"
	default:
		return "rejected"
	}
}
