package webhook

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kevin07696/billing-orchestrator/internal/domain"
	"github.com/kevin07696/billing-orchestrator/internal/services/billing"
	"github.com/kevin07696/billing-orchestrator/internal/testutil/servicemocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupRouter(t *testing.T) (*servicemocks.MockBillingService, http.Handler) {
	t.Helper()
	svc := new(servicemocks.MockBillingService)
	t.Cleanup(func() { svc.AssertExpectations(t) })

	r := chi.NewRouter()
	NewPortOneHandler(svc, zaptest.NewLogger(t)).RegisterRoutes(r)
	return svc, r
}

func post(t *testing.T, h http.Handler, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHandleEvent_Paid(t *testing.T) {
	svc, h := setupRouter(t)

	event := billing.Event{PaymentID: "pay_1", Status: billing.EventStatusPaid}
	svc.On("HandleEvent", mock.Anything, event).Return(&billing.EventResult{
		Event:   event,
		Outcome: billing.OutcomeRecorded,
		Entry:   &domain.LedgerEntry{TransactionKey: "pay_1", Status: domain.LedgerStatusPaid},
	}, nil)

	code, body := post(t, h, `{"payment_id":"pay_1","status":"Paid"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]interface{}{"success": true}, body)
}

func TestHandleEvent_DuplicateIsSuccess(t *testing.T) {
	svc, h := setupRouter(t)

	event := billing.Event{PaymentID: "pay_1", Status: billing.EventStatusCancelled}
	svc.On("HandleEvent", mock.Anything, event).
		Return(&billing.EventResult{Event: event, Outcome: billing.OutcomeDuplicate}, nil)

	code, body := post(t, h, `{"payment_id":"pay_1","status":"Cancelled"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

func TestHandleEvent_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown status", domain.ErrValidationUnknownStatus, http.StatusBadRequest},
		{"missing payment id", domain.ErrValidationMissingField, http.StatusBadRequest},
		{"no ledger entry", domain.ErrLedgerEntryNotFound, http.StatusNotFound},
		{"in flight", domain.ErrDeliveryInFlight, http.StatusConflict},
		{"provider down", domain.WrapError(domain.ErrorCodeUpstream, "failed to get payment", errors.New("503")), http.StatusInternalServerError},
		{"storage down", domain.WrapError(domain.ErrorCodeStorage, "failed to append", errors.New("conn refused")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, h := setupRouter(t)
			svc.On("HandleEvent", mock.Anything, mock.AnythingOfType("billing.Event")).Return(nil, tt.err)

			code, body := post(t, h, `{"payment_id":"pay_1","status":"Refunded"}`)

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, false, body["success"])
			assert.NotContains(t, body["message"], "conn refused")
		})
	}
}

func TestHandleEvent_MalformedBody(t *testing.T) {
	svc, h := setupRouter(t)

	code, body := post(t, h, `{"payment_id":`)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	svc.AssertNotCalled(t, "HandleEvent", mock.Anything, mock.Anything)
}

func TestHandleEvent_EmptyFieldsReachService(t *testing.T) {
	svc, h := setupRouter(t)
	svc.On("HandleEvent", mock.Anything, billing.Event{}).Return(nil, domain.ErrValidationMissingField)

	code, _ := post(t, h, `{}`)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandleEvent_MethodNotAllowed(t *testing.T) {
	_, h := setupRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
