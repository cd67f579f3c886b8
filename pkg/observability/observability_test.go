package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	broken := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all healthy", func(t *testing.T) {
		hc := NewHealthChecker(healthy).WithCheck("redis", healthy)
		status := hc.Check(context.Background())

		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy"}, status.Checks)
	})

	t.Run("one dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthChecker(healthy).WithCheck("redis", broken).
			HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "unhealthy", status.Status)
		assert.Equal(t, "unhealthy: connection refused", status.Checks["redis"])
	})

	t.Run("unconfigured dependency is not a failure", func(t *testing.T) {
		status := NewHealthChecker(nil).Check(context.Background())

		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "not configured", status.Checks["database"])
	})

	t.Run("slow ping times out", func(t *testing.T) {
		slow := PingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		hc := NewHealthChecker(slow)
		hc.timeout = 10 * time.Millisecond

		assert.Equal(t, "unhealthy", hc.Check(context.Background()).Status)
	})
}

func TestHTTPMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetrics)
	r.Get("/api/subscriptions/{transactionKey}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := httpRequestsTotal.WithLabelValues("/api/subscriptions/{transactionKey}", http.MethodGet, "404")
	before := testutil.ToFloat64(counter)

	for _, key := range []string{"pay_1", "pay_2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/subscriptions/"+key, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.Zero(t, testutil.ToFloat64(httpRequestsInFlight))
}

func TestBusinessMetrics(t *testing.T) {
	events := webhookEventsTotal.WithLabelValues("Paid", "recorded")
	before := testutil.ToFloat64(events)
	RecordWebhookEvent("Paid", "recorded", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(events))

	warnings := reconciliationWarningsTotal.WithLabelValues("Paid", "schedule_create")
	before = testutil.ToFloat64(warnings)
	RecordReconciliationWarning("Paid", "schedule_create")
	assert.Equal(t, before+1, testutil.ToFloat64(warnings))

	appends := ledgerAppendsTotal.WithLabelValues("Cancel")
	before = testutil.ToFloat64(appends)
	RecordLedgerAppend("Cancel")
	assert.Equal(t, before+1, testutil.ToFloat64(appends))

	provider := providerRequestsTotal.WithLabelValues("get_payment", "success")
	before = testutil.ToFloat64(provider)
	RecordProviderRequest("get_payment", "success", 30*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(provider))

	guard := deliveryGuardTotal.WithLabelValues("in_flight")
	before = testutil.ToFloat64(guard)
	RecordDeliveryGuard("in_flight")
	assert.Equal(t, before+1, testutil.ToFloat64(guard))
}

func TestMetricsServer(t *testing.T) {
	srv := NewMetricsServer(":0", NewHealthChecker(PingFunc(func(context.Context) error { return nil })))

	for path, want := range map[string]int{
		"/metrics": http.StatusOK,
		"/health":  http.StatusOK,
		"/ready":   http.StatusOK,
		"/missing": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}

	RecordWebhookEvent("Cancelled", "duplicate", time.Millisecond)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "billing_webhook_events_total")
}
