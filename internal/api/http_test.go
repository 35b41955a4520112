package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/alerting"
	"github.com/bher20/slabbiller/internal/config"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/tariffs"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouterWithAlerter(t, nil)
}

func newRouterWithAlerter(t *testing.T, alert *alerting.Alerter) http.Handler {
	t.Helper()
	svc, err := estimate.NewService(estimate.Config{
		Tariffs: []tariffs.Descriptor{
			{Key: tariffs.DefaultKey, Name: "Residential", Currency: "Rs.", Boundaries: []float64{100, 100, 100}, Rates: []float64{20, 30, 40, 50}},
		},
	}, zap.NewNop())
	require.NoError(t, err)
	return NewRouter(svc, nil, alert, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t)
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready", "/livez": "live"} {
		rec := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodGet, "/api/v1/tariffs/pk-residential/bill?units=10", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "slabbiller_estimates_total")
}

func TestListTariffs(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/api/v1/tariffs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Tariffs []tariffs.Descriptor `json:"tariffs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tariffs, 1)
	assert.Equal(t, tariffs.DefaultKey, body.Tariffs[0].Key)
}

func TestGetTariff(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/tariffs/pk-residential", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail TariffDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Bands, 4)
	assert.Equal(t, "0-100", detail.Bands[0].Label)
	assert.Equal(t, "300+", detail.Bands[3].Label)
	assert.Nil(t, detail.Bands[3].To)

	rec = do(t, h, http.MethodGet, "/api/v1/tariffs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestBill(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/api/v1/tariffs/pk-residential/bill?units=350", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var est estimate.Estimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.Equal(t, 11500.0, est.TotalCost)
	assert.Equal(t, 350.0, est.MonthlyUnits)
	require.Len(t, est.Slabs, 4)
	assert.Equal(t, 2500.0, est.Slabs[3].Cost)
}

func TestBill_BadRequests(t *testing.T) {
	h := newTestRouter(t)
	cases := map[string]int{
		"/api/v1/tariffs/pk-residential/bill":            http.StatusBadRequest,
		"/api/v1/tariffs/pk-residential/bill?units=abc":  http.StatusBadRequest,
		"/api/v1/tariffs/pk-residential/bill?units=-1":   http.StatusBadRequest,
		"/api/v1/tariffs/pk-residential/bill?units=NaN":  http.StatusBadRequest,
		"/api/v1/tariffs/missing/bill?units=10":          http.StatusNotFound,
		"/api/v1/tariffs/pk-residential/bill?units=+Inf": http.StatusBadRequest,
	}
	for target, want := range cases {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, want, rec.Code, target)
	}
}

func TestBill_CostOverflow(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/v1/tariffs/pk-residential/bill?units=1e308", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "overflows")

	rec = do(t, h, http.MethodPost, "/api/v1/estimate", `{"units":1e308}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"total_cost": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestListAppliances(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/api/v1/appliances", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Fan"`)
	assert.Contains(t, rec.Body.String(), `"always_on":true`)
}

func TestEstimate_Usage(t *testing.T) {
	body := `{"usage":[{"appliance":"Fan","quantity":2,"hours_per_day":10}]}`
	rec := do(t, newTestRouter(t), http.MethodPost, "/api/v1/estimate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var est estimate.Estimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	// 2 x 120W x 10h = 2.4 kWh/day, 72 units/month.
	assert.InDelta(t, 2.4, est.DailyKWh, 1e-9)
	assert.InDelta(t, 72, est.MonthlyUnits, 1e-9)
	assert.InDelta(t, 1440, est.TotalCost, 1e-9)
	assert.NotEmpty(t, est.Tips)
}

func TestEstimate_DefaultProfile(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/api/v1/estimate?publish=true", `{"default_profile":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var est estimate.Estimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.InDelta(t, 591.6, est.MonthlyUnits, 1e-9)
	assert.Equal(t, "high", string(est.Insight.Level))
}

func TestEstimate_BadRequests(t *testing.T) {
	h := newTestRouter(t)
	cases := map[string]int{
		`not json`:                                         http.StatusBadRequest,
		`{"unknown_field":1}`:                              http.StatusBadRequest,
		`{"usage":[{"appliance":"Toaster","quantity":1}]}`: http.StatusBadRequest,
		`{"units":10,"default_profile":true}`:              http.StatusBadRequest,
		`{"units":-3}`:                                     http.StatusBadRequest,
		`{"tariff":"missing","units":10}`:                  http.StatusNotFound,
	}
	for body, want := range cases {
		rec := do(t, h, http.MethodPost, "/api/v1/estimate", body)
		assert.Equal(t, want, rec.Code, body)
	}
}

func TestEstimate_MethodNotAllowed(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/api/v1/estimate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSwagger(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/swagger/openapi.yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/estimate")

	rec = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/swagger/", rec.Header().Get("Location"))
}

func TestEstimate_SendsHighUsageAlert(t *testing.T) {
	var hits int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	h := newRouterWithAlerter(t, alerting.New(config.AlertConfig{WebhookURL: hook.URL, MinUnits: 300}, zap.NewNop()))

	rec := do(t, h, http.MethodPost, "/api/v1/estimate", `{"units":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))

	rec = do(t, h, http.MethodPost, "/api/v1/estimate", `{"default_profile":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestEstimate_AlertFailureStillReturnsEstimate(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer hook.Close()

	h := newRouterWithAlerter(t, alerting.New(config.AlertConfig{WebhookURL: hook.URL}, zap.NewNop()))
	rec := do(t, h, http.MethodPost, "/api/v1/estimate", `{"units":50}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
