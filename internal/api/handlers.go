package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/alerting"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/publisher"
	"github.com/bher20/slabbiller/internal/tariffs"
	"github.com/bher20/slabbiller/internal/usage"
	"github.com/bher20/slabbiller/pkg/slab"
)

const maxBodyBytes = 1 << 20

// Handler serves the /api/v1 routes.
type Handler struct {
	svc   *estimate.Service
	pub   *publisher.Publisher
	alert *alerting.Alerter
	log   *zap.Logger
}

// TariffDetail is a tariff together with its expanded slab bands.
type TariffDetail struct {
	tariffs.Descriptor
	Bands []slab.Band `json:"bands"`
}

// ListTariffs lists the configured tariffs
// @Summary List tariffs
// @Tags tariffs
// @Produce json
// @Router /api/v1/tariffs [get]
func (h *Handler) ListTariffs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Tariffs []tariffs.Descriptor `json:"tariffs"`
	}{Tariffs: h.svc.Tariffs()})
}

// GetTariff returns one tariff with its bands
// @Summary Get a tariff
// @Tags tariffs
// @Produce json
// @Param key path string true "Tariff key"
// @Router /api/v1/tariffs/{key} [get]
func (h *Handler) GetTariff(w http.ResponseWriter, r *http.Request) {
	desc, sched, err := h.svc.Tariff(chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TariffDetail{Descriptor: desc, Bands: sched.Bands})
}

// Bill prices a monthly unit total
// @Summary Price monthly units under a tariff
// @Tags tariffs
// @Produce json
// @Param key path string true "Tariff key"
// @Param units query number true "Monthly units (kWh)"
// @Router /api/v1/tariffs/{key}/bill [get]
func (h *Handler) Bill(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("units")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "units query parameter is required"})
		return
	}
	units, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "units must be a number"})
		return
	}

	est, err := h.svc.Bill(r.Context(), chi.URLParam(r, "key"), units)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// ListAppliances lists the appliance catalog
// @Summary List appliances
// @Tags usage
// @Produce json
// @Router /api/v1/appliances [get]
func (h *Handler) ListAppliances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Appliances []usage.Appliance `json:"appliances"`
	}{Appliances: h.svc.Appliances()})
}

// Estimate computes a bill from appliance usage or explicit units
// @Summary Estimate a monthly bill
// @Tags usage
// @Accept json
// @Produce json
// @Param publish query bool false "Also publish the estimate over MQTT"
// @Router /api/v1/estimate [post]
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req estimate.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return
	}

	est, err := h.svc.Estimate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Publication and alerting are best-effort; the estimate is returned either way.
	if publish, _ := strconv.ParseBool(r.URL.Query().Get("publish")); publish && h.pub != nil && h.pub.Enabled() {
		if err := h.pub.Publish(r.Context(), est); err != nil {
			h.log.Warn("publish estimate failed", zap.String("id", est.ID), zap.Error(err))
		}
	}
	if _, err := h.alert.Notify(r.Context(), est); err != nil {
		h.log.Warn("high usage alert failed", zap.String("id", est.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, est)
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, estimate.ErrUnknownTariff):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, slab.ErrInvalidInput),
		errors.Is(err, usage.ErrInvalidUsage),
		errors.Is(err, estimate.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// writeJSON encodes v before committing the status so an unencodable value
// becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
