package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/alerting"
	"github.com/bher20/slabbiller/internal/api/swagger"
	"github.com/bher20/slabbiller/internal/estimate"
	"github.com/bher20/slabbiller/internal/metrics"
	"github.com/bher20/slabbiller/internal/publisher"
)

// NewRouter wires the estimate service, metrics, docs and health endpoints.
// pub and alert may be nil.
func NewRouter(svc *estimate.Service, pub *publisher.Publisher, alert *alerting.Alerter, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{svc: svc, pub: pub, alert: alert, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(instrument)

	// Metrics endpoint.
	r.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := svc.Tariff(""); err != nil {
			log.Warn("readyz: default tariff unavailable", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Get("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tariffs", h.ListTariffs)
		r.Get("/tariffs/{key}", h.GetTariff)
		r.Get("/tariffs/{key}/bill", h.Bill)
		r.Get("/appliances", h.ListAppliances)
		r.Post("/estimate", h.Estimate)
	})

	r.Mount("/swagger", swagger.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusFound)
	})

	return r
}

// instrument records request count, latency and error responses labelled by
// the matched route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.ObserveRequest(route, r.Method, start)
		if status := ww.Status(); status >= http.StatusBadRequest {
			metrics.RequestErrorsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
	})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
