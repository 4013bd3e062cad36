package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// The stream is long-lived and stays outside the request timeout.
		r.Get("/stream", h.ServeStream)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(30 * time.Second))
			r.Get("/events", h.GetEvents)
			r.Get("/analytics", h.GetAnalytics)
			r.Get("/dashboard", h.GetDashboard)
			r.Get("/monitoring", h.GetMonitoring)
			r.Get("/reports/events", h.GetEventsReport)
			r.Get("/reports/analytics", h.GetAnalyticsReport)
			r.Get("/alerts", h.GetAlerts)
			r.Get("/camera/status", h.GetCameraStatus)
			r.Post("/camera/start", h.StartCamera)
			r.Post("/camera/stop", h.StopCamera)
		})
	})
	return r
}
