package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"seizowatch/internal/analytics"
	"seizowatch/internal/camera"
	"seizowatch/internal/models"
	"seizowatch/internal/query"
	"seizowatch/internal/report"
)

type LiveView interface {
	Events() ([]models.SeizureEvent, bool)
	Sample() (*models.MonitoringSample, bool)
	LastError(path string) (string, time.Time)
	EventsPath() string
	MonitoringPath() string
	SubscribeEvents(onData func([]models.SeizureEvent), onError func(error)) func()
	SubscribeMonitoring(onData func(*models.MonitoringSample), onError func(error)) func()
}

type CameraController interface {
	Status(ctx context.Context) (models.CameraStatus, error)
	Start(ctx context.Context) (models.CameraActionResult, error)
	Stop(ctx context.Context) (models.CameraActionResult, error)
}

type AlertLog interface {
	RecentAlerts(limit int) ([]models.AlertRecord, error)
}

type Handler struct {
	live   LiveView
	camera CameraController
	alerts AlertLog
	Now    func() time.Time
}

// NewHandler wires the request handlers. alerts may be nil; the alert
// history endpoint then answers 404.
func NewHandler(live LiveView, cam CameraController, alerts AlertLog) *Handler {
	return &Handler{live: live, camera: cam, alerts: alerts, Now: time.Now}
}

const defaultAlertLimit = 50

const errNotReady = "waiting for first snapshot"

type eventsResponse struct {
	Events            []models.SeizureEvent  `json:"events"`
	Count             int                    `json:"count"`
	Stats             *models.SelectionStats `json:"stats"`
	SubscriptionError string                 `json:"subscription_error,omitempty"`
}

type analyticsResponse struct {
	Summary           *models.AnalyticsSummary `json:"summary"`
	SubscriptionError string                   `json:"subscription_error,omitempty"`
}

type dashboardResponse struct {
	models.DashboardOverview
	SubscriptionError string `json:"subscription_error,omitempty"`
}

type monitoringResponse struct {
	Sample            *models.MonitoringSample `json:"sample"`
	SubscriptionError string                   `json:"subscription_error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// parseFilter reads filter, range and q from the query string.
func parseFilter(values url.Values) (query.Filter, error) {
	verification, err := query.ParseVerification(values.Get("filter"))
	if err != nil {
		return query.Filter{}, err
	}
	dateRange, err := query.ParseDateRange(values.Get("range"))
	if err != nil {
		return query.Filter{}, err
	}
	return query.Filter{Verification: verification, Range: dateRange, Search: values.Get("q")}, nil
}

// readyEvents writes 503 and returns false until the first snapshot arrived.
func (h *Handler) readyEvents(w http.ResponseWriter) ([]models.SeizureEvent, bool) {
	events, ready := h.live.Events()
	if !ready {
		respondError(w, http.StatusServiceUnavailable, h.notReadyMessage(h.live.EventsPath()))
		return nil, false
	}
	return events, true
}

func (h *Handler) notReadyMessage(path string) string {
	if msg, _ := h.live.LastError(path); msg != "" {
		return msg
	}
	return errNotReady
}

func (h *Handler) eventsError() string {
	msg, _ := h.live.LastError(h.live.EventsPath())
	return msg
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, ok := h.readyEvents(w)
	if !ok {
		return
	}
	filtered := query.Query(events, f, h.Now())
	respondJSON(w, http.StatusOK, eventsResponse{
		Events:            filtered,
		Count:             len(filtered),
		Stats:             analytics.Selection(filtered),
		SubscriptionError: h.eventsError(),
	})
}

func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	events, ok := h.readyEvents(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, analyticsResponse{
		Summary:           analytics.Summarize(events, h.Now()),
		SubscriptionError: h.eventsError(),
	})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	events, ok := h.readyEvents(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, dashboardResponse{
		DashboardOverview: analytics.Overview(events, h.Now()),
		SubscriptionError: h.eventsError(),
	})
}

func (h *Handler) GetMonitoring(w http.ResponseWriter, r *http.Request) {
	path := h.live.MonitoringPath()
	sample, ready := h.live.Sample()
	if !ready {
		respondError(w, http.StatusServiceUnavailable, h.notReadyMessage(path))
		return
	}
	msg, _ := h.live.LastError(path)
	respondJSON(w, http.StatusOK, monitoringResponse{Sample: sample, SubscriptionError: msg})
}

func (h *Handler) GetEventsReport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, ok := h.readyEvents(w)
	if !ok {
		return
	}
	now := h.Now()
	respondText(w, report.EventsReport(query.Query(events, f, now), now))
}

func (h *Handler) GetAnalyticsReport(w http.ResponseWriter, r *http.Request) {
	events, ok := h.readyEvents(w)
	if !ok {
		return
	}
	now := h.Now()
	respondText(w, report.AnalyticsReport(analytics.Summarize(events, now), now))
}

func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		respondError(w, http.StatusNotFound, "alert history not available")
		return
	}
	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := h.alerts.RecentAlerts(limit)
	if err != nil {
		log.Printf("Failed to read alert history: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read alert history")
		return
	}
	if records == nil {
		records = []models.AlertRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": records, "count": len(records)})
}

func (h *Handler) GetCameraStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.camera.Status(r.Context())
	if err != nil {
		h.cameraError(w, err, false)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) StartCamera(w http.ResponseWriter, r *http.Request) {
	result, err := h.camera.Start(r.Context())
	if err != nil {
		h.cameraError(w, err, true)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) StopCamera(w http.ResponseWriter, r *http.Request) {
	result, err := h.camera.Stop(r.Context())
	if err != nil {
		h.cameraError(w, err, true)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// cameraError relays refusals from the control API with their status and
// message; transport failures become 502.
func (h *Handler) cameraError(w http.ResponseWriter, err error, action bool) {
	var actionErr *camera.ActionError
	if errors.As(err, &actionErr) {
		if action {
			respondJSON(w, actionErr.StatusCode, models.CameraActionResult{Success: false, Message: actionErr.Message})
			return
		}
		respondError(w, actionErr.StatusCode, actionErr.Message)
		return
	}
	log.Printf("Camera API unavailable: %v", err)
	respondError(w, http.StatusBadGateway, "camera API unavailable")
}
