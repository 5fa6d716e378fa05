package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/neexbeast/skycast/internal/dashboard"
	"github.com/neexbeast/skycast/internal/weather"
)

const maxSearchBody = 1 << 10

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	dash DashboardController
	log  *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(dash DashboardController, log *slog.Logger) *Handlers {
	return &Handlers{dash: dash, log: log}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type searchRequest struct {
	City string `json:"city"`
}

// Search handles POST /api/v1/search.
// Runs one search cycle and returns the rendered dashboard; the advisory
// region is still loading and is picked up through GET /api/v1/dashboard.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSearchBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.City == "" {
		req.City = r.URL.Query().Get("city")
	}

	snap, err := h.dash.Search(r.Context(), req.City)
	if err != nil {
		status := searchStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("search failed", "city", req.City, "request_id", middleware.GetReqID(r.Context()), "err", err)
		}
		writeJSON(w, status, map[string]string{"error": dashboard.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// searchStatus maps a search failure onto an HTTP status code.
func searchStatus(err error) int {
	var upstream *weather.UpstreamError
	switch {
	case errors.Is(err, dashboard.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &upstream) && upstream.Code == http.StatusNotFound:
		return http.StatusNotFound
	case errors.As(err, &upstream), errors.Is(err, weather.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetDashboard handles GET /api/v1/dashboard.
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Snapshot())
}

// HealthHandlerFunc returns an http.HandlerFunc that checks the cycle sequence backend.
// Returns 200 if it answers, 503 otherwise.
func HealthHandlerFunc(seq pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := seq.Ping(ctx); err != nil {
			log.Error("health check: sequence ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"sequence": "error",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"sequence": "ok",
		})
	}
}
