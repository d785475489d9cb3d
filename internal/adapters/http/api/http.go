// Package api declares HTTP contracts and route registration helpers for the
// dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/goalcast/internal/app"
	"github.com/okian/goalcast/internal/domain/features"
	"github.com/okian/goalcast/internal/domain/inference"
	"github.com/okian/goalcast/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Players(ctx context.Context) ([]service.Player, error)
	Predict(ctx context.Context, day model.Day, ids []int64) (*inference.Result, error)
	TopPerformers(ctx context.Context, day model.Day, n int) ([]service.Performer, error)
	Ready(ctx context.Context) error
	Tonight() model.Day
	Yesterday() model.Day
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler     *HealthHandler
	playersHandler    *PlayersHandler
	predictHandler    *PredictionsHandler
	performersHandler *PerformersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(deps),
		playersHandler:    NewPlayersHandler(deps),
		predictHandler:    NewPredictionsHandler(deps),
		performersHandler: NewPerformersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/players", MetricsMiddleware(s.playersHandler.HandleGetPlayers, "players"))
	mux.HandleFunc("/predictions", MetricsMiddleware(s.predictHandler.HandlePostPredictions, "predictions"))
	mux.HandleFunc("/top-performers", MetricsMiddleware(s.performersHandler.HandleGetTopPerformers, "top_performers"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service failures to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, features.ErrFeatureContract):
		writeError(w, http.StatusInternalServerError, "feature_contract", err)
	case errors.Is(err, inference.ErrSchedule):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseDay reads an optional YYYY-MM-DD value, falling back to def.
func parseDay(s string, def model.Day) (model.Day, error) {
	if s == "" {
		return def, nil
	}
	d, err := model.ParseDay(s)
	if err != nil {
		return model.Day{}, ErrBadDate
	}
	return d, nil
}
