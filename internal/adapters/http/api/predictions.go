package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const maxPredictionBody = 1 << 20

// predictionRequest mirrors the body of POST /predictions. Date defaults to
// tonight; no player ids means every player with history.
type predictionRequest struct {
	Date      string  `json:"date"`
	PlayerIDs []int64 `json:"player_ids"`
}

// PredictionsHandler ranks players for a game day.
type PredictionsHandler struct {
	deps Dependencies
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps Dependencies) *PredictionsHandler {
	return &PredictionsHandler{deps: deps}
}

// HandlePostPredictions handles POST /predictions requests.
func (h *PredictionsHandler) HandlePostPredictions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req predictionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	day, err := parseDay(req.Date, h.deps.Tonight())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.Predict(r.Context(), day, req.PlayerIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
