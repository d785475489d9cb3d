package api

import (
	"net/http"
	"strconv"
)

const maxPerformers = 100

// PerformersHandler serves a day's best skaters.
type PerformersHandler struct {
	deps Dependencies
}

// NewPerformersHandler creates a new top performers handler.
func NewPerformersHandler(deps Dependencies) *PerformersHandler {
	return &PerformersHandler{deps: deps}
}

// HandleGetTopPerformers handles GET /top-performers?date=YYYY-MM-DD&limit=N.
// Date defaults to yesterday and limit to 10.
func (h *PerformersHandler) HandleGetTopPerformers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	day, err := parseDay(q.Get("date"), h.deps.Yesterday())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	n := 0
	if s := q.Get("limit"); s != "" {
		n, err = strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if n > maxPerformers {
			writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
			return
		}
	}
	top, err := h.deps.TopPerformers(r.Context(), day, n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}
