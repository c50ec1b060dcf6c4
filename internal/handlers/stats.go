package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"notesdb/internal/contextutil"
	"notesdb/internal/report"
)

// maxTopN caps the top query parameter.
const maxTopN = 1000

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsHandler serves the statistics report of the database.
type StatsHandler struct {
	generator report.Generator
	topN      int
}

// NewStatsHandler creates a new StatsHandler. topN is used when the request
// does not set one.
func NewStatsHandler(generator report.Generator, topN int) *StatsHandler {
	if topN <= 0 {
		topN = report.DefaultTopN
	}
	return &StatsHandler{generator: generator, topN: topN}
}

// ServeHTTP handles GET /api/stats?top=N.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	topN := h.topN
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTopN {
			writeError(w, http.StatusBadRequest, "top must be an integer between 1 and 1000")
			return
		}
		topN = n
	}

	rep, err := h.generator.Generate(ctx, topN)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate statistics")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger.ErrorContext(ctx, "failed to encode report", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
