// Package http provides HTTP handlers that expose the monitor's readings.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/atinyakov/DexWatch/internal/models"
	"github.com/atinyakov/DexWatch/internal/service"
)

const (
	defaultHistoryLimit = 12
	// maxHistoryLimit is one day of five-minute readings.
	maxHistoryLimit = 288
)

// ReadingService defines the reading queries required by the HTTP handlers.
type ReadingService interface {
	// Latest returns the most recent reading or models.ErrNotFound.
	Latest(context.Context) (models.StoredReading, error)
	// History returns up to limit readings, newest first.
	History(context.Context, int) ([]models.StoredReading, error)
}

// ReadingHandler handles HTTP requests for readings.
type ReadingHandler struct {
	// ReadingService answers the underlying queries.
	ReadingService ReadingService
}

// Latest writes the most recent reading, or 404 when none has been fetched yet.
func (h *ReadingHandler) Latest(w http.ResponseWriter, r *http.Request) {
	reading, err := h.ReadingService.Latest(r.Context())
	if errors.Is(err, models.ErrNotFound) {
		http.Error(w, "no reading yet", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, reading)
}

// History writes up to ?limit= readings (default 12, at most 288), newest first.
func (h *ReadingHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	readings, err := h.ReadingService.History(r.Context(), limit)
	if errors.Is(err, service.ErrHistoryUnavailable) {
		http.Error(w, "history not configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, readings)
}

// Health reports that the monitor is serving.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
