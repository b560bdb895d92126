package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/agencydesk/agencydesk/internal/domain/maintenance"
	"github.com/agencydesk/agencydesk/internal/domain/tenants"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError переводит доменные ошибки в HTTP-статусы.
func respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, tenants.ErrNotFound):
		writeError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, maintenance.ErrCycleConflict):
		writeError(w, http.StatusConflict, "cycle already exists, retry")
	case errors.Is(err, maintenance.ErrUnknownFeature):
		writeError(w, http.StatusUnprocessableEntity, "unknown feature id")
	default:
		log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
