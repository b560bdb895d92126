package api

import (
	"log/slog"
	"net/http"

	"github.com/agencydesk/agencydesk/internal/domain/maintenance"
)

// PortalHandler — витрина тенанта: только чтение производной сводки.
type PortalHandler struct {
	svc     *maintenance.Service
	tenants TenantStore
	log     *slog.Logger
}

func NewPortalHandler(svc *maintenance.Service, tenantStore TenantStore, log *slog.Logger) *PortalHandler {
	return &PortalHandler{svc: svc, tenants: tenantStore, log: log}
}

func (h *PortalHandler) maintenanceSummary(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	// remaining может уйти в минус при перерасходе; клэмп — дело фронта
	s, err := h.svc.CurrentSummary(r.Context(), t.ID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
