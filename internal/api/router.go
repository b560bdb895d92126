package api

import (
	"log/slog"
	"net/http"
)

// NewRouter собирает маршруты админки и кабинета тенанта.
// Аутентификация живёт уровнем выше, здесь её нет.
func NewRouter(admin *AdminHandler, portal *PortalHandler, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /admin/tenants", admin.createTenant)
	mux.HandleFunc("GET /admin/tenants", admin.listTenants)
	mux.HandleFunc("GET /admin/tenants/{id}", admin.getTenant)
	mux.HandleFunc("PATCH /admin/tenants/{id}", admin.updateTenant)

	mux.HandleFunc("GET /admin/tenants/{id}/cycle", admin.getCycle)
	mux.HandleFunc("PATCH /admin/tenants/{id}/cycle", admin.patchCycle)

	mux.HandleFunc("POST /admin/tenants/{id}/entries", admin.createEntry)
	mux.HandleFunc("GET /admin/tenants/{id}/entries", admin.listEntries)
	mux.HandleFunc("GET /admin/tenants/{id}/entries/export", admin.exportEntries)

	mux.HandleFunc("POST /admin/tenants/{id}/tasks", admin.createTask)
	mux.HandleFunc("GET /admin/tenants/{id}/tasks", admin.listTasks)

	mux.HandleFunc("GET /admin/features", admin.listFeatures)
	mux.HandleFunc("POST /admin/features", admin.createFeature)
	mux.HandleFunc("PUT /admin/tenants/{id}/features", admin.assignFeatures)

	mux.HandleFunc("GET /portal/tenants/{slug}/maintenance", portal.maintenanceSummary)

	return logging(log, mux)
}
