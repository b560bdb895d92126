package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/agencydesk/agencydesk/internal/domain/maintenance"
	"github.com/agencydesk/agencydesk/internal/domain/tenants"
)

// AdminHandler — служебный контур: тенанты, циклы, записи времени, фичи.
type AdminHandler struct {
	svc     *maintenance.Service
	tenants TenantStore
	tasks   TaskStore
	log     *slog.Logger
}

func NewAdminHandler(svc *maintenance.Service, tenantStore TenantStore, taskStore TaskStore, log *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, tenants: tenantStore, tasks: taskStore, log: log}
}

func tenantID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

type tenantResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug"`
	HoursPerMonth float64 `json:"maintenanceHoursPerMonth"`
	CarryoverMode string  `json:"maintenanceCarryoverMode"`
}

func toTenantResponse(t *tenants.Tenant) tenantResponse {
	return tenantResponse{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		HoursPerMonth: t.MaintenanceHoursPerMonth,
		CarryoverMode: string(t.MaintenanceCarryoverMode),
	}
}

type cycleResponse struct {
	ID           int64   `json:"id"`
	TenantID     int64   `json:"tenantId"`
	Month        string  `json:"month"`
	BaseHours    float64 `json:"baseHours"`
	CarriedHours float64 `json:"carriedHours"`
	UsedHours    float64 `json:"usedHours"`
	Status       string  `json:"status"`
}

func toCycleResponse(c *maintenance.Cycle) cycleResponse {
	return cycleResponse{
		ID:           c.ID,
		TenantID:     c.TenantID,
		Month:        c.Month,
		BaseHours:    c.BaseHours,
		CarriedHours: c.CarriedHours,
		UsedHours:    c.UsedHours,
		Status:       string(c.Status),
	}
}

type entryResponse struct {
	ID             int64   `json:"id"`
	CycleID        int64   `json:"cycleId"`
	TaskID         *int64  `json:"taskId,omitempty"`
	TaskTitle      string  `json:"taskTitle,omitempty"`
	Month          string  `json:"month"`
	Date           string  `json:"date"`
	DurationHours  float64 `json:"durationHours"`
	IncludedInPlan bool    `json:"isIncludedInPlan"`
	Notes          string  `json:"notes,omitempty"`
}

func toEntryResponse(e maintenance.EntryWithContext) entryResponse {
	return entryResponse{
		ID:             e.ID,
		CycleID:        e.CycleID,
		TaskID:         e.TaskID,
		TaskTitle:      e.TaskTitle,
		Month:          e.Month,
		Date:           e.Date.Format("2006-01-02"),
		DurationHours:  e.DurationHours,
		IncludedInPlan: e.IncludedInPlan,
		Notes:          e.Notes,
	}
}

func (h *AdminHandler) createTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string  `json:"name"`
		Slug          string  `json:"slug"`
		HoursPerMonth float64 `json:"maintenanceHoursPerMonth"`
		CarryoverMode string  `json:"maintenanceCarryoverMode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	mode := tenants.CarryoverMode(req.CarryoverMode)
	if mode == "" {
		mode = tenants.CarryoverNone
	}

	t, err := h.tenants.Create(r.Context(), req.Name, req.Slug, req.HoursPerMonth, mode)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantResponse(t))
}

func (h *AdminHandler) listTenants(w http.ResponseWriter, r *http.Request) {
	ts, err := h.tenants.List(r.Context())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	out := make([]tenantResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTenantResponse(&ts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) getTenant(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	t, err := h.tenants.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

func (h *AdminHandler) updateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req struct {
		Name          *string  `json:"name"`
		HoursPerMonth *float64 `json:"maintenanceHoursPerMonth"`
		CarryoverMode *string  `json:"maintenanceCarryoverMode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	u := tenants.Update{Name: req.Name, HoursPerMonth: req.HoursPerMonth}
	if req.CarryoverMode != nil {
		mode := tenants.CarryoverMode(*req.CarryoverMode)
		u.CarryoverMode = &mode
	}

	t, err := h.tenants.Update(r.Context(), id, u)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

func (h *AdminHandler) getCycle(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	c, err := h.svc.GetOrCreateCurrentCycle(r.Context(), id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleResponse(c))
}

func (h *AdminHandler) patchCycle(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req struct {
		BaseHours    *float64 `json:"baseHours"`
		CarriedHours *float64 `json:"carriedHours"`
		UsedHours    *float64 `json:"usedHours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	c, err := h.svc.UpdateCycle(r.Context(), id, maintenance.CyclePatch{
		BaseHours:    req.BaseHours,
		CarriedHours: req.CarriedHours,
		UsedHours:    req.UsedHours,
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleResponse(c))
}

func (h *AdminHandler) createEntry(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req struct {
		Date           string  `json:"date"`
		DurationHours  float64 `json:"durationHours"`
		TaskID         *int64  `json:"taskId"`
		IncludedInPlan *bool   `json:"isIncludedInPlan"`
		Notes          string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	included := true
	if req.IncludedInPlan != nil {
		included = *req.IncludedInPlan
	}

	e, err := h.svc.RecordTimeEntry(r.Context(), id, maintenance.EntryInput{
		Date:           date,
		DurationHours:  req.DurationHours,
		TaskID:         req.TaskID,
		IncludedInPlan: included,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":               e.ID,
		"cycleId":          e.CycleID,
		"date":             e.Date.Format("2006-01-02"),
		"durationHours":    e.DurationHours,
		"isIncludedInPlan": e.IncludedInPlan,
	})
}

func (h *AdminHandler) listEntries(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var entries []maintenance.EntryWithContext
	if raw := r.URL.Query().Get("cycle_id"); raw != "" {
		cycleID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cycle_id")
			return
		}
		entries, err = h.svc.ListEntriesForCycle(r.Context(), id, cycleID)
		if err != nil {
			respondError(w, h.log, err)
			return
		}
	} else {
		entries, err = h.svc.ListEntries(r.Context(), id)
		if err != nil {
			respondError(w, h.log, err)
			return
		}
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) createTask(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	t, err := h.tasks.Create(r.Context(), id, req.Title)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": t.ID, "title": t.Title})
}

func (h *AdminHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	ts, err := h.tasks.ListByTenant(r.Context(), id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	type taskResponse struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	out := make([]taskResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, taskResponse{ID: t.ID, Title: t.Title})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) listFeatures(w http.ResponseWriter, r *http.Request) {
	fs, err := h.svc.ListFeatures(r.Context())
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (h *AdminHandler) createFeature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	f, err := h.svc.CreateFeature(r.Context(), req.Name, req.Description)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *AdminHandler) assignFeatures(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var req struct {
		FeatureIDs []int64 `json:"featureIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.svc.AssignFeatures(r.Context(), id, req.FeatureIDs); err != nil {
		respondError(w, h.log, err)
		return
	}
	fs, err := h.svc.ListTenantFeatures(r.Context(), id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}
