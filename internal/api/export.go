package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"
)

// exportEntries отдаёт все записи тенанта одним XLSX-файлом.
func (h *AdminHandler) exportEntries(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	entries, err := h.svc.ListEntries(r.Context(), id)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"entry_id",
		"month",
		"date",
		"task",
		"duration_hours",
		"included_in_plan",
		"notes",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		respondError(w, h.log, err)
		return
	}

	row := 2
	for _, e := range entries {
		excelRow := []interface{}{
			e.ID,
			e.Month,
			e.Date.Format("2006-01-02"),
			e.TaskTitle,
			e.DurationHours,
			e.IncludedInPlan,
			e.Notes,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			respondError(w, h.log, err)
			return
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			respondError(w, h.log, err)
			return
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		respondError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=time_entries_%d.xlsx", id))
	_, _ = w.Write(buf.Bytes())
}
