package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/meetsight/attendance/internal/attendance"
)

// AttendanceHandler handles attendance report endpoints.
type AttendanceHandler struct {
	reporter *attendance.Reporter
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(reporter *attendance.Reporter) *AttendanceHandler {
	return &AttendanceHandler{reporter: reporter}
}

// Report returns the attendance report for a session as JSON.
func (h *AttendanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	report, err := h.reporter.Calculate(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to calculate report")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"report":     report,
	})
}

// ExportCSV returns the attendance report for a session as a CSV download.
func (h *AttendanceHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	report, err := h.reporter.Calculate(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to calculate report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=attendance_session_%d.csv", id))
	w.WriteHeader(http.StatusOK)

	if err := attendance.WriteCSV(w, report); err != nil {
		// Headers are already sent, all we can do is log.
		log.Printf("CSV export failed for session %d: %v", id, err)
	}
}
