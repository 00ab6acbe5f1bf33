package api

import (
	"net/http"
	"strconv"

	"clinicbook/internal/metrics"
)

// handleListDoctors returns the doctor catalog, optionally filtered by a
// case-insensitive search over name and specialization.
// GET /api/doctors?search=cardio
func (s *HTTPServer) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("doctors")

	doctors, err := s.db.ListDoctors(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

// handleDoctorAvailability returns the per-slot availability for one doctor
// on one date.
// GET /api/doctors/{id}/availability?date=YYYY-MM-DD
func (s *HTTPServer) handleDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("doctor_availability")

	doctorID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	slots, err := s.store.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"date":      date,
		"slots":     slots,
	})
}

// handleSlotCheck reports whether a single slot is taken.
// GET /api/slots/check?doctor_id=1&date=YYYY-MM-DD&time_slot=10:00%20AM
func (s *HTTPServer) handleSlotCheck(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slot_check")

	q := r.URL.Query()
	doctorID, err := strconv.ParseInt(q.Get("doctor_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doctor_id")
		return
	}
	date, slot := q.Get("date"), q.Get("time_slot")
	if date == "" || slot == "" {
		writeError(w, http.StatusBadRequest, "date and time_slot are required")
		return
	}

	booked, err := s.store.IsSlotBooked(r.Context(), doctorID, date, slot)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booked": booked})
}
