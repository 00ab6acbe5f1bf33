package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"clinicbook/internal/export"
	"clinicbook/internal/metrics"
	"clinicbook/internal/models"
	"clinicbook/internal/store"
)

var errInvalidDoctorID = errors.New("invalid doctor_id")

// handleBook creates an appointment.
// POST /api/appointments
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")

	var req store.BookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appointment, err := s.store.Book(r.Context(), req)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if session := sessionFrom(r.Context()); session != nil {
		s.logger.Info().
			Int64("appointment_id", appointment.ID).
			Str("booked_by", session.Email).
			Msg("appointment booked")
	}
	writeJSON(w, http.StatusCreated, appointment)
}

// handleListAppointments lists appointments with optional filters.
// GET /api/appointments?doctor_id=1&date=YYYY-MM-DD&status=pending&temporal=upcoming&patient=sarah
func (s *HTTPServer) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments")

	filter, err := parseAppointmentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appointments, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

// handleGetAppointment returns one appointment.
// GET /api/appointments/{id}
func (s *HTTPServer) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointment_get")

	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

// handleUpdateAppointment applies a partial update.
// PATCH /api/appointments/{id}
func (s *HTTPServer) handleUpdateAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointment_update")

	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	var patch store.UpdatePatch
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	appointment, err := s.store.Update(r.Context(), id, patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

// handleConfirm marks a pending appointment confirmed.
// POST /api/appointments/{id}/confirm
func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointment_confirm")

	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := s.store.Confirm(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

// handleCancel cancels an appointment, freeing its slot. Cancelling twice is
// a no-op success.
// POST /api/appointments/{id}/cancel
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointment_cancel")

	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := s.store.Cancel(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

// handleExport streams the appointment book as an .xlsx workbook.
// GET /api/appointments/export
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments_export")

	filter, err := parseAppointmentFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	if err := s.exporter.WriteAppointments(r.Context(), w, filter); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return 0, false
	}
	return id, true
}

func parseAppointmentFilter(r *http.Request) (models.AppointmentFilter, error) {
	q := r.URL.Query()
	filter := models.AppointmentFilter{
		Date:     q.Get("date"),
		Status:   q.Get("status"),
		Temporal: q.Get("temporal"),
		Patient:  q.Get("patient"),
	}

	if raw := q.Get("doctor_id"); raw != "" {
		doctorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errInvalidDoctorID
		}
		filter.DoctorID = doctorID
	}
	return filter, nil
}
