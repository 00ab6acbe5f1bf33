package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicbook/internal/auth"
	"clinicbook/internal/database"
	"clinicbook/internal/events"
	"clinicbook/internal/export"
	"clinicbook/internal/models"
	"clinicbook/internal/repository"
	"clinicbook/internal/store"
	"clinicbook/internal/support"
	"clinicbook/internal/visits"
)

type testEnv struct {
	server *httptest.Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.SeedDoctors(t.Context(), database.DefaultDoctors))
	require.NoError(t, db.SeedMedicalRecords(t.Context(), database.DefaultMedicalRecords))

	bus := events.NewEventBus()
	appointments := store.New(db, bus, store.Rules{MaxAdvance: 365 * 24 * time.Hour}, time.UTC, &logger)
	sessions := repository.NewMemorySessionRepository()
	authSvc := auth.New(db, sessions, time.Hour, &logger)
	supportSvc := support.New(db, bus, &logger)
	visitSvc := visits.New(db, bus, &logger)
	exporter := export.New(appointments)

	api := NewHTTPServer(appointments, db, authSvc, supportSvc, visitSvc, exporter, &logger)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	env := &testEnv{server: server}

	resp := env.post(t, "/api/auth/signup", map[string]any{
		"email":    "sarah.j@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session SessionResponse
	decode(t, resp, &session)
	env.token = session.Token

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	return e.do(t, http.MethodPost, path, body)
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	return e.do(t, http.MethodGet, path, nil)
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// futureDate returns a bookable date well inside the booking window.
func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(models.DateLayout)
}

func bookingBody(date, slot string) map[string]any {
	return map[string]any{
		"doctor_id":    1,
		"patient_name": "Sarah Johnson",
		"phone_number": "+1-555-0134",
		"disease":      "Hypertension",
		"date":         date,
		"time_slot":    slot,
	}
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	date := futureDate(7)

	resp := env.post(t, "/api/appointments", bookingBody(date, "10:00 AM"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var booked models.Appointment
	decode(t, resp, &booked)
	assert.Equal(t, models.StatusPending, booked.Status)
	assert.Equal(t, models.TemporalUpcoming, booked.TemporalStatus)
	assert.NotZero(t, booked.ID)

	// Same slot, same doctor: conflict.
	conflict := bookingBody(date, "10:00 AM")
	conflict["patient_name"] = "James Wilson"
	resp = env.post(t, "/api/appointments", conflict)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Cancelling frees the slot for a rebook.
	resp = env.post(t, fmt.Sprintf("/api/appointments/%d/cancel", booked.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.post(t, "/api/appointments", conflict)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rebooked models.Appointment
	decode(t, resp, &rebooked)
	assert.Greater(t, rebooked.ID, booked.ID)
}

func TestBookingValidation(t *testing.T) {
	env := newTestEnv(t)

	body := bookingBody(futureDate(7), "10:00 AM")
	delete(body, "patient_name")
	resp := env.post(t, "/api/appointments", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]any
	decode(t, resp, &payload)
	assert.Contains(t, payload["error"], "patient_name")
}

func TestSlotCheckAndAvailability(t *testing.T) {
	env := newTestEnv(t)
	date := futureDate(7)

	resp := env.post(t, "/api/appointments", bookingBody(date, "10:00 AM"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.get(t, "/api/slots/check?doctor_id=1&date="+date+"&time_slot=10:00+AM")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check map[string]bool
	decode(t, resp, &check)
	assert.True(t, check["booked"])

	// The integer-hour form resolves to the same slot.
	resp = env.get(t, "/api/slots/check?doctor_id=1&date="+date+"&time_slot=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &check)
	assert.True(t, check["booked"])

	resp = env.get(t, fmt.Sprintf("/api/doctors/1/availability?date=%s", date))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var availability struct {
		Slots []store.SlotAvailability `json:"slots"`
	}
	decode(t, resp, &availability)
	require.Len(t, availability.Slots, len(models.TimeSlots))
	for _, slot := range availability.Slots {
		if slot.Slot == "10:00 AM" {
			assert.False(t, slot.Available)
			assert.Equal(t, "booked", slot.Reason)
		} else {
			assert.True(t, slot.Available, "slot %s", slot.Slot)
		}
	}
}

func TestAvailabilityRange(t *testing.T) {
	env := newTestEnv(t)
	start, end := futureDate(7), futureDate(8)

	resp := env.post(t, "/api/availability", map[string]any{
		"start_date": start,
		"end_date":   end,
		"doctor_ids": []int64{1},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload AvailabilityResponse
	decode(t, resp, &payload)
	require.Len(t, payload.Doctors, 1)
	require.Len(t, payload.Doctors[0].Availability, 2)
	assert.Equal(t, len(models.TimeSlots), payload.Doctors[0].Availability[0].FreeSlots)

	// Range over the cap is rejected.
	resp = env.post(t, "/api/availability", map[string]any{
		"start_date": futureDate(0),
		"end_date":   futureDate(200),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateAppointment(t *testing.T) {
	env := newTestEnv(t)
	date := futureDate(7)

	resp := env.post(t, "/api/appointments", bookingBody(date, "10:00 AM"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var appt models.Appointment
	decode(t, resp, &appt)

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/api/appointments/%d", appt.ID), map[string]any{
		"time_slot": "02:30 PM",
		"notes":     "rescheduled by phone",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Appointment
	decode(t, resp, &updated)
	assert.Equal(t, "02:30 PM", updated.TimeSlot)
	assert.Equal(t, "rescheduled by phone", updated.Notes)

	// The old slot is free again.
	resp = env.get(t, "/api/slots/check?doctor_id=1&date="+date+"&time_slot=10:00+AM")
	var check map[string]bool
	decode(t, resp, &check)
	assert.False(t, check["booked"])
}

func TestUpdateAppointment_BlankRequiredField(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/appointments", bookingBody(futureDate(7), "10:00 AM"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var appt models.Appointment
	decode(t, resp, &appt)

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/api/appointments/%d", appt.ID), map[string]any{
		"patient_name": "",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var payload map[string]any
	decode(t, resp, &payload)
	assert.Contains(t, payload["error"], "patient_name")

	// The stored record is untouched.
	resp = env.get(t, fmt.Sprintf("/api/appointments/%d", appt.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unchanged models.Appointment
	decode(t, resp, &unchanged)
	assert.Equal(t, "Sarah Johnson", unchanged.PatientName)
}

func TestMalformedInputsAreBadRequests(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/doctors/1/availability?date=not-a-date")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/api/slots/check?doctor_id=1&date="+futureDate(7)+"&time_slot=banana")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/api/slots/check?doctor_id=1&date=not-a-date&time_slot=10:00+AM")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/api/appointments?temporal=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMedicalRecords(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/records")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Records []models.MedicalRecord `json:"records"`
	}
	decode(t, resp, &payload)
	require.Len(t, payload.Records, 2)
	// Newest visit first.
	assert.Equal(t, "James Wilson", payload.Records[0].PatientName)
	assert.Equal(t, "Allergies", payload.Records[0].Diagnosis)

	resp = env.get(t, "/api/records?patient=sarah")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &payload)
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "Sarah Johnson", payload.Records[0].PatientName)
	assert.Equal(t, "Common cold", payload.Records[0].Diagnosis)
}

func TestHomeVisitFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/home-visits", map[string]any{
		"patient_name": "Sarah Johnson",
		"address":      "12 Elm Street",
		"phone_number": "5550134567",
		"date":         futureDate(5),
		"time_slot":    "10:00 AM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var visit models.HomeVisitRequest
	decode(t, resp, &visit)
	assert.Equal(t, models.StatusPending, visit.Status)
	assert.NotZero(t, visit.ID)

	// A formatted phone number is rejected; only ten bare digits pass.
	resp = env.post(t, "/api/home-visits", map[string]any{
		"patient_name": "Sarah Johnson",
		"address":      "12 Elm Street",
		"phone_number": "+1-555-0134",
		"date":         futureDate(5),
		"time_slot":    "10:00 AM",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var payload map[string]any
	decode(t, resp, &payload)
	assert.Contains(t, payload["error"], "phone_number")

	resp = env.get(t, "/api/home-visits")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		HomeVisits []models.HomeVisitRequest `json:"home_visits"`
	}
	decode(t, resp, &list)
	require.Len(t, list.HomeVisits, 1)
	assert.Equal(t, visit.ID, list.HomeVisits[0].ID)
}

func TestConfirmAppointment(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/appointments", bookingBody(futureDate(7), "10:00 AM"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var appt models.Appointment
	decode(t, resp, &appt)

	resp = env.post(t, fmt.Sprintf("/api/appointments/%d/confirm", appt.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var confirmed models.Appointment
	decode(t, resp, &confirmed)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	// Confirming a cancelled appointment is rejected.
	resp = env.post(t, fmt.Sprintf("/api/appointments/%d/cancel", appt.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.post(t, fmt.Sprintf("/api/appointments/%d/confirm", appt.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.post(t, "/api/appointments/999999/confirm", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	date := futureDate(7)

	resp := env.post(t, "/api/appointments", bookingBody(date, "09:00 AM"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	other := bookingBody(date, "11:30 AM")
	other["doctor_id"] = 2
	resp = env.post(t, "/api/appointments", other)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload struct {
		Appointments []models.Appointment `json:"appointments"`
	}

	resp = env.get(t, "/api/appointments?doctor_id=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &payload)
	require.Len(t, payload.Appointments, 1)
	assert.Equal(t, int64(1), payload.Appointments[0].DoctorID)

	resp = env.get(t, "/api/appointments?temporal=upcoming")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &payload)
	assert.Len(t, payload.Appointments, 2)

	resp = env.get(t, "/api/appointments?temporal=past")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &payload)
	assert.Empty(t, payload.Appointments)

	resp = env.get(t, "/api/appointments?patient=sarah")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &payload)
	assert.Len(t, payload.Appointments, 2)

	resp = env.get(t, "/api/appointments?patient=nobody")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &payload)
	assert.Empty(t, payload.Appointments)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	resp := env.get(t, "/api/appointments")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.get(t, "/api/records")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.get(t, "/api/home-visits")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	env.token = "not-a-real-token"
	resp = env.get(t, "/api/appointments")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The doctor catalog stays public.
	resp = env.get(t, "/api/doctors")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	// Duplicate signup is rejected.
	resp := env.post(t, "/api/auth/signup", map[string]any{
		"email":    "sarah.j@example.com",
		"password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Wrong password is rejected.
	resp = env.post(t, "/api/auth/login", map[string]any{
		"email":    "sarah.j@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logout kills the session.
	resp = env.post(t, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.get(t, "/api/appointments")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDoctorSearch(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/doctors?search=cardio")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Doctors []models.Doctor `json:"doctors"`
	}
	decode(t, resp, &payload)
	require.NotEmpty(t, payload.Doctors)
	for _, doctor := range payload.Doctors {
		assert.Contains(t, doctor.Specialization, "Cardio")
	}
}

func TestSupportEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/support/chat", map[string]any{"message": "How do I reschedule?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.post(t, "/api/support/call", map[string]any{"phone_number": "+1-555-0134"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.get(t, "/api/support/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		History []models.SupportInteraction `json:"history"`
	}
	decode(t, resp, &payload)
	require.Len(t, payload.History, 2)
	assert.Equal(t, models.SupportTypeChat, payload.History[0].Type)
	assert.Equal(t, models.SupportTypeCall, payload.History[1].Type)

	resp = env.do(t, http.MethodDelete, "/api/support/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.get(t, "/api/support/history")
	decode(t, resp, &payload)
	assert.Empty(t, payload.History)
}

func TestExportDownload(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/appointments", bookingBody(futureDate(7), "10:00 AM"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.get(t, "/api/appointments/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRequestIDPropagation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/doctors")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/doctors", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	got, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, "req-42", got.Header.Get("X-Request-ID"))
}
