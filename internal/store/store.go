// Package store owns the appointment collection: slot conflicts, lifecycle
// transitions, and the derived temporal axis all live here. Every mutation
// goes through the Store; readers get copies, never internal state.
package store

import (
	"context"
	"fmt"
	"time"

	"clinicbook/internal/events"
	"clinicbook/internal/metrics"
	"clinicbook/internal/models"

	"github.com/rs/zerolog"
)

// Repository is the persistence surface the Store requires.
type Repository interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error)
	UpdateAppointment(ctx context.Context, a *models.Appointment) error
	SetAppointmentStatus(ctx context.Context, id int64, status string) error
	IsSlotBooked(ctx context.Context, doctorID int64, date, slot string, excludeID int64) (bool, error)
	MarkReminderSent(ctx context.Context, id int64) error
	GetDoctor(ctx context.Context, id int64) (*models.Doctor, error)
}

// Publisher emits domain events.
type Publisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Rules are the booking-window constraints applied to writes.
type Rules struct {
	MinAdvance time.Duration // minimum lead time before the slot
	MaxAdvance time.Duration // how far ahead a slot can be booked
}

// Store is the single owner of the appointment collection.
type Store struct {
	repo   Repository
	bus    Publisher
	rules  Rules
	loc    *time.Location
	logger *zerolog.Logger
	now    func() time.Time
}

// New creates an appointment store.
func New(repo Repository, bus Publisher, rules Rules, loc *time.Location, logger *zerolog.Logger) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		repo:   repo,
		bus:    bus,
		rules:  rules,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// BookRequest carries the patient-supplied fields for a new appointment.
type BookRequest struct {
	DoctorID    int64  `json:"doctor_id"`
	PatientName string `json:"patient_name"`
	PhoneNumber string `json:"phone_number"`
	Disease     string `json:"disease"`
	Notes       string `json:"notes"`
	Date        string `json:"date"`      // YYYY-MM-DD
	TimeSlot    string `json:"time_slot"` // label or hour, normalized on entry
}

// Book validates the request, checks the slot, and appends the appointment.
// The slot check and the insert are one atomic step at the storage layer, so
// concurrent bookings of the same slot yield exactly one success.
func (s *Store) Book(ctx context.Context, req BookRequest) (*models.Appointment, error) {
	appointment, err := s.buildAppointment(req)
	if err != nil {
		metrics.IncValidationFailed()
		return nil, err
	}

	if err := s.checkBookingWindow(appointment.Date, appointment.TimeSlot); err != nil {
		return nil, err
	}

	doctor, err := s.repo.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor %d: %w", req.DoctorID, err)
	}
	appointment.DoctorName = doctor.Name
	appointment.DoctorSpecialization = doctor.Specialization

	// Advisory pre-check for a clean error before the write; the unique
	// index still decides under contention.
	booked, err := s.repo.IsSlotBooked(ctx, appointment.DoctorID, appointment.Date, appointment.TimeSlot, 0)
	if err != nil {
		return nil, err
	}
	if booked {
		metrics.IncSlotConflict()
		return nil, ErrSlotConflict
	}

	appointment.Status = models.StatusPending
	if err := s.repo.CreateAppointment(ctx, appointment); err != nil {
		if err == ErrSlotConflict {
			metrics.IncSlotConflict()
		}
		return nil, err
	}

	metrics.IncBooked(appointment.Status)
	_ = s.bus.PublishJSON(events.TypeAppointmentCreated, appointment)

	s.logger.Info().
		Int64("appointment_id", appointment.ID).
		Int64("doctor_id", appointment.DoctorID).
		Str("date", appointment.Date).
		Str("slot", appointment.TimeSlot).
		Msg("appointment booked")

	appointment.TemporalStatus = appointment.Temporal(s.now(), s.loc)
	return appointment, nil
}

// Confirm moves a pending appointment to confirmed. Confirming an already
// confirmed appointment is a no-op; a cancelled one is ErrCancelled.
func (s *Store) Confirm(ctx context.Context, id int64) (*models.Appointment, error) {
	appointment, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appointment.Status {
	case models.StatusCancelled:
		return nil, ErrCancelled
	case models.StatusConfirmed:
		appointment.TemporalStatus = appointment.Temporal(s.now(), s.loc)
		return appointment, nil
	}

	if err := s.repo.SetAppointmentStatus(ctx, id, models.StatusConfirmed); err != nil {
		return nil, err
	}
	appointment.Status = models.StatusConfirmed

	_ = s.bus.PublishJSON(events.TypeAppointmentConfirmed, appointment)
	s.logger.Info().Int64("appointment_id", id).Msg("appointment confirmed")

	appointment.TemporalStatus = appointment.Temporal(s.now(), s.loc)
	return appointment, nil
}

// Cancel marks the appointment cancelled and frees its slot. Idempotent:
// cancelling a cancelled appointment succeeds without effect.
func (s *Store) Cancel(ctx context.Context, id int64) (*models.Appointment, error) {
	appointment, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.IsCancelled() {
		return appointment, nil
	}

	if err := s.repo.SetAppointmentStatus(ctx, id, models.StatusCancelled); err != nil {
		return nil, err
	}
	appointment.Status = models.StatusCancelled

	metrics.IncCancelled()
	_ = s.bus.PublishJSON(events.TypeAppointmentCancelled, appointment)

	s.logger.Info().
		Int64("appointment_id", id).
		Str("date", appointment.Date).
		Str("slot", appointment.TimeSlot).
		Msg("appointment cancelled, slot freed")

	return appointment, nil
}

// UpdatePatch carries the mutable fields of an appointment. Nil means keep.
type UpdatePatch struct {
	PatientName *string `json:"patient_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Disease     *string `json:"disease,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Date        *string `json:"date,omitempty"`
	TimeSlot    *string `json:"time_slot,omitempty"`
}

// Update applies a partial update. A date or slot change re-runs the conflict
// check against the other appointments before the write; the storage index
// enforces it atomically either way.
func (s *Store) Update(ctx context.Context, id int64, patch UpdatePatch) (*models.Appointment, error) {
	appointment, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.IsCancelled() {
		return nil, ErrCancelled
	}

	// Required fields stay required: a patch may change them but never
	// blank them.
	var missing []string
	if patch.PatientName != nil && *patch.PatientName == "" {
		missing = append(missing, "patient_name")
	}
	if patch.PhoneNumber != nil && *patch.PhoneNumber == "" {
		missing = append(missing, "phone_number")
	}
	if patch.Disease != nil && *patch.Disease == "" {
		missing = append(missing, "disease")
	}
	if len(missing) > 0 {
		metrics.IncValidationFailed()
		return nil, &ValidationError{Fields: missing}
	}

	if patch.PatientName != nil {
		appointment.PatientName = *patch.PatientName
	}
	if patch.PhoneNumber != nil {
		appointment.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Disease != nil {
		appointment.Disease = *patch.Disease
	}
	if patch.Notes != nil {
		appointment.Notes = *patch.Notes
	}

	slotMoved := false
	if patch.Date != nil && *patch.Date != appointment.Date {
		if !models.ValidDate(*patch.Date) {
			return nil, &ValidationError{Fields: []string{"date"}}
		}
		appointment.Date = *patch.Date
		slotMoved = true
	}
	if patch.TimeSlot != nil {
		slot, err := models.NormalizeSlot(*patch.TimeSlot)
		if err != nil {
			return nil, &ValidationError{Fields: []string{"time_slot"}}
		}
		if slot != appointment.TimeSlot {
			appointment.TimeSlot = slot
			slotMoved = true
		}
	}

	if slotMoved {
		if err := s.checkBookingWindow(appointment.Date, appointment.TimeSlot); err != nil {
			return nil, err
		}
		booked, err := s.repo.IsSlotBooked(ctx, appointment.DoctorID, appointment.Date, appointment.TimeSlot, id)
		if err != nil {
			return nil, err
		}
		if booked {
			metrics.IncSlotConflict()
			return nil, ErrSlotConflict
		}
	}

	if err := s.repo.UpdateAppointment(ctx, appointment); err != nil {
		if err == ErrSlotConflict {
			metrics.IncSlotConflict()
		}
		return nil, err
	}

	_ = s.bus.PublishJSON(events.TypeAppointmentUpdated, appointment)
	s.logger.Info().Int64("appointment_id", id).Bool("slot_moved", slotMoved).Msg("appointment updated")

	appointment.TemporalStatus = appointment.Temporal(s.now(), s.loc)
	return appointment, nil
}

// Get returns one appointment with its temporal status annotated.
func (s *Store) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	appointment, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	appointment.TemporalStatus = appointment.Temporal(s.now(), s.loc)
	return appointment, nil
}

// List returns appointments ordered by date then slot, annotated with the
// derived temporal status and optionally filtered by it. An unknown temporal
// value is a ValidationError; nothing matching is an empty slice, never an
// error.
func (s *Store) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	switch filter.Temporal {
	case "", "all", models.TemporalUpcoming, models.TemporalPast:
	default:
		return nil, &ValidationError{Fields: []string{"temporal"}}
	}

	appointments, err := s.repo.ListAppointments(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]models.Appointment, 0, len(appointments))
	for _, a := range appointments {
		a.TemporalStatus = a.Temporal(now, s.loc)
		if filter.Temporal != "" && filter.Temporal != "all" && a.TemporalStatus != filter.Temporal {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

// IsSlotBooked reports whether a non-cancelled appointment holds the triple.
// Malformed date or slot input is a ValidationError.
func (s *Store) IsSlotBooked(ctx context.Context, doctorID int64, date, slot string) (bool, error) {
	if !models.ValidDate(date) {
		return false, &ValidationError{Fields: []string{"date"}}
	}
	normalized, err := models.NormalizeSlot(slot)
	if err != nil {
		return false, &ValidationError{Fields: []string{"time_slot"}}
	}
	return s.repo.IsSlotBooked(ctx, doctorID, date, normalized, 0)
}

// buildAppointment validates required fields and normalizes the slot.
func (s *Store) buildAppointment(req BookRequest) (*models.Appointment, error) {
	var missing []string
	if req.PatientName == "" {
		missing = append(missing, "patient_name")
	}
	if req.PhoneNumber == "" {
		missing = append(missing, "phone_number")
	}
	if req.Disease == "" {
		missing = append(missing, "disease")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	} else if !models.ValidDate(req.Date) {
		missing = append(missing, "date")
	}

	slot := ""
	if req.TimeSlot == "" {
		missing = append(missing, "time_slot")
	} else {
		var err error
		slot, err = models.NormalizeSlot(req.TimeSlot)
		if err != nil {
			missing = append(missing, "time_slot")
		}
	}

	if req.DoctorID == 0 {
		missing = append(missing, "doctor_id")
	}

	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	return &models.Appointment{
		DoctorID:    req.DoctorID,
		PatientName: req.PatientName,
		PhoneNumber: req.PhoneNumber,
		Disease:     req.Disease,
		Notes:       req.Notes,
		Date:        req.Date,
		TimeSlot:    slot,
	}, nil
}

// checkBookingWindow enforces the advance-booking rules for a slot.
func (s *Store) checkBookingWindow(date, slot string) error {
	start, err := models.SlotTime(date, slot, s.loc)
	if err != nil {
		return &ValidationError{Fields: []string{"date"}}
	}

	now := s.now()
	if start.Before(now.Add(s.rules.MinAdvance)) {
		return ErrPastDate
	}
	if s.rules.MaxAdvance > 0 && start.After(now.Add(s.rules.MaxAdvance)) {
		return ErrDateTooFar
	}
	return nil
}
