package store

import (
	"context"

	"clinicbook/internal/models"
)

// SlotAvailability reports one slot of the canonical table for a doctor-day.
type SlotAvailability struct {
	Slot      string `json:"slot"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"` // "booked", "past"
}

// AvailableSlots walks the canonical slot table for a doctor and date and
// marks each slot booked, past, or free. Cancelled appointments do not hold
// their slot.
func (s *Store) AvailableSlots(ctx context.Context, doctorID int64, date string) ([]SlotAvailability, error) {
	if !models.ValidDate(date) {
		return nil, &ValidationError{Fields: []string{"date"}}
	}

	appointments, err := s.repo.ListAppointments(ctx, models.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
	})
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(appointments))
	for _, a := range appointments {
		if !a.IsCancelled() {
			taken[a.TimeSlot] = true
		}
	}

	now := s.now()
	availability := make([]SlotAvailability, 0, len(models.TimeSlots))
	for _, slot := range models.TimeSlots {
		entry := SlotAvailability{Slot: slot, Available: true}

		if taken[slot] {
			entry.Available = false
			entry.Reason = "booked"
		} else if start, err := models.SlotTime(date, slot, s.loc); err == nil && start.Before(now) {
			entry.Available = false
			entry.Reason = "past"
		}

		availability = append(availability, entry)
	}
	return availability, nil
}
