package models

import "time"

// Lifecycle statuses, set only by explicit operations.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Temporal statuses, derived from wall-clock time and never persisted.
const (
	TemporalUpcoming = "upcoming"
	TemporalPast     = "past"
)

// Appointment represents one booked slot with one doctor for one patient.
// The (DoctorID, Date, TimeSlot) triple is unique among non-cancelled records.
type Appointment struct {
	ID                   int64     `json:"id"`
	DoctorID             int64     `json:"doctor_id"`
	DoctorName           string    `json:"doctor_name"`
	DoctorSpecialization string    `json:"doctor_specialization"`
	PatientName          string    `json:"patient_name"`
	PhoneNumber          string    `json:"phone_number"`
	Disease              string    `json:"disease"`
	Notes                string    `json:"notes"`
	Date                 string    `json:"date"`      // YYYY-MM-DD
	TimeSlot             string    `json:"time_slot"` // canonical label, e.g. "09:00 AM"
	Status               string    `json:"status"`    // pending, confirmed, cancelled
	TemporalStatus       string    `json:"temporal_status,omitempty"`
	ReminderSent         bool      `json:"reminder_sent"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AppointmentFilter narrows appointment queries. Zero values match all.
type AppointmentFilter struct {
	DoctorID int64
	Date     string // YYYY-MM-DD
	Status   string // lifecycle status
	Temporal string // upcoming, past, or "" / "all"
	Patient  string // case-insensitive substring of patient name
}

// IsCancelled reports whether the appointment no longer occupies its slot.
func (a *Appointment) IsCancelled() bool {
	return a.Status == StatusCancelled
}

// StartTime returns the wall-clock instant the appointment begins.
func (a *Appointment) StartTime(loc *time.Location) (time.Time, error) {
	return SlotTime(a.Date, a.TimeSlot, loc)
}

// IsPast reports whether the appointment's slot is strictly before now. The
// slot is interpreted in the clinic's location; a nil loc falls back to
// now's location. A malformed date or slot is treated as not past.
func (a *Appointment) IsPast(now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = now.Location()
	}
	start, err := a.StartTime(loc)
	if err != nil {
		return false
	}
	return start.Before(now)
}

// Temporal returns the derived temporal status relative to now, with the
// slot interpreted in the clinic's location.
// Cancelled appointments have no temporal axis and return "".
func (a *Appointment) Temporal(now time.Time, loc *time.Location) string {
	if a.IsCancelled() {
		return ""
	}
	if a.IsPast(now, loc) {
		return TemporalPast
	}
	return TemporalUpcoming
}

// HoldsSlot reports whether the appointment occupies the given slot triple.
func (a *Appointment) HoldsSlot(doctorID int64, date, slot string) bool {
	return !a.IsCancelled() && a.DoctorID == doctorID && a.Date == date && a.TimeSlot == slot
}
