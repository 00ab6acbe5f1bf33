package models

import "time"

// HomeVisitRequest asks for a doctor to come to the patient's address. It is
// a request queue entry, not a booked slot: home visits never contend with
// the in-clinic slot grid.
type HomeVisitRequest struct {
	ID          int64     `json:"id"`
	PatientName string    `json:"patient_name"`
	Address     string    `json:"address"`
	PhoneNumber string    `json:"phone_number"`
	Date        string    `json:"date"`      // YYYY-MM-DD
	TimeSlot    string    `json:"time_slot"` // canonical label, e.g. "09:00 AM"
	Status      string    `json:"status"`    // lifecycle statuses shared with appointments
	CreatedAt   time.Time `json:"created_at"`
}
