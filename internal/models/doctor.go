package models

import "time"

// Doctor is an entry in the read-only clinic directory. Appointments carry a
// denormalized snapshot of the doctor at booking time; no foreign-key
// integrity is enforced against this catalog.
type Doctor struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Qualification  string    `json:"qualification"`
	Experience     string    `json:"experience"`
	Rating         float64   `json:"rating"`
	Availability   string    `json:"availability"` // e.g. "Mon-Fri"
	CreatedAt      time.Time `json:"created_at"`
}
