package models

import "time"

// MedicalRecord is one entry in a patient's treatment history. Records are
// read-only through the API; the clinic back office maintains them.
type MedicalRecord struct {
	ID           int64     `json:"id"`
	PatientName  string    `json:"patient_name"`
	Date         string    `json:"date"` // YYYY-MM-DD
	Diagnosis    string    `json:"diagnosis"`
	Prescription string    `json:"prescription"`
	NextVisit    string    `json:"next_visit,omitempty"` // YYYY-MM-DD
	DoctorName   string    `json:"doctor_name"`
	CreatedAt    time.Time `json:"created_at"`
}
