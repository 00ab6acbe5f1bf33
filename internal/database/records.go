package database

import (
	"context"
	"fmt"
	"strings"

	"clinicbook/internal/models"
)

// SeedMedicalRecords inserts history entries that are not present yet.
// Records are maintained by the back office; this runs once at startup so a
// fresh install has something to show.
func (db *DB) SeedMedicalRecords(ctx context.Context, records []models.MedicalRecord) error {
	for _, r := range records {
		_, err := db.ExecContext(ctx, `
			INSERT INTO medical_records (patient_name, date, diagnosis, prescription, next_visit, doctor_name)
			SELECT ?, ?, ?, ?, ?, ?
			WHERE NOT EXISTS (
				SELECT 1 FROM medical_records WHERE patient_name = ? AND date = ?
			)`,
			r.PatientName, r.Date, r.Diagnosis, r.Prescription, r.NextVisit, r.DoctorName,
			r.PatientName, r.Date,
		)
		if err != nil {
			return fmt.Errorf("seed record for %s: %w", r.PatientName, err)
		}
	}
	return nil
}

// AddMedicalRecord appends one history entry.
func (db *DB) AddMedicalRecord(ctx context.Context, r *models.MedicalRecord) error {
	result, err := db.ExecContext(ctx, `
		INSERT INTO medical_records (patient_name, date, diagnosis, prescription, next_visit, doctor_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.PatientName, r.Date, r.Diagnosis, r.Prescription, r.NextVisit, r.DoctorName,
	)
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	r.ID, err = result.LastInsertId()
	return err
}

// ListMedicalRecords returns the history, newest visit first, optionally
// filtered by a case-insensitive substring of the patient name.
func (db *DB) ListMedicalRecords(ctx context.Context, patient string) ([]models.MedicalRecord, error) {
	query := `
		SELECT id, patient_name, date, diagnosis, prescription, next_visit, doctor_name, created_at
		FROM medical_records`
	var args []interface{}

	if patient != "" {
		query += ` WHERE lower(patient_name) LIKE ?`
		args = append(args, "%"+strings.ToLower(patient)+"%")
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	defer rows.Close()

	records := make([]models.MedicalRecord, 0)
	for rows.Next() {
		var r models.MedicalRecord
		if err := rows.Scan(&r.ID, &r.PatientName, &r.Date, &r.Diagnosis, &r.Prescription, &r.NextVisit, &r.DoctorName, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DefaultMedicalRecords is seeded on first start.
var DefaultMedicalRecords = []models.MedicalRecord{
	{PatientName: "Sarah Johnson", Date: "2024-02-15", Diagnosis: "Common cold", Prescription: "Antibiotics", NextVisit: "2024-03-15", DoctorName: "Dr. Michael Smith"},
	{PatientName: "James Wilson", Date: "2024-02-20", Diagnosis: "Allergies", Prescription: "Antihistamines", NextVisit: "2024-03-20", DoctorName: "Dr. Emily Brown"},
}
