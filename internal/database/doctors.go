package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clinicbook/internal/models"
)

// SeedDoctors inserts catalog entries that are not present yet. The doctor
// directory is read-only at runtime; this runs once at startup.
func (db *DB) SeedDoctors(ctx context.Context, doctors []models.Doctor) error {
	for _, d := range doctors {
		_, err := db.ExecContext(ctx, `
			INSERT INTO doctors (name, specialization, qualification, experience, rating, availability)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO NOTHING`,
			d.Name, d.Specialization, d.Qualification, d.Experience, d.Rating, d.Availability,
		)
		if err != nil {
			return fmt.Errorf("seed doctor %s: %w", d.Name, err)
		}
	}
	return nil
}

// GetDoctor returns a catalog entry by id, or ErrNotFound.
func (db *DB) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	var d models.Doctor
	err := db.QueryRowContext(ctx, `
		SELECT id, name, specialization, qualification, experience, rating, availability, created_at
		FROM doctors WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Name, &d.Specialization, &d.Qualification, &d.Experience, &d.Rating, &d.Availability, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return &d, nil
}

// ListDoctors returns the directory, optionally filtered by a case-insensitive
// search over name and specialization.
func (db *DB) ListDoctors(ctx context.Context, search string) ([]models.Doctor, error) {
	query := `
		SELECT id, name, specialization, qualification, experience, rating, availability, created_at
		FROM doctors`
	var args []interface{}

	if search != "" {
		query += ` WHERE lower(name) LIKE ? OR lower(specialization) LIKE ?`
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	doctors := make([]models.Doctor, 0)
	for rows.Next() {
		var d models.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization, &d.Qualification, &d.Experience, &d.Rating, &d.Availability, &d.CreatedAt); err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}

// DefaultDoctors is the clinic directory seeded on first start.
var DefaultDoctors = []models.Doctor{
	{Name: "Dr. Michael Smith", Specialization: "Cardiologist", Qualification: "MD, FACC", Experience: "15 years", Rating: 4.8, Availability: "Mon-Fri"},
	{Name: "Dr. Emily Brown", Specialization: "Neurologist", Qualification: "MD, PhD", Experience: "12 years", Rating: 4.9, Availability: "Mon-Sat"},
	{Name: "Dr. David Wilson", Specialization: "Pediatrician", Qualification: "MBBS, MD", Experience: "10 years", Rating: 4.7, Availability: "Tue-Sat"},
	{Name: "Dr. Sarah Chen", Specialization: "Dermatologist", Qualification: "MD, FAAD", Experience: "8 years", Rating: 4.9, Availability: "Mon-Fri"},
	{Name: "Dr. James Anderson", Specialization: "Orthopedic Surgeon", Qualification: "MD, FACS", Experience: "18 years", Rating: 4.8, Availability: "Mon-Thu"},
	{Name: "Dr. Lisa Patel", Specialization: "Psychiatrist", Qualification: "MD, PhD", Experience: "14 years", Rating: 4.9, Availability: "Mon-Sat"},
	{Name: "Dr. Robert Taylor", Specialization: "Ophthalmologist", Qualification: "MD, FACS", Experience: "16 years", Rating: 4.7, Availability: "Mon-Fri"},
	{Name: "Dr. Maria Garcia", Specialization: "Endocrinologist", Qualification: "MD, PhD", Experience: "11 years", Rating: 4.8, Availability: "Mon-Fri"},
	{Name: "Dr. Thomas Lee", Specialization: "ENT Specialist", Qualification: "MD, FACS", Experience: "13 years", Rating: 4.6, Availability: "Mon-Sat"},
}
