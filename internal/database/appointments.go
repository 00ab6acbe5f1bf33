package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"clinicbook/internal/models"
)

// CreateAppointment inserts a new appointment. The partial unique index on
// (doctor_id, date, time_slot) makes the conflict check and the insert a
// single atomic step: two concurrent writes for the same slot yield one
// success and one ErrSlotConflict. On success the record's ID and timestamps
// are filled in.
func (db *DB) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	minutes, err := models.SlotMinutes(a.TimeSlot)
	if err != nil {
		return err
	}

	now := time.Now()
	result, err := db.ExecContext(ctx, `
		INSERT INTO appointments (
			doctor_id, doctor_name, doctor_specialization,
			patient_name, phone, disease, notes,
			date, time_slot, slot_minutes, status, reminder_sent,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		a.DoctorID, a.DoctorName, a.DoctorSpecialization,
		a.PatientName, a.PhoneNumber, a.Disease, a.Notes,
		a.Date, a.TimeSlot, minutes, a.Status,
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAppointment returns the appointment by id, or ErrNotFound.
func (db *DB) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	var a models.Appointment
	err := db.QueryRowContext(ctx, `
		SELECT id, doctor_id, doctor_name, doctor_specialization,
		       patient_name, phone, disease, notes,
		       date, time_slot, status, reminder_sent, created_at, updated_at
		FROM appointments WHERE id = ?`,
		id,
	).Scan(
		&a.ID, &a.DoctorID, &a.DoctorName, &a.DoctorSpecialization,
		&a.PatientName, &a.PhoneNumber, &a.Disease, &a.Notes,
		&a.Date, &a.TimeSlot, &a.Status, &a.ReminderSent, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &a, nil
}

// ListAppointments returns appointments ordered by date then slot. Zero-value
// filter fields are ignored. Callers receive copies, never shared state.
func (db *DB) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	query := `
		SELECT id, doctor_id, doctor_name, doctor_specialization,
		       patient_name, phone, disease, notes,
		       date, time_slot, status, reminder_sent, created_at, updated_at
		FROM appointments WHERE 1=1`
	var args []interface{}

	if f.DoctorID != 0 {
		query += " AND doctor_id = ?"
		args = append(args, f.DoctorID)
	}
	if f.Date != "" {
		query += " AND date = ?"
		args = append(args, f.Date)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Patient != "" {
		query += " AND lower(patient_name) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Patient)+"%")
	}

	query += " ORDER BY date, slot_minutes, id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(
			&a.ID, &a.DoctorID, &a.DoctorName, &a.DoctorSpecialization,
			&a.PatientName, &a.PhoneNumber, &a.Disease, &a.Notes,
			&a.Date, &a.TimeSlot, &a.Status, &a.ReminderSent, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// IsSlotBooked reports whether a non-cancelled appointment holds the triple.
// excludeID skips one appointment, for re-checks during reschedule; pass 0
// to check against all records.
func (db *DB) IsSlotBooked(ctx context.Context, doctorID int64, date, slot string, excludeID int64) (bool, error) {
	var count int64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = ? AND date = ? AND time_slot = ?
		  AND status != 'cancelled' AND id != ?`,
		doctorID, date, slot, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return count > 0, nil
}

// UpdateAppointment rewrites the mutable fields of an existing appointment.
// A slot move that collides with another non-cancelled appointment trips the
// unique index and returns ErrSlotConflict without partial mutation.
func (db *DB) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	minutes, err := models.SlotMinutes(a.TimeSlot)
	if err != nil {
		return err
	}

	now := time.Now()
	result, err := db.ExecContext(ctx, `
		UPDATE appointments
		SET patient_name = ?, phone = ?, disease = ?, notes = ?,
		    date = ?, time_slot = ?, slot_minutes = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		a.PatientName, a.PhoneNumber, a.Disease, a.Notes,
		a.Date, a.TimeSlot, minutes, a.Status, now,
		a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("update appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	a.UpdatedAt = now
	return nil
}

// SetAppointmentStatus updates only the lifecycle status.
func (db *DB) SetAppointmentStatus(ctx context.Context, id int64, status string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReminderSent records that the reminder for an appointment went out.
func (db *DB) MarkReminderSent(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE appointments SET reminder_sent = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	return err
}

// ListActiveAppointments returns all non-cancelled appointments.
// Used by the scheduler sweep; the collection is small by construction.
func (db *DB) ListActiveAppointments(ctx context.Context) ([]models.Appointment, error) {
	all, err := db.ListAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, a := range all {
		if !a.IsCancelled() {
			active = append(active, a)
		}
	}
	return active, nil
}
