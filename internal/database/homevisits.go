package database

import (
	"context"
	"fmt"
	"time"

	"clinicbook/internal/models"
)

// AddHomeVisit appends one home-visit request to the queue.
func (db *DB) AddHomeVisit(ctx context.Context, v *models.HomeVisitRequest) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
		INSERT INTO home_visits (patient_name, address, phone, date, time_slot, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.PatientName, v.Address, v.PhoneNumber, v.Date, v.TimeSlot, v.Status, now,
	)
	if err != nil {
		return fmt.Errorf("insert home visit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	v.ID = id
	v.CreatedAt = now
	return nil
}

// ListHomeVisits returns all home-visit requests, newest first.
func (db *DB) ListHomeVisits(ctx context.Context) ([]models.HomeVisitRequest, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, patient_name, address, phone, date, time_slot, status, created_at
		FROM home_visits ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list home visits: %w", err)
	}
	defer rows.Close()

	visits := make([]models.HomeVisitRequest, 0)
	for rows.Next() {
		var v models.HomeVisitRequest
		if err := rows.Scan(&v.ID, &v.PatientName, &v.Address, &v.PhoneNumber, &v.Date, &v.TimeSlot, &v.Status, &v.CreatedAt); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
