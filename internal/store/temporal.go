package store

import (
	"context"
	"time"

	"clinicbook/internal/metrics"
	"clinicbook/internal/models"
)

// TemporalCounts summarizes one recomputation sweep.
type TemporalCounts struct {
	Upcoming int
	Past     int
}

// RefreshTemporalStatus recomputes the derived temporal axis for every
// non-cancelled appointment relative to now. Pure function of current time:
// safe to call on every read or on a periodic tick. Cancelled records are
// never touched, and since time is non-decreasing a past appointment stays
// past.
func (s *Store) RefreshTemporalStatus(ctx context.Context, now time.Time) (TemporalCounts, error) {
	appointments, err := s.repo.ListAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return TemporalCounts{}, err
	}

	var counts TemporalCounts
	for _, a := range appointments {
		switch a.Temporal(now, s.loc) {
		case models.TemporalUpcoming:
			counts.Upcoming++
		case models.TemporalPast:
			counts.Past++
		}
	}

	metrics.SetUpcoming(counts.Upcoming)
	return counts, nil
}

// DueReminders returns non-cancelled appointments starting within the window
// after now whose reminder has not gone out yet.
func (s *Store) DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]models.Appointment, error) {
	appointments, err := s.repo.ListAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return nil, err
	}

	due := make([]models.Appointment, 0)
	for _, a := range appointments {
		if a.IsCancelled() || a.ReminderSent {
			continue
		}
		start, err := a.StartTime(s.loc)
		if err != nil {
			continue
		}
		if start.After(now) && start.Sub(now) <= window {
			due = append(due, a)
		}
	}
	return due, nil
}

// MarkReminderSent records that the reminder for an appointment went out.
func (s *Store) MarkReminderSent(ctx context.Context, id int64) error {
	return s.repo.MarkReminderSent(ctx, id)
}
