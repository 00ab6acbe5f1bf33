// Package scheduler runs the periodic temporal sweep and reminder dispatch.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clinicbook/internal/metrics"
	"clinicbook/internal/models"
	"clinicbook/internal/store"
)

// AppointmentSweeper is the slice of the appointment store the scheduler
// drives.
type AppointmentSweeper interface {
	RefreshTemporalStatus(ctx context.Context, now time.Time) (store.TemporalCounts, error)
	DueReminders(ctx context.Context, now time.Time, window time.Duration) ([]models.Appointment, error)
	MarkReminderSent(ctx context.Context, id int64) error
}

// ReminderSink receives due-appointment reminders.
type ReminderSink interface {
	Reminder(appt *models.Appointment)
}

// Scheduler periodically recomputes upcoming/past status and dispatches
// reminders for appointments starting within the reminder window.
type Scheduler struct {
	store    AppointmentSweeper
	sink     ReminderSink
	interval time.Duration
	window   time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func New(s AppointmentSweeper, sink ReminderSink, interval, window time.Duration, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:    s,
		sink:     sink,
		interval: interval,
		window:   window,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled. One sweep fires
// immediately so a restart does not delay overdue reminders.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("reminder_window", s.window).
		Msg("scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep: temporal recomputation plus reminder
// dispatch.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now()

	counts, err := s.store.RefreshTemporalStatus(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("temporal sweep failed")
		return
	}
	s.logger.Debug().
		Int("upcoming", counts.Upcoming).
		Int("past", counts.Past).
		Msg("temporal sweep done")

	s.dispatchReminders(ctx, now)
}

func (s *Scheduler) dispatchReminders(ctx context.Context, now time.Time) {
	due, err := s.store.DueReminders(ctx, now, s.window)
	if err != nil {
		s.logger.Error().Err(err).Msg("load due reminders failed")
		return
	}

	for i := range due {
		appt := &due[i]
		if s.sink != nil {
			s.sink.Reminder(appt)
		}
		if err := s.store.MarkReminderSent(ctx, appt.ID); err != nil {
			// Not marked means it will be re-sent next sweep, which
			// beats silently losing the reminder.
			s.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("mark reminder failed")
			continue
		}
		metrics.IncReminderSent()
		s.logger.Info().
			Int64("appointment_id", appt.ID).
			Str("date", appt.Date).
			Str("slot", appt.TimeSlot).
			Msg("reminder sent")
	}
}
