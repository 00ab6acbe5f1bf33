package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	appointmentBooked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "appointment_booked_total",
			Help:      "Count of appointments booked by lifecycle status.",
		},
		[]string{"status"},
	)

	appointmentCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "appointment_cancelled_total",
			Help:      "Count of appointments cancelled.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "slot_conflict_total",
			Help:      "Count of bookings rejected because the slot was taken.",
		},
	)

	validationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "validation_failed_total",
			Help:      "Count of bookings rejected by field validation.",
		},
	)

	upcomingAppointments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clinicbook",
			Name:      "upcoming_appointments",
			Help:      "Non-cancelled appointments not yet past, per last sweep.",
		},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "reminders_sent_total",
			Help:      "Count of appointment reminders delivered.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			appointmentBooked,
			appointmentCancelled,
			slotConflicts,
			validationFailures,
			upcomingAppointments,
			remindersSent,
			httpRequests,
		)
	})
}

func IncBooked(status string) {
	appointmentBooked.WithLabelValues(status).Inc()
}

func IncCancelled() {
	appointmentCancelled.Inc()
}

func IncSlotConflict() {
	slotConflicts.Inc()
}

func IncValidationFailed() {
	validationFailures.Inc()
}

func SetUpcoming(n int) {
	upcomingAppointments.Set(float64(n))
}

func IncReminderSent() {
	remindersSent.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
