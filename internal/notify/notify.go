// Package notify pushes clinic staff notifications through Telegram.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"clinicbook/internal/models"
)

// sender is the slice of the Telegram API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends appointment and support notices to manager chats. A nil
// Notifier is valid and drops everything, so callers never have to branch on
// whether Telegram is configured.
type Notifier struct {
	api     sender
	chatIDs []int64
	logger  zerolog.Logger
}

// New builds a notifier from a bot token and manager chat IDs. An empty
// token disables notifications and returns nil.
func New(token string, chatIDs []int64, logger *zerolog.Logger) (*Notifier, error) {
	if token == "" || len(chatIDs) == 0 {
		logger.Info().Msg("telegram notifications disabled")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	return &Notifier{
		api:     api,
		chatIDs: chatIDs,
		logger:  logger.With().Str("component", "notify").Logger(),
	}, nil
}

// AppointmentBooked announces a new booking.
func (n *Notifier) AppointmentBooked(appt *models.Appointment) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("New appointment #%d\n%s with %s\n%s at %s",
		appt.ID, appt.PatientName, appt.DoctorName, appt.Date, appt.TimeSlot)
	n.broadcast(text)
}

// AppointmentCancelled announces a cancellation, freeing the slot for others.
func (n *Notifier) AppointmentCancelled(appt *models.Appointment) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("Appointment #%d cancelled\n%s with %s\n%s at %s is free again",
		appt.ID, appt.PatientName, appt.DoctorName, appt.Date, appt.TimeSlot)
	n.broadcast(text)
}

// Reminder notifies staff that a patient visit is coming up.
func (n *Notifier) Reminder(appt *models.Appointment) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("Reminder: %s sees %s on %s at %s (appointment #%d)",
		appt.PatientName, appt.DoctorName, appt.Date, appt.TimeSlot, appt.ID)
	n.broadcast(text)
}

// HomeVisitRequested alerts staff that a patient asked for a visit at home.
func (n *Notifier) HomeVisitRequested(visit *models.HomeVisitRequest) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("Home visit requested by %s\n%s at %s\n%s, phone %s",
		visit.PatientName, visit.Date, visit.TimeSlot, visit.Address, visit.PhoneNumber)
	n.broadcast(text)
}

// CallBackRequested alerts staff about a support call-back request.
func (n *Notifier) CallBackRequested(phoneNumber string) {
	if n == nil {
		return
	}
	n.broadcast("Call-back requested: " + phoneNumber)
}

func (n *Notifier) broadcast(text string) {
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.api.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
		}
	}
}
