// Package support records patient support interactions: chat messages and
// call-back requests.
package support

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"clinicbook/internal/events"
	"clinicbook/internal/models"
	"clinicbook/internal/store"
)

// HistoryStore is the persistence the service needs.
type HistoryStore interface {
	AddSupportInteraction(ctx context.Context, s *models.SupportInteraction) error
	ListSupportHistory(ctx context.Context) ([]models.SupportInteraction, error)
	ClearSupportHistory(ctx context.Context) error
}

// Service keeps the support history and raises call-back requests.
type Service struct {
	history HistoryStore
	bus     store.Publisher
	logger  zerolog.Logger
}

func New(history HistoryStore, bus store.Publisher, logger *zerolog.Logger) *Service {
	return &Service{
		history: history,
		bus:     bus,
		logger:  logger.With().Str("component", "support").Logger(),
	}
}

// SendMessage records a chat message from the patient.
func (s *Service) SendMessage(ctx context.Context, message string) (*models.SupportInteraction, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &store.ValidationError{Fields: []string{"message"}}
	}

	interaction := &models.SupportInteraction{
		Type:    models.SupportTypeChat,
		Content: message,
		Status:  models.SupportStatusSent,
	}
	if err := s.history.AddSupportInteraction(ctx, interaction); err != nil {
		return nil, err
	}
	return interaction, nil
}

// RequestCall records a call-back request for the given phone number and
// publishes it so staff get notified.
func (s *Service) RequestCall(ctx context.Context, phoneNumber string) (*models.SupportInteraction, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, &store.ValidationError{Fields: []string{"phone_number"}}
	}

	interaction := &models.SupportInteraction{
		Type:    models.SupportTypeCall,
		Content: phoneNumber,
		Status:  models.SupportStatusRequested,
	}
	if err := s.history.AddSupportInteraction(ctx, interaction); err != nil {
		return nil, err
	}

	if err := s.bus.PublishJSON(events.TypeSupportRequested, interaction); err != nil {
		s.logger.Error().Err(err).Msg("publish support request")
	}
	s.logger.Info().Str("phone", phoneNumber).Msg("call-back requested")
	return interaction, nil
}

// History returns the full support history, oldest first.
func (s *Service) History(ctx context.Context) ([]models.SupportInteraction, error) {
	return s.history.ListSupportHistory(ctx)
}

// ClearHistory wipes the support history.
func (s *Service) ClearHistory(ctx context.Context) error {
	return s.history.ClearSupportHistory(ctx)
}
