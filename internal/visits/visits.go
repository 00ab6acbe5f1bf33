// Package visits queues home-visit requests. A home visit asks for a doctor
// at the patient's address; it never occupies a slot on the in-clinic grid,
// so requests carry no conflict checks, only validation.
package visits

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clinicbook/internal/events"
	"clinicbook/internal/models"
	"clinicbook/internal/store"
)

// Queue is the persistence the service needs.
type Queue interface {
	AddHomeVisit(ctx context.Context, v *models.HomeVisitRequest) error
	ListHomeVisits(ctx context.Context) ([]models.HomeVisitRequest, error)
}

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Service validates and records home-visit requests.
type Service struct {
	queue  Queue
	bus    store.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

func New(queue Queue, bus store.Publisher, logger *zerolog.Logger) *Service {
	return &Service{
		queue:  queue,
		bus:    bus,
		logger: logger.With().Str("component", "visits").Logger(),
		now:    time.Now,
	}
}

// Request validates req, stores it as pending and publishes it so staff get
// notified. Phone numbers must be exactly ten digits.
func (s *Service) Request(ctx context.Context, req *models.HomeVisitRequest) (*models.HomeVisitRequest, error) {
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.Address = strings.TrimSpace(req.Address)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	var invalid []string
	if req.PatientName == "" {
		invalid = append(invalid, "patient_name")
	}
	if req.Address == "" {
		invalid = append(invalid, "address")
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		invalid = append(invalid, "phone_number")
	}
	if !models.ValidDate(req.Date) {
		invalid = append(invalid, "date")
	}
	slot, err := models.NormalizeSlot(req.TimeSlot)
	if err != nil {
		invalid = append(invalid, "time_slot")
	}
	if len(invalid) > 0 {
		return nil, &store.ValidationError{Fields: invalid}
	}

	// YYYY-MM-DD compares lexicographically; today is still acceptable.
	if req.Date < s.now().Format(models.DateLayout) {
		return nil, store.ErrPastDate
	}

	visit := &models.HomeVisitRequest{
		PatientName: req.PatientName,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Date:        req.Date,
		TimeSlot:    slot,
		Status:      models.StatusPending,
	}
	if err := s.queue.AddHomeVisit(ctx, visit); err != nil {
		return nil, err
	}

	if err := s.bus.PublishJSON(events.TypeHomeVisitRequested, visit); err != nil {
		s.logger.Error().Err(err).Msg("publish home visit request")
	}
	s.logger.Info().Int64("id", visit.ID).Str("date", visit.Date).Msg("home visit requested")
	return visit, nil
}

// List returns all home-visit requests, newest first.
func (s *Service) List(ctx context.Context) ([]models.HomeVisitRequest, error) {
	return s.queue.ListHomeVisits(ctx)
}
