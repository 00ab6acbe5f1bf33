package events

import (
	"encoding/json"

	"clinicbook/internal/models"
)

// DecodeAppointment unmarshals an appointment event payload.
func DecodeAppointment(e Event) (*models.Appointment, error) {
	var appt models.Appointment
	if err := json.Unmarshal(e.Payload, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// DecodeHomeVisit unmarshals a home-visit event payload.
func DecodeHomeVisit(e Event) (*models.HomeVisitRequest, error) {
	var visit models.HomeVisitRequest
	if err := json.Unmarshal(e.Payload, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

// DecodeSupportInteraction unmarshals a support event payload.
func DecodeSupportInteraction(e Event) (*models.SupportInteraction, error) {
	var interaction models.SupportInteraction
	if err := json.Unmarshal(e.Payload, &interaction); err != nil {
		return nil, err
	}
	return &interaction, nil
}
