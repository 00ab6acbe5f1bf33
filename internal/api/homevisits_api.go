package api

import (
	"encoding/json"
	"net/http"

	"clinicbook/internal/metrics"
	"clinicbook/internal/models"
)

// HomeVisitRequestBody is the body for a home-visit request.
type HomeVisitRequestBody struct {
	PatientName string `json:"patient_name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	Date        string `json:"date"`
	TimeSlot    string `json:"time_slot"`
}

// handleRequestHomeVisit queues a home-visit request.
// POST /api/home-visits
func (s *HTTPServer) handleRequestHomeVisit(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("home_visit_request")

	var req HomeVisitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	visit, err := s.visits.Request(r.Context(), &models.HomeVisitRequest{
		PatientName: req.PatientName,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Date:        req.Date,
		TimeSlot:    req.TimeSlot,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

// handleListHomeVisits returns all home-visit requests, newest first.
// GET /api/home-visits
func (s *HTTPServer) handleListHomeVisits(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("home_visit_list")

	list, err := s.visits.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"home_visits": list})
}
