package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"clinicbook/internal/metrics"
	"clinicbook/internal/models"
)

// MaxAvailabilityDaysRange caps the date range of one availability request.
const MaxAvailabilityDaysRange = 90

// AvailabilityRequest is the request body for POST /api/availability.
type AvailabilityRequest struct {
	StartDate string  `json:"start_date"`           // Format: YYYY-MM-DD
	EndDate   string  `json:"end_date"`             // Format: YYYY-MM-DD
	DoctorIDs []int64 `json:"doctor_ids,omitempty"` // Optional: filter by doctor IDs
}

// DateAvailability summarizes one doctor's day.
type DateAvailability struct {
	Date      string `json:"date"`
	FreeSlots int    `json:"free_slots"`
	Available bool   `json:"available"`
}

// DoctorAvailability is a doctor with per-date availability.
type DoctorAvailability struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Specialization string             `json:"specialization"`
	Availability   []DateAvailability `json:"availability"`
}

// AvailabilityResponse is the response for POST /api/availability.
type AvailabilityResponse struct {
	Doctors []DoctorAvailability `json:"doctors"`
	Period  struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
}

// handleAvailabilityRange returns availability for doctors within a date
// range.
// POST /api/availability
func (s *HTTPServer) handleAvailabilityRange(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	var req AvailabilityRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, end, err := validateAvailabilityRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doctors, err := s.db.ListDoctors(r.Context(), "")
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	result := make([]DoctorAvailability, 0)
	for _, doctor := range doctors {
		if !includeDoctor(doctor, req.DoctorIDs) {
			continue
		}

		availability := make([]DateAvailability, 0)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			date := d.Format(models.DateLayout)
			slots, err := s.store.AvailableSlots(r.Context(), doctor.ID, date)
			if err != nil {
				s.writeStoreError(w, err)
				return
			}

			free := 0
			for _, slot := range slots {
				if slot.Available {
					free++
				}
			}
			availability = append(availability, DateAvailability{
				Date:      date,
				FreeSlots: free,
				Available: free > 0,
			})
		}

		result = append(result, DoctorAvailability{
			ID:             doctor.ID,
			Name:           doctor.Name,
			Specialization: doctor.Specialization,
			Availability:   availability,
		})
	}

	response := AvailabilityResponse{Doctors: result}
	response.Period.Start = req.StartDate
	response.Period.End = req.EndDate
	writeJSON(w, http.StatusOK, response)
}

func validateAvailabilityRequest(req *AvailabilityRequest) (start, end time.Time, err error) {
	if req.StartDate == "" || req.EndDate == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date and end_date are required")
	}

	start, err = time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}
	end, err = time.Parse(models.DateLayout, req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before or equal to end_date")
	}
	if int(end.Sub(start).Hours()/24) > MaxAvailabilityDaysRange {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", MaxAvailabilityDaysRange)
	}
	return start, end, nil
}

func includeDoctor(doctor models.Doctor, ids []int64) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if doctor.ID == id {
			return true
		}
	}
	return false
}
