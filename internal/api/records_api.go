package api

import (
	"net/http"

	"clinicbook/internal/metrics"
)

// handleListRecords returns the medical-record history, newest visit first.
// An optional ?patient= narrows by patient name.
// GET /api/records
func (s *HTTPServer) handleListRecords(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("records")

	records, err := s.db.ListMedicalRecords(r.Context(), r.URL.Query().Get("patient"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}
