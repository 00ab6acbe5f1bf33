package api

import (
	"encoding/json"
	"net/http"

	"clinicbook/internal/metrics"
)

// SupportMessageRequest is the body for a chat message.
type SupportMessageRequest struct {
	Message string `json:"message"`
}

// SupportCallRequest is the body for a call-back request.
type SupportCallRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// handleSupportChat records a chat message.
// POST /api/support/chat
func (s *HTTPServer) handleSupportChat(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("support_chat")

	var req SupportMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	interaction, err := s.support.SendMessage(r.Context(), req.Message)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interaction)
}

// handleSupportCall records a call-back request and alerts staff.
// POST /api/support/call
func (s *HTTPServer) handleSupportCall(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("support_call")

	var req SupportCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	interaction, err := s.support.RequestCall(r.Context(), req.PhoneNumber)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interaction)
}

// handleSupportHistory returns the support history, oldest first.
// GET /api/support/history
func (s *HTTPServer) handleSupportHistory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("support_history")

	history, err := s.support.History(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// handleSupportClear wipes the support history.
// DELETE /api/support/history
func (s *HTTPServer) handleSupportClear(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("support_clear")

	if err := s.support.ClearHistory(r.Context()); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
