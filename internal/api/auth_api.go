package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinicbook/internal/auth"
	"clinicbook/internal/metrics"
)

// CredentialsRequest is the body for signup and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse returns the issued session token.
type SessionResponse struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

// handleSignup registers an account and logs it in.
// POST /api/auth/signup
func (s *HTTPServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("auth_signup")

	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := s.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(session.Token, session.Email, session.ExpiresAt.Format(timeLayout)))
}

// handleLogin verifies credentials and issues a session.
// POST /api/auth/login
func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("auth_login")

	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session.Token, session.Email, session.ExpiresAt.Format(timeLayout)))
}

// handleLogout invalidates the presented token.
// POST /api/auth/logout
func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("auth_logout")

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func sessionResponse(token, email, expiresAt string) SessionResponse {
	return SessionResponse{Token: token, Email: email, ExpiresAt: expiresAt}
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

func (s *HTTPServer) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeStoreError(w, err)
	}
}
