// Package api exposes the clinic over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"clinicbook/internal/auth"
	"clinicbook/internal/database"
	"clinicbook/internal/export"
	"clinicbook/internal/store"
	"clinicbook/internal/support"
	"clinicbook/internal/visits"
)

// HTTPServer serves the clinic API.
type HTTPServer struct {
	store    *store.Store
	db       *database.DB
	auth     *auth.Service
	support  *support.Service
	visits   *visits.Service
	exporter *export.Exporter
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

func NewHTTPServer(s *store.Store, db *database.DB, authSvc *auth.Service, supportSvc *support.Service, visitSvc *visits.Service, exporter *export.Exporter, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		store:    s,
		db:       db,
		auth:     authSvc,
		support:  supportSvc,
		visits:   visitSvc,
		exporter: exporter,
		limiter:  rate.NewLimiter(rate.Limit(50), 100),
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Routes builds the full handler chain.
func (s *HTTPServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/doctors", s.handleListDoctors)
	mux.HandleFunc("GET /api/doctors/{id}/availability", s.handleDoctorAvailability)
	mux.HandleFunc("POST /api/availability", s.handleAvailabilityRange)
	mux.HandleFunc("GET /api/slots/check", s.handleSlotCheck)

	mux.Handle("POST /api/appointments", s.requireSession(s.handleBook))
	mux.Handle("GET /api/appointments", s.requireSession(s.handleListAppointments))
	mux.Handle("GET /api/appointments/export", s.requireSession(s.handleExport))
	mux.Handle("GET /api/appointments/{id}", s.requireSession(s.handleGetAppointment))
	mux.Handle("PATCH /api/appointments/{id}", s.requireSession(s.handleUpdateAppointment))
	mux.Handle("POST /api/appointments/{id}/confirm", s.requireSession(s.handleConfirm))
	mux.Handle("POST /api/appointments/{id}/cancel", s.requireSession(s.handleCancel))

	mux.Handle("GET /api/records", s.requireSession(s.handleListRecords))

	mux.Handle("POST /api/home-visits", s.requireSession(s.handleRequestHomeVisit))
	mux.Handle("GET /api/home-visits", s.requireSession(s.handleListHomeVisits))

	mux.Handle("POST /api/support/chat", s.requireSession(s.handleSupportChat))
	mux.Handle("POST /api/support/call", s.requireSession(s.handleSupportCall))
	mux.Handle("GET /api/support/history", s.requireSession(s.handleSupportHistory))
	mux.Handle("DELETE /api/support/history", s.requireSession(s.handleSupportClear))

	return s.withRequestID(s.withRateLimit(mux))
}

// Start serves the API until ctx is cancelled, then drains in-flight
// requests.
func (s *HTTPServer) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info().Str("addr", addr).Msg("api server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeStoreError maps domain errors onto HTTP statuses.
func (s *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	var v *store.ValidationError
	switch {
	case errors.As(err, &v):
		writeError(w, http.StatusBadRequest, v.Error())
	case errors.Is(err, store.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot is already booked for this doctor")
	case errors.Is(err, store.ErrCancelled):
		writeError(w, http.StatusConflict, "appointment is cancelled")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrPastDate):
		writeError(w, http.StatusBadRequest, "slot is in the past")
	case errors.Is(err, store.ErrDateTooFar):
		writeError(w, http.StatusBadRequest, "date is too far ahead")
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
