package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"clinicbook/internal/auth"
	"clinicbook/internal/repository"
)

type contextKey string

const sessionKey contextKey = "session"

// withRequestID tags every request with an ID and logs its outcome.
func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		logger := s.logger.With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		logger.Debug().Msg("request")

		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession authenticates via Bearer token and stores the session in
// the request context.
func (s *HTTPServer) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		session, err := s.auth.CurrentUser(r.Context(), token)
		if err != nil {
			if err == auth.ErrSessionExpired {
				writeError(w, http.StatusUnauthorized, "session expired or not found")
				return
			}
			s.writeStoreError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// sessionFrom returns the authenticated session, or nil on public routes.
func sessionFrom(ctx context.Context) *repository.Session {
	session, _ := ctx.Value(sessionKey).(*repository.Session)
	return session
}
