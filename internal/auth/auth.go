// Package auth handles account registration and session-token based login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"clinicbook/internal/database"
	"clinicbook/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login failures do not reveal which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrSessionExpired     = errors.New("session expired or not found")
)

// UserStore is the credential persistence the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*database.User, error)
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
}

// Service issues and validates sessions backed by a SessionRepository.
type Service struct {
	users      UserStore
	sessions   repository.SessionRepository
	sessionTTL time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func New(users UserStore, sessions repository.SessionRepository, sessionTTL time.Duration, logger *zerolog.Logger) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger.With().Str("component", "auth").Logger(),
		now:        time.Now,
	}
}

// Signup registers a new account and logs it in.
func (s *Service) Signup(ctx context.Context, email, password string) (*repository.Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info().Str("email", email).Int64("user_id", user.ID).Msg("account registered")
	return s.startSession(ctx, user)
}

// Login verifies credentials and issues a fresh session.
func (s *Service) Login(ctx context.Context, email, password string) (*repository.Session, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn().Str("email", email).Msg("failed login attempt")
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// Logout invalidates the session token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

// CurrentUser resolves a session token to its live session.
func (s *Service) CurrentUser(ctx context.Context, token string) (*repository.Session, error) {
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.sessions.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}
	return session, nil
}

func (s *Service) startSession(ctx context.Context, user *database.User) (*repository.Session, error) {
	now := s.now()
	session := &repository.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
