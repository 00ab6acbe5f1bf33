package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// recoveryCheckInterval is how long to wait before probing a downed primary.
const recoveryCheckInterval = time.Minute

// FailoverSessionRepository reads and writes through the primary store and
// falls back to the secondary when the primary errors. Writes go to both so
// the fallback stays warm.
type FailoverSessionRepository struct {
	primary  SessionRepository
	fallback SessionRepository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSessionRepository(primary, fallback SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// shouldTryPrimary reports whether the primary is up or due a recovery probe.
func (r *FailoverSessionRepository) shouldTryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) >= recoveryCheckInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverSessionRepository) markDown(err error) {
	if r.isDown.CompareAndSwap(false, true) {
		r.logger.Warn().Err(err).Msg("primary session store down, using fallback")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverSessionRepository) markUp() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("primary session store recovered")
	}
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, session *Session) error {
	// The fallback is always written so a later failover still finds the
	// session.
	if err := r.fallback.SetSession(ctx, session); err != nil {
		r.logger.Error().Err(err).Msg("fallback session write failed")
	}

	if !r.shouldTryPrimary() {
		return nil
	}

	if err := r.primary.SetSession(ctx, session); err != nil {
		r.markDown(err)
		return nil
	}
	r.markUp()
	return nil
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, token string) (*Session, error) {
	if r.shouldTryPrimary() {
		session, err := r.primary.GetSession(ctx, token)
		if err == nil {
			r.markUp()
			return session, nil
		}
		if err == ErrSessionNotFound {
			r.markUp()
			// The primary may have restarted empty; the fallback is
			// authoritative for sessions it still holds.
			return r.fallback.GetSession(ctx, token)
		}
		r.markDown(err)
	}
	return r.fallback.GetSession(ctx, token)
}

func (r *FailoverSessionRepository) DeleteSession(ctx context.Context, token string) error {
	_ = r.fallback.DeleteSession(ctx, token)

	if !r.shouldTryPrimary() {
		return nil
	}
	if err := r.primary.DeleteSession(ctx, token); err != nil {
		r.markDown(err)
	}
	return nil
}
