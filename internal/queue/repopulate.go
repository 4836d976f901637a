package queue

import (
	"context"

	"github.com/whatisboom/blendroom-sub001/pkg/config"
	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// SessionStore is the session persistence surface the controllers need.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Set(ctx context.Context, session *domain.Session) error
}

// Repopulator tops a session's queue back up after playback shrinks it.
// It shares the per-session lock registry with the Regenerator, so two
// shrink events, or a shrink event and a regeneration, cannot both run the
// read-modify-write cycle at once.
type Repopulator struct {
	store       SessionStore
	generator   QueueGenerator
	locks       *SessionLocks
	broadcaster broadcast.Broadcaster
	cfg         config.QueueConfig
	log         logger.Logger
}

// NewRepopulator creates a repopulation controller.
func NewRepopulator(store SessionStore, generator QueueGenerator, locks *SessionLocks, broadcaster broadcast.Broadcaster, cfg config.QueueConfig, log logger.Logger) *Repopulator {
	return &Repopulator{
		store:       store,
		generator:   generator,
		locks:       locks,
		broadcaster: broadcaster,
		cfg:         cfg,
		log:         log,
	}
}

// MaybeRepopulate generates tracks to bring the queue from below the
// minimum back up to the maximum size, and reports whether it changed the
// queue. It never returns an error: a session without a profile is an
// expected transient state, and generation or storage failures are logged
// and retried on the next shrink event. Playback keeps going either way.
func (r *Repopulator) MaybeRepopulate(ctx context.Context, sessionID string) bool {
	if !r.locks.TryLock(sessionID) {
		// Another repopulation or a regeneration is mid-flight; it will
		// observe the current queue length itself.
		return false
	}
	defer r.locks.Unlock(sessionID)

	session, err := r.store.Get(ctx, sessionID)
	if err != nil {
		if !apperrors.IsError(err, apperrors.ErrSessionNotFound) {
			r.log.Error("repopulation could not load session",
				logger.String("session_id", sessionID),
				logger.Error(err))
		}
		return false
	}

	if len(session.Queue) >= r.cfg.MinSize {
		return false
	}
	if session.Profile == nil {
		return false
	}

	target := r.cfg.MaxSize - len(session.Queue)
	items, err := r.generator.Generate(ctx, session, target)
	if err != nil {
		if !apperrors.IsError(err, apperrors.ErrProfileNotReady) {
			r.log.Warn("repopulation generation failed",
				logger.String("session_id", sessionID),
				logger.Int("target", target),
				logger.Error(err))
		}
		return false
	}
	if len(items) == 0 {
		return false
	}

	// The whole surviving queue acts as the protected prefix here; new
	// tracks only ever append.
	session.Queue = Merge(session.Queue, items, r.cfg.StableZone)
	if err := r.store.Set(ctx, session); err != nil {
		r.log.Error("repopulation could not persist session",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return false
	}

	r.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
	r.log.Info("queue repopulated",
		logger.String("session_id", sessionID),
		logger.Int("added", len(items)),
		logger.Int("queue_len", len(session.Queue)))
	return true
}
