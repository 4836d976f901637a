// Package service orchestrates session lifecycle, queue edits, playback and
// voting on top of the queue engine. Handlers call into here; nothing below
// this layer knows about HTTP.
package service

import (
	"context"
	"net/http"
	"time"

	"github.com/whatisboom/blendroom-sub001/pkg/config"
	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/catalog"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
	"github.com/whatisboom/blendroom-sub001/internal/profile"
	"github.com/whatisboom/blendroom-sub001/internal/queue"
	"github.com/whatisboom/blendroom-sub001/internal/store"
)

// lockRetryInterval and lockRetryBudget bound how long a user-initiated
// mutation waits for a background regeneration to release the session.
const (
	lockRetryInterval = 20 * time.Millisecond
	lockRetryBudget   = 500 * time.Millisecond
)

// Service exposes all session operations.
type Service struct {
	store       *store.SessionStore
	analyzer    *profile.Analyzer
	locks       *queue.SessionLocks
	repopulator *queue.Repopulator
	regenerator *queue.Regenerator
	broadcaster broadcast.Broadcaster
	catalog     catalog.Catalog
	queueCfg    config.QueueConfig
	log         logger.Logger
}

// New creates the service.
func New(
	st *store.SessionStore,
	analyzer *profile.Analyzer,
	locks *queue.SessionLocks,
	repopulator *queue.Repopulator,
	regenerator *queue.Regenerator,
	broadcaster broadcast.Broadcaster,
	cat catalog.Catalog,
	queueCfg config.QueueConfig,
	log logger.Logger,
) *Service {
	return &Service{
		store:       st,
		analyzer:    analyzer,
		locks:       locks,
		repopulator: repopulator,
		regenerator: regenerator,
		broadcaster: broadcaster,
		catalog:     cat,
		queueCfg:    queueCfg,
		log:         log,
	}
}

// withSessionLock runs fn holding the session's engine lock, briefly
// retrying while a background run holds it. User edits and background
// regeneration go through the same lock, so neither can overwrite the
// other's read-modify-write.
func (s *Service) withSessionLock(ctx context.Context, sessionID string, fn func() error) error {
	deadline := time.Now().Add(lockRetryBudget)
	for !s.locks.TryLock(sessionID) {
		if time.Now().After(deadline) {
			return apperrors.ErrRegenerationInProgress
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeInternal, "request cancelled", http.StatusInternalServerError)
		case <-time.After(lockRetryInterval):
		}
	}
	defer s.locks.Unlock(sessionID)
	return fn()
}

// repopulateAsync tops up the queue in the background after a shrink event.
func (s *Service) repopulateAsync(sessionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.repopulator.MaybeRepopulate(ctx, sessionID)
	}()
}

// mutate loads the session, applies fn, and persists it, all under the
// session lock. fn may modify the session in place; returning an error
// aborts without persisting.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*domain.Session) error) (*domain.Session, error) {
	var session *domain.Session
	err := s.withSessionLock(ctx, sessionID, func() error {
		var err error
		session, err = s.store.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		return s.store.Set(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}
