package queue

import (
	"context"
	"sync"
	"time"

	"github.com/whatisboom/blendroom-sub001/pkg/config"
	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// ProfileAggregator recomputes the session profile from current membership.
type ProfileAggregator interface {
	Aggregate(ctx context.Context, participants []domain.Participant) (*domain.SessionProfile, error)
}

// Regenerator rebuilds the non-stable portion of a session's queue after
// membership changes. Each session moves through idle, pending (debounce
// timer armed) and running; rapid join/leave bursts reset the timer instead
// of stacking runs, and at most one regeneration runs per session at a time.
type Regenerator struct {
	store       SessionStore
	aggregator  ProfileAggregator
	generator   QueueGenerator
	locks       *SessionLocks
	broadcaster broadcast.Broadcaster
	queueCfg    config.QueueConfig
	debounce    time.Duration
	timeout     time.Duration
	log         logger.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewRegenerator creates a regeneration controller. It shares locks with
// the Repopulator.
func NewRegenerator(store SessionStore, aggregator ProfileAggregator, generator QueueGenerator, locks *SessionLocks, broadcaster broadcast.Broadcaster, queueCfg config.QueueConfig, regenCfg config.RegenConfig, log logger.Logger) *Regenerator {
	return &Regenerator{
		store:       store,
		aggregator:  aggregator,
		generator:   generator,
		locks:       locks,
		broadcaster: broadcaster,
		queueCfg:    queueCfg,
		debounce:    regenCfg.Debounce,
		timeout:     regenCfg.Timeout,
		log:         log,
		timers:      make(map[string]*time.Timer),
	}
}

// NotifyMembershipChange arms (or re-arms) the session's debounce timer.
// The regeneration that eventually fires reads the membership current at
// fire time, so it reflects where the burst settled, not any intermediate
// state.
func (r *Regenerator) NotifyMembershipChange(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if t, ok := r.timers[sessionID]; ok {
		t.Stop()
	}
	r.timers[sessionID] = time.AfterFunc(r.debounce, func() {
		r.fire(sessionID)
	})
}

// Cancel stops a pending regeneration for a session that no longer exists.
// A timer that already fired is harmless: the run finds no session and
// stops.
func (r *Regenerator) Cancel(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[sessionID]; ok {
		t.Stop()
		delete(r.timers, sessionID)
	}
}

// Close cancels all pending timers. Used at shutdown.
func (r *Regenerator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

// Pending reports whether a debounce timer is armed for the session.
func (r *Regenerator) Pending(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[sessionID]
	return ok
}

func (r *Regenerator) fire(sessionID string) {
	r.mu.Lock()
	delete(r.timers, sessionID)
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	if !r.locks.TryLock(sessionID) {
		// A run is already in flight for this session. Re-debounce so this
		// trigger is honored once the running one finishes.
		r.log.Debug("regeneration deferred, session busy",
			logger.String("session_id", sessionID))
		r.NotifyMembershipChange(sessionID)
		return
	}
	defer r.locks.Unlock(sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.run(ctx, sessionID)
}

func (r *Regenerator) run(ctx context.Context, sessionID string) {
	session, err := r.store.Get(ctx, sessionID)
	if apperrors.IsError(err, apperrors.ErrSessionNotFound) {
		// Session ended while the timer was pending.
		return
	}
	if err != nil {
		r.log.Error("regeneration could not load session",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return
	}

	profile, err := r.aggregator.Aggregate(ctx, session.Participants)
	if err != nil {
		r.log.Warn("regeneration could not aggregate profiles",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return
	}
	session.Profile = profile

	stable := StablePrefix(session.Queue, r.queueCfg.StableZone)
	target := r.queueCfg.MaxSize - len(stable)

	// Dedup against the stable prefix and play history only; the non-stable
	// items being replaced are fair game for re-selection.
	scratch := *session
	scratch.Queue = stable
	items, err := r.generator.Generate(ctx, &scratch, target)
	if err != nil {
		r.log.Warn("regeneration generation failed",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return
	}

	session.Queue = Merge(stable, items, r.queueCfg.StableZone)
	if err := r.store.Set(ctx, session); err != nil {
		r.log.Error("regeneration could not persist session",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return
	}

	r.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
	r.log.Info("queue regenerated",
		logger.String("session_id", sessionID),
		logger.Int("participants", len(session.Participants)),
		logger.Int("queue_len", len(session.Queue)))
}
