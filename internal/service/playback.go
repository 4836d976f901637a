package service

import (
	"context"
	"net/http"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
	"github.com/whatisboom/blendroom-sub001/internal/queue"
)

// advance moves the head of the queue into the current-track slot and files
// the finished track into the play history. Callers hold the session lock.
func (s *Service) advance(session *domain.Session) {
	if session.CurrentTrack != nil {
		session.PlayedTracks = append(session.PlayedTracks, session.CurrentTrack.Track.ID)
		session.CurrentTrack = nil
	}
	if len(session.Queue) > 0 {
		next := session.Queue[0]
		session.Queue = session.Queue[1:]
		session.CurrentTrack = &next
	}
	session.Queue = queue.Normalize(session.Queue, s.stableZone())
	// A finished track's votes are meaningless for the next one.
	session.Votes.Skip = []domain.Vote{}
}

// AdvancePlayback moves to the next queued track, as when the current track
// finishes naturally. Any participant's player may report completion.
func (s *Service) AdvancePlayback(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsParticipant(userID) {
			return apperrors.ErrNotParticipant
		}
		s.advance(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventPlaybackAdvanced, session.CurrentTrack)
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
	s.repopulateAsync(sessionID)
	return session, nil
}

// SkipTrack skips the current track immediately. DJ only; participants
// without the role go through vote-to-skip instead.
func (s *Service) SkipTrack(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	var skipped string
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsParticipant(userID) {
			return apperrors.ErrNotParticipant
		}
		if !session.IsDJ(userID) {
			return apperrors.ErrNotDJ
		}
		if session.CurrentTrack == nil {
			return apperrors.New(apperrors.ErrCodeInvalidRequest, "nothing is playing", http.StatusBadRequest)
		}
		skipped = session.CurrentTrack.Track.ID
		s.advance(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventTrackSkipped, map[string]interface{}{
		"track_id":   skipped,
		"skipped_by": userID,
	})
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventPlaybackAdvanced, session.CurrentTrack)
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
	s.repopulateAsync(sessionID)
	s.log.Info("track skipped",
		logger.String("session_id", sessionID),
		logger.String("track_id", skipped),
		logger.String("user_id", userID))
	return session, nil
}
