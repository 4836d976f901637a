package service

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
	"github.com/whatisboom/blendroom-sub001/internal/queue"
)

// AddTrack appends a participant-chosen track to the queue. Tracks already
// queued or played in this session are rejected.
func (s *Service) AddTrack(ctx context.Context, sessionID, userID string, track domain.Track) (*domain.Session, error) {
	if track.ID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "track id required", http.StatusBadRequest)
	}
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsParticipant(userID) {
			return apperrors.ErrNotParticipant
		}
		if session.Settings.PlaybackMode == domain.PlaybackModeDJOnly && !session.IsDJ(userID) {
			return apperrors.ErrNotDJ
		}
		if session.HasQueuedTrack(track.ID) || session.HasPlayedTrack(track.ID) {
			return apperrors.ErrDuplicateTrack
		}
		if session.CurrentTrack != nil && session.CurrentTrack.Track.ID == track.ID {
			return apperrors.ErrDuplicateTrack
		}
		session.Queue = append(session.Queue, domain.QueueItem{
			Track:   track,
			AddedBy: userID,
			AddedAt: time.Now(),
		})
		session.Queue = queue.Normalize(session.Queue, s.stableZone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
	return session, nil
}

// RemoveTrack removes the queue item at the given position. DJs can remove
// anything; other participants only tracks they added themselves.
func (s *Service) RemoveTrack(ctx context.Context, sessionID, userID string, position int) (*domain.Session, error) {
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsParticipant(userID) {
			return apperrors.ErrNotParticipant
		}
		if position < 0 || position >= len(session.Queue) {
			return apperrors.ErrInvalidPosition
		}
		item := session.Queue[position]
		if !session.IsDJ(userID) && item.AddedBy != userID {
			return apperrors.ErrNotDJ
		}
		session.Queue = append(session.Queue[:position], session.Queue[position+1:]...)
		session.Queue = queue.Normalize(session.Queue, s.stableZone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
	s.repopulateAsync(sessionID)
	return session, nil
}

// ReorderTrack moves a queue item between positions. DJ only. Stability
// follows position: a track dragged into the stable zone becomes stable,
// one dragged out loses it.
func (s *Service) ReorderTrack(ctx context.Context, sessionID, userID string, from, to int) (*domain.Session, error) {
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsParticipant(userID) {
			return apperrors.ErrNotParticipant
		}
		if !session.IsDJ(userID) {
			return apperrors.ErrNotDJ
		}
		if from < 0 || from >= len(session.Queue) || to < 0 || to >= len(session.Queue) {
			return apperrors.ErrInvalidPosition
		}
		if from == to {
			return nil
		}
		item := session.Queue[from]
		rest := append(session.Queue[:from], session.Queue[from+1:]...)
		session.Queue = append(rest[:to], append([]domain.QueueItem{item}, rest[to:]...)...)
		session.Queue = queue.Normalize(session.Queue, s.stableZone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
	s.log.Debug("queue reordered",
		logger.String("session_id", sessionID),
		logger.Int("from", from),
		logger.Int("to", to))
	return session, nil
}

func (s *Service) stableZone() int {
	return s.queueCfg.StableZone
}
