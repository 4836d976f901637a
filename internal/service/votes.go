package service

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// VoteSkip records a skip vote against the current track. Reaching the
// configured threshold skips it.
func (s *Service) VoteSkip(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	var skipped string
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsParticipant(userID) {
			return apperrors.ErrNotParticipant
		}
		if !session.Settings.VoteToSkipEnabled {
			return apperrors.New(apperrors.ErrCodeInvalidRequest, "vote to skip is disabled", http.StatusBadRequest)
		}
		if session.CurrentTrack == nil {
			return apperrors.New(apperrors.ErrCodeInvalidRequest, "nothing is playing", http.StatusBadRequest)
		}
		trackID := session.CurrentTrack.Track.ID
		for _, v := range session.Votes.Skip {
			if v.UserID == userID && v.TrackID == trackID {
				return apperrors.ErrAlreadyVoted
			}
		}
		session.Votes.Skip = append(session.Votes.Skip, domain.Vote{
			UserID:  userID,
			TrackID: trackID,
			VotedAt: time.Now(),
		})
		if len(session.Votes.Skip) >= session.Settings.SkipVoteThreshold {
			skipped = trackID
			s.advance(session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if skipped != "" {
		s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventTrackSkipped, map[string]interface{}{
			"track_id":   skipped,
			"skipped_by": "vote",
		})
		s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventPlaybackAdvanced, session.CurrentTrack)
		s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventQueueUpdated, session.Queue)
		s.repopulateAsync(sessionID)
		s.log.Info("track skipped by vote",
			logger.String("session_id", sessionID),
			logger.String("track_id", skipped))
	}
	return session, nil
}

// VoteLike records a like vote for a queued or playing track. Liked tracks
// boost their artists in future generation rounds.
func (s *Service) VoteLike(ctx context.Context, sessionID, userID, trackID string) (*domain.Session, error) {
	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if !session.IsParticipant(userID) {
			return apperrors.ErrNotParticipant
		}
		playing := session.CurrentTrack != nil && session.CurrentTrack.Track.ID == trackID
		if !playing && !session.HasQueuedTrack(trackID) {
			return apperrors.New(apperrors.ErrCodeInvalidRequest, "track is not in this session", http.StatusBadRequest)
		}
		for _, v := range session.Votes.Like {
			if v.UserID == userID && v.TrackID == trackID {
				return apperrors.ErrAlreadyVoted
			}
		}
		session.Votes.Like = append(session.Votes.Like, domain.Vote{
			UserID:  userID,
			TrackID: trackID,
			VotedAt: time.Now(),
		})
		return nil
	})
}
