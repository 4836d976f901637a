package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/broadcast"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// joinCodeAttempts bounds collision retries when minting a join code.
const joinCodeAttempts = 5

// CreateSession starts a new session hosted by the given participant. The
// host becomes the first DJ. The session profile is computed best effort;
// if the catalog is unavailable the session still starts and the profile
// arrives with the first membership-triggered regeneration.
func (s *Service) CreateSession(ctx context.Context, host domain.Participant) (*domain.Session, error) {
	if host.UserID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "host user id required", http.StatusBadRequest)
	}

	code, err := s.mintJoinCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	host.JoinedAt = now
	session := &domain.Session{
		ID:                    uuid.NewString(),
		Code:                  code,
		HostID:                host.UserID,
		Participants:          []domain.Participant{host},
		DJs:                   []string{host.UserID},
		Settings:              domain.DefaultSettings(),
		Queue:                 []domain.QueueItem{},
		PlayedTracks:          []string{},
		Votes:                 domain.Votes{Skip: []domain.Vote{}, Like: []domain.Vote{}},
		CreatedAt:             now,
		LastParticipantChange: now,
	}

	if profile, err := s.analyzer.Aggregate(ctx, session.Participants); err != nil {
		s.log.Warn("session created without profile",
			logger.String("session_id", session.ID),
			logger.Error(err))
	} else {
		session.Profile = profile
	}

	if err := s.store.Set(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("session created",
		logger.String("session_id", session.ID),
		logger.String("host_id", host.UserID),
		logger.String("code", session.Code))

	// Seed the initial queue once the session exists.
	s.repopulateAsync(session.ID)
	return session, nil
}

func (s *Service) mintJoinCode(ctx context.Context) (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := domain.NewJoinCode()
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to mint join code", http.StatusInternalServerError)
		}
		taken, err := s.store.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", apperrors.New(apperrors.ErrCodeInternal, "could not mint a unique join code", http.StatusInternalServerError)
}

// JoinSession adds a participant by join code and schedules a queue
// regeneration once membership settles.
func (s *Service) JoinSession(ctx context.Context, code string, p domain.Participant) (*domain.Session, error) {
	if p.UserID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "user id required", http.StatusBadRequest)
	}
	target, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	session, err := s.mutate(ctx, target.ID, func(session *domain.Session) error {
		if session.IsParticipant(p.UserID) {
			return apperrors.ErrAlreadyJoined
		}
		p.JoinedAt = time.Now()
		session.Participants = append(session.Participants, p)
		session.LastParticipantChange = p.JoinedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(ctx, session.ID, broadcast.EventParticipantJoined, map[string]interface{}{
		"user_id":      p.UserID,
		"display_name": p.DisplayName,
	})
	s.regenerator.NotifyMembershipChange(session.ID)
	s.log.Info("participant joined",
		logger.String("session_id", session.ID),
		logger.String("user_id", p.UserID),
		logger.Int("participants", len(session.Participants)))
	return session, nil
}

// LeaveSession removes a participant. The last participant leaving ends the
// session; a departing host hands the role to the longest-standing
// remaining participant.
func (s *Service) LeaveSession(ctx context.Context, sessionID, userID string) error {
	var ended bool
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		idx := -1
		for i, p := range session.Participants {
			if p.UserID == userID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperrors.ErrNotParticipant
		}
		session.Participants = append(session.Participants[:idx], session.Participants[idx+1:]...)
		session.LastParticipantChange = time.Now()
		ended = len(session.Participants) == 0
		if ended {
			return nil
		}

		session.DJs = removeString(session.DJs, userID)
		if session.HostID == userID {
			session.HostID = session.Participants[0].UserID
			if !session.IsDJ(session.HostID) {
				session.DJs = append(session.DJs, session.HostID)
			}
		}
		// Sessions always keep at least one DJ.
		if len(session.DJs) == 0 {
			session.DJs = []string{session.HostID}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.store.ClearUserSession(ctx, userID); err != nil {
		s.log.Warn("failed to clear user session index",
			logger.String("user_id", userID),
			logger.Error(err))
	}

	if ended {
		s.regenerator.Cancel(sessionID)
		s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventSessionEnded, nil)
		if err := s.store.Delete(ctx, session); err != nil {
			return err
		}
		s.log.Info("session ended", logger.String("session_id", sessionID))
		return nil
	}

	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventParticipantLeft, map[string]interface{}{
		"user_id": userID,
	})
	s.regenerator.NotifyMembershipChange(sessionID)
	s.log.Info("participant left",
		logger.String("session_id", sessionID),
		logger.String("user_id", userID),
		logger.Int("participants", len(session.Participants)))
	return nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.store.Get(ctx, sessionID)
}

// GetSessionByCode returns a session by join code.
func (s *Service) GetSessionByCode(ctx context.Context, code string) (*domain.Session, error) {
	return s.store.GetByCode(ctx, code)
}

// GetSessionForUser returns the session the user currently belongs to.
func (s *Service) GetSessionForUser(ctx context.Context, userID string) (*domain.Session, error) {
	return s.store.GetByUserID(ctx, userID)
}

// ListSessions returns all live sessions.
func (s *Service) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	return s.store.List(ctx)
}

// UpdateSettings replaces the session settings. Host only.
func (s *Service) UpdateSettings(ctx context.Context, sessionID, userID string, settings domain.SessionSettings) (*domain.Session, error) {
	if settings.SkipVoteThreshold < 1 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "skip vote threshold must be at least 1", http.StatusBadRequest)
	}
	if settings.PlaybackMode != domain.PlaybackModeCollaborative && settings.PlaybackMode != domain.PlaybackModeDJOnly {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "unknown playback mode", http.StatusBadRequest)
	}
	session, err := s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if session.HostID != userID {
			return apperrors.ErrForbidden
		}
		session.Settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, sessionID, broadcast.EventSettingsUpdated, session.Settings)
	return session, nil
}

// PromoteDJ grants the DJ role. Host only.
func (s *Service) PromoteDJ(ctx context.Context, sessionID, userID, targetID string) (*domain.Session, error) {
	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if session.HostID != userID {
			return apperrors.ErrForbidden
		}
		if !session.IsParticipant(targetID) {
			return apperrors.ErrNotParticipant
		}
		if session.IsDJ(targetID) {
			return nil
		}
		session.DJs = append(session.DJs, targetID)
		return nil
	})
}

// DemoteDJ revokes the DJ role. Host only; the host cannot be demoted.
func (s *Service) DemoteDJ(ctx context.Context, sessionID, userID, targetID string) (*domain.Session, error) {
	return s.mutate(ctx, sessionID, func(session *domain.Session) error {
		if session.HostID != userID {
			return apperrors.ErrForbidden
		}
		if targetID == session.HostID {
			return apperrors.New(apperrors.ErrCodeInvalidRequest, "host cannot be demoted", http.StatusBadRequest)
		}
		session.DJs = removeString(session.DJs, targetID)
		return nil
	})
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
