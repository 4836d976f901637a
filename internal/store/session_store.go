// Package store persists sessions in Redis as opaque JSON, with secondary
// indexes for join-code and per-user lookup.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"
	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// sessionTTL bounds how long an untouched session survives. Every write
// refreshes it.
const sessionTTL = 24 * time.Hour

// SessionStore reads and writes sessions through Redis.
type SessionStore struct {
	client *redispkg.Client
	log    logger.Logger
}

// NewSessionStore creates a session store.
func NewSessionStore(client *redispkg.Client, log logger.Logger) *SessionStore {
	return &SessionStore{client: client, log: log}
}

// Get returns the session with the given id, or ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, redispkg.SessionKey(sessionID))
	if err == redispkg.ErrKeyNotFound {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to read session", http.StatusInternalServerError)
	}
	return s.decode(sessionID, []byte(data))
}

// GetByCode resolves a join code to its session.
func (s *SessionStore) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	sessionID, err := s.client.Get(ctx, redispkg.SessionCodeKey(code))
	if err == redispkg.ErrKeyNotFound {
		return nil, apperrors.ErrSessionCodeNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to resolve join code", http.StatusInternalServerError)
	}
	return s.Get(ctx, sessionID)
}

// GetByUserID returns the session the user currently belongs to, if any.
func (s *SessionStore) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	sessionID, err := s.client.Get(ctx, redispkg.UserSessionKey(userID))
	if err == redispkg.ErrKeyNotFound {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to resolve user session", http.StatusInternalServerError)
	}
	return s.Get(ctx, sessionID)
}

// Set validates and persists the session, bumping UpdatedAt and refreshing
// the join-code and per-user indexes.
func (s *SessionStore) Set(ctx context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeMalformedSession, "refusing to persist malformed session", http.StatusInternalServerError)
	}
	session.UpdatedAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to encode session", http.StatusInternalServerError)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, redispkg.SessionKey(session.ID), data, sessionTTL)
	pipe.Set(ctx, redispkg.SessionCodeKey(session.Code), session.ID, sessionTTL)
	pipe.SAdd(ctx, redispkg.SessionIndexKey(), session.ID)
	for _, p := range session.Participants {
		pipe.Set(ctx, redispkg.UserSessionKey(p.UserID), session.ID, sessionTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to persist session", http.StatusInternalServerError)
	}
	return nil
}

// Delete removes the session and all of its index entries.
func (s *SessionStore) Delete(ctx context.Context, session *domain.Session) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, redispkg.SessionKey(session.ID))
	pipe.Del(ctx, redispkg.SessionCodeKey(session.Code))
	pipe.SRem(ctx, redispkg.SessionIndexKey(), session.ID)
	for _, p := range session.Participants {
		pipe.Del(ctx, redispkg.UserSessionKey(p.UserID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to delete session", http.StatusInternalServerError)
	}
	return nil
}

// ClearUserSession removes a user's membership index entry. Called when a
// participant leaves a session that keeps existing.
func (s *SessionStore) ClearUserSession(ctx context.Context, userID string) error {
	if err := s.client.Delete(ctx, redispkg.UserSessionKey(userID)); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to clear user session index", http.StatusInternalServerError)
	}
	return nil
}

// Exists reports whether a session with the id exists.
func (s *SessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.client.Exists(ctx, redispkg.SessionKey(sessionID))
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to check session existence", http.StatusInternalServerError)
	}
	return ok, nil
}

// CodeExists reports whether a join code is already taken.
func (s *SessionStore) CodeExists(ctx context.Context, code string) (bool, error) {
	ok, err := s.client.Exists(ctx, redispkg.SessionCodeKey(code))
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to check join code", http.StatusInternalServerError)
	}
	return ok, nil
}

// List returns all live sessions. Index entries whose session has expired
// are pruned as they are encountered.
func (s *SessionStore) List(ctx context.Context) ([]*domain.Session, error) {
	ids, err := s.client.SMembers(ctx, redispkg.SessionIndexKey())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageError, "failed to list sessions", http.StatusInternalServerError)
	}
	sessions := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if apperrors.IsError(err, apperrors.ErrSessionNotFound) {
			_ = s.client.SRem(ctx, redispkg.SessionIndexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *SessionStore) decode(sessionID string, data []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.log.Error("stored session is not valid JSON",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedSession, "stored session is not valid JSON", http.StatusInternalServerError)
	}
	if err := session.Validate(); err != nil {
		s.log.Error("stored session failed shape validation",
			logger.String("session_id", sessionID),
			logger.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedSession, fmt.Sprintf("stored session %s has invalid shape", sessionID), http.StatusInternalServerError)
	}
	return &session, nil
}
