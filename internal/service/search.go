package service

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

const defaultSearchLimit = 20

// SearchTracks searches the catalog on behalf of a session participant,
// using that participant's own catalog credential.
func (s *Service) SearchTracks(ctx context.Context, sessionID, userID, query string, limit int) ([]domain.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "search query required", http.StatusBadRequest)
	}
	if limit <= 0 || limit > 50 {
		limit = defaultSearchLimit
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var token string
	found := false
	for _, p := range session.Participants {
		if p.UserID == userID {
			token = p.AccessToken
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.ErrNotParticipant
	}
	if token == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "no catalog credential on file", http.StatusBadRequest)
	}
	return s.catalog.SearchTracks(ctx, token, query, limit)
}
