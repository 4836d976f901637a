// Package profile derives per-user taste profiles from listening history
// and aggregates them into a session-level profile.
package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"
	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"

	"github.com/whatisboom/blendroom-sub001/internal/catalog"
	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// topGenreLimit caps the number of derived top genres per profile.
const topGenreLimit = 10

// Analyzer computes taste profiles, caching them per user. Profiles carry
// no session state so the cache is shared safely across sessions.
type Analyzer struct {
	catalog  catalog.Catalog
	cache    *redispkg.SingleFlightCache
	cacheTTL time.Duration
	topLimit int
	log      logger.Logger
}

// NewAnalyzer creates an analyzer with the given cache TTL and top-item
// fetch limit.
func NewAnalyzer(cat catalog.Catalog, cache *redispkg.SingleFlightCache, cacheTTL time.Duration, topLimit int, log logger.Logger) *Analyzer {
	return &Analyzer{
		catalog:  cat,
		cache:    cache,
		cacheTTL: cacheTTL,
		topLimit: topLimit,
		log:      log,
	}
}

// Profile returns the user's taste profile, from cache when fresh.
// Concurrent misses for the same user collapse into one catalog fetch.
func (a *Analyzer) Profile(ctx context.Context, userID, accessToken string) (*domain.TasteProfile, error) {
	key := redispkg.TasteProfileKey(userID)
	data, err := a.cache.GetBytes(ctx, key, func() ([]byte, error) {
		p, err := a.compute(ctx, userID, accessToken)
		if err != nil {
			return nil, err
		}
		return json.Marshal(p)
	}, a.cacheTTL)
	if err != nil {
		return nil, err
	}

	var p domain.TasteProfile
	if err := json.Unmarshal(data, &p); err != nil {
		// A corrupt cache entry is dropped and recomputed on the next call.
		a.log.Warn("dropping corrupt taste profile cache entry",
			logger.String("user_id", userID),
			logger.Error(err))
		_ = a.cache.Invalidate(ctx, key)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorageError, "cached taste profile is not valid JSON", http.StatusInternalServerError)
	}
	return &p, nil
}

// Invalidate drops the user's cached profile.
func (a *Analyzer) Invalidate(ctx context.Context, userID string) error {
	return a.cache.Invalidate(ctx, redispkg.TasteProfileKey(userID))
}

func (a *Analyzer) compute(ctx context.Context, userID, accessToken string) (*domain.TasteProfile, error) {
	tracks, err := a.catalog.TopTracks(ctx, accessToken, a.topLimit)
	if err != nil {
		return nil, err
	}
	artists, err := a.catalog.TopArtists(ctx, accessToken, a.topLimit)
	if err != nil {
		return nil, err
	}

	trackIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		trackIDs = append(trackIDs, t.ID)
	}

	return &domain.TasteProfile{
		UserID:      userID,
		TopTrackIDs: trackIDs,
		TopArtists:  artists,
		TopGenres:   topGenres(artists, topGenreLimit),
		UpdatedAt:   time.Now(),
	}, nil
}

// topGenres ranks genre tags across the artist list by frequency, ties
// broken alphabetically for determinism.
func topGenres(artists []domain.Artist, limit int) []string {
	counts := make(map[string]int)
	for _, a := range artists {
		for _, g := range a.Genres {
			counts[g]++
		}
	}
	genres := make([]string, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})
	if len(genres) > limit {
		genres = genres[:limit]
	}
	return genres
}
