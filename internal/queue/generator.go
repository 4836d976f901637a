package queue

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/whatisboom/blendroom-sub001/pkg/config"
	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// TrackSource is the slice of the catalog the generator needs.
type TrackSource interface {
	ArtistTopTracks(ctx context.Context, accessToken, artistID string) ([]domain.Track, error)
}

// QueueGenerator produces ranked queue items for a session. Satisfied by
// *Generator; the controllers accept the interface so tests can count and
// stub generation.
type QueueGenerator interface {
	Generate(ctx context.Context, session *domain.Session, targetCount int) ([]domain.QueueItem, error)
}

// Generator builds a candidate pool from the session's common artists,
// scores it, and returns the top tracks as queue items.
type Generator struct {
	source TrackSource
	scorer *Scorer
	cfg    config.QueueConfig
	log    logger.Logger
}

// NewGenerator creates a generator.
func NewGenerator(source TrackSource, scorer *Scorer, cfg config.QueueConfig, log logger.Logger) *Generator {
	return &Generator{source: source, scorer: scorer, cfg: cfg, log: log}
}

// Generate returns up to targetCount ranked tracks not already queued or
// played in the session. An empty result with nil error means no qualifying
// candidates exist; catalog failures return a retryable error instead of a
// silently truncated list. Items come back with sequential positions and
// IsStable unset; the merge step assigns final positions and stability.
func (g *Generator) Generate(ctx context.Context, session *domain.Session, targetCount int) ([]domain.QueueItem, error) {
	if targetCount <= 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "target count must be positive", http.StatusBadRequest)
	}
	if session.Profile == nil {
		return nil, apperrors.ErrProfileNotReady
	}

	accessToken := g.fetchCredential(session)
	if accessToken == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "no participant has a catalog credential", http.StatusBadRequest)
	}

	exclude := make(map[string]struct{}, len(session.Queue)+len(session.PlayedTracks))
	for _, item := range session.Queue {
		exclude[item.Track.ID] = struct{}{}
	}
	for _, id := range session.PlayedTracks {
		exclude[id] = struct{}{}
	}
	if session.CurrentTrack != nil {
		exclude[session.CurrentTrack.Track.ID] = struct{}{}
	}

	// Candidates keep discovery order so the later stable sort is
	// deterministic for identical inputs.
	var candidates []domain.Track
	for _, artistID := range session.Profile.CommonArtists {
		tracks, err := g.source.ArtistTopTracks(ctx, accessToken, artistID)
		if err != nil {
			return nil, err
		}
		taken := 0
		for _, t := range tracks {
			if taken >= g.cfg.TracksPerArtist {
				break
			}
			if _, skip := exclude[t.ID]; skip {
				continue
			}
			exclude[t.ID] = struct{}{}
			candidates = append(candidates, t)
			taken++
		}
	}

	if len(candidates) == 0 {
		return []domain.QueueItem{}, nil
	}

	sctx := ScoreContext{
		RecentArtistIDs: recentArtists(session.Queue, g.cfg.DiversityWindow),
		LikedArtistIDs:  session.LikedArtistIDs(),
	}
	scores := make([]float64, len(candidates))
	for i, t := range candidates {
		scores[i] = g.scorer.Score(t, session.Profile, sctx)
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if targetCount > len(order) {
		targetCount = len(order)
	}
	now := time.Now()
	items := make([]domain.QueueItem, 0, targetCount)
	for i := 0; i < targetCount; i++ {
		items = append(items, domain.QueueItem{
			Track:    candidates[order[i]],
			Position: i,
			AddedBy:  domain.AddedByAlgorithm,
			AddedAt:  now,
		})
	}
	return items, nil
}

// fetchCredential picks the catalog credential used for candidate fetches,
// preferring the host's.
func (g *Generator) fetchCredential(session *domain.Session) string {
	for _, p := range session.Participants {
		if p.UserID == session.HostID && p.AccessToken != "" {
			return p.AccessToken
		}
	}
	for _, p := range session.Participants {
		if p.AccessToken != "" {
			return p.AccessToken
		}
	}
	return ""
}

// recentArtists returns the primary artists of the last window queued
// tracks, most recent last.
func recentArtists(items []domain.QueueItem, window int) []string {
	start := len(items) - window
	if start < 0 {
		start = 0
	}
	artists := make([]string, 0, len(items)-start)
	for _, item := range items[start:] {
		if id := item.Track.PrimaryArtistID(); id != "" {
			artists = append(artists, id)
		}
	}
	return artists
}
