// Package queue implements the collaborative queue engine: candidate
// scoring, queue generation, stable-zone merging, and the repopulation and
// regeneration controllers that keep session queues filled.
package queue

import (
	"github.com/whatisboom/blendroom-sub001/pkg/config"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// ScoreContext carries the per-generation context a score depends on beyond
// the session profile.
type ScoreContext struct {
	// RecentArtistIDs are the primary artists of the most recently queued
	// tracks, inside the diversity window. Repeats count once each.
	RecentArtistIDs []string
	// LikedArtistIDs are artists of tracks participants like-voted.
	LikedArtistIDs map[string]struct{}
}

// Scorer ranks candidate tracks against a session profile. Score is pure:
// no I/O, no side effects, and missing metadata contributes zero rather
// than failing.
type Scorer struct {
	weights config.ScoringConfig
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights config.ScoringConfig) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes a desirability score for the candidate, higher is better.
// A common-artist match earns the full artist weight, genre overlap earns a
// proportional share of the genre weight, and a liked-artist match earns the
// like weight. Each recent same-primary-artist track subtracts a fixed
// fraction of the base score, so the result can go negative for tracks that
// would extend a same-artist run.
func (s *Scorer) Score(track domain.Track, profile *domain.SessionProfile, sctx ScoreContext) float64 {
	if profile == nil {
		return 0
	}

	common := make(map[string]struct{}, len(profile.CommonArtists))
	for _, id := range profile.CommonArtists {
		common[id] = struct{}{}
	}

	var base float64

	for _, id := range track.ArtistIDs() {
		if _, ok := common[id]; ok {
			base += s.weights.ArtistWeight
			break
		}
	}

	base += s.genreScore(track, profile.CommonGenres)

	for _, id := range track.ArtistIDs() {
		if _, ok := sctx.LikedArtistIDs[id]; ok {
			base += s.weights.LikeWeight
			break
		}
	}

	primary := track.PrimaryArtistID()
	if primary != "" {
		repeats := 0
		for _, recent := range sctx.RecentArtistIDs {
			if recent == primary {
				repeats++
			}
		}
		base -= base * s.weights.DiversityPenalty * float64(repeats)
	}
	return base
}

// genreScore awards the genre weight scaled by the fraction of the track's
// genres that appear in the session's common genres.
func (s *Scorer) genreScore(track domain.Track, commonGenres []string) float64 {
	genres := track.Genres()
	if len(genres) == 0 || len(commonGenres) == 0 {
		return 0
	}
	common := make(map[string]struct{}, len(commonGenres))
	for _, g := range commonGenres {
		common[g] = struct{}{}
	}
	matched := 0
	for _, g := range genres {
		if _, ok := common[g]; ok {
			matched++
		}
	}
	return s.weights.GenreWeight * float64(matched) / float64(len(genres))
}
