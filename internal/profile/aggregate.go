package profile

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// Aggregate combines the participants' taste profiles into a session
// profile. Common artists are the strict intersection of every
// participant's top artists; a single participant keeps their full set.
// Common genres need coverage by at least half the participants and are
// ranked by coverage, then name.
func (a *Analyzer) Aggregate(ctx context.Context, participants []domain.Participant) (*domain.SessionProfile, error) {
	profiles := make([]domain.TasteProfile, 0, len(participants))
	for _, p := range participants {
		tp, err := a.Profile(ctx, p.UserID, p.AccessToken)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *tp)
	}
	return AggregateProfiles(profiles), nil
}

// AggregateProfiles is the pure aggregation over already-fetched profiles.
func AggregateProfiles(profiles []domain.TasteProfile) *domain.SessionProfile {
	return &domain.SessionProfile{
		CommonArtists: commonArtists(profiles),
		CommonGenres:  commonGenres(profiles),
		TasteProfiles: profiles,
		ComputedAt:    time.Now(),
	}
}

func commonArtists(profiles []domain.TasteProfile) []string {
	if len(profiles) == 0 {
		return []string{}
	}

	// Iterate the first profile's artists in order so output stays
	// deterministic given identical inputs.
	common := make([]string, 0, len(profiles[0].TopArtists))
	rest := make([]map[string]struct{}, 0, len(profiles)-1)
	for _, p := range profiles[1:] {
		rest = append(rest, p.ArtistIDSet())
	}

	seen := make(map[string]struct{})
	for _, artist := range profiles[0].TopArtists {
		if _, dup := seen[artist.ID]; dup {
			continue
		}
		seen[artist.ID] = struct{}{}

		inAll := true
		for _, set := range rest {
			if _, ok := set[artist.ID]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, artist.ID)
		}
	}
	return common
}

func commonGenres(profiles []domain.TasteProfile) []string {
	if len(profiles) == 0 {
		return []string{}
	}

	// Each participant counts once per genre regardless of repeats.
	coverage := make(map[string]int)
	for _, p := range profiles {
		seen := make(map[string]struct{})
		for _, g := range p.TopGenres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			coverage[g]++
		}
	}

	threshold := int(math.Ceil(float64(len(profiles)) / 2.0))
	genres := make([]string, 0, len(coverage))
	for g, n := range coverage {
		if n >= threshold {
			genres = append(genres, g)
		}
	}
	sort.Slice(genres, func(i, j int) bool {
		if coverage[genres[i]] != coverage[genres[j]] {
			return coverage[genres[i]] > coverage[genres[j]]
		}
		return genres[i] < genres[j]
	})
	return genres
}
