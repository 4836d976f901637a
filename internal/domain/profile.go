package domain

import "time"

// TasteProfile summarizes one user's listening history.
type TasteProfile struct {
	UserID      string    `json:"user_id"`
	TopTrackIDs []string  `json:"top_track_ids"`
	TopArtists  []Artist  `json:"top_artists"`
	TopGenres   []string  `json:"top_genres"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ArtistIDSet returns the profile's top artist ids as a set.
func (p TasteProfile) ArtistIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.TopArtists))
	for _, a := range p.TopArtists {
		set[a.ID] = struct{}{}
	}
	return set
}

// SessionProfile is the aggregate taste across all current participants.
// It has no lifecycle of its own: it lives on the Session and is replaced
// wholesale whenever membership settles.
type SessionProfile struct {
	// CommonArtists are artist ids present in every participant's top
	// artists.
	CommonArtists []string `json:"common_artists"`
	// CommonGenres are genres covered by at least half the participants,
	// most-covered first.
	CommonGenres  []string       `json:"common_genres"`
	TasteProfiles []TasteProfile `json:"taste_profiles"`
	ComputedAt    time.Time      `json:"computed_at"`
}
