package domain

// Artist is a catalog artist with genre tags.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// Track is a playable catalog track. Artists is ordered; the first entry is
// the primary artist used by the diversity penalty.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	AlbumName  string   `json:"album_name,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	PreviewURL string   `json:"preview_url,omitempty"`
}

// PrimaryArtistID returns the id of the track's first artist, or empty.
func (t Track) PrimaryArtistID() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].ID
}

// ArtistIDs returns the ids of all artists on the track.
func (t Track) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		ids = append(ids, a.ID)
	}
	return ids
}

// Genres returns the union of genre tags across the track's artists.
func (t Track) Genres() []string {
	seen := make(map[string]struct{})
	var genres []string
	for _, a := range t.Artists {
		for _, g := range a.Genres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	return genres
}
