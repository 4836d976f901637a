// Package catalog talks to the external music catalog. Callers identify the
// acting user by access token; the catalog applies outbound rate limiting,
// retries and circuit breaking so upstream throttling surfaces as retryable
// errors instead of hard failures.
package catalog

import (
	"context"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// Catalog is the music service surface the queue engine depends on.
type Catalog interface {
	// TopTracks returns the user's most played tracks.
	TopTracks(ctx context.Context, accessToken string, limit int) ([]domain.Track, error)
	// TopArtists returns the user's most played artists with genre tags.
	TopArtists(ctx context.Context, accessToken string, limit int) ([]domain.Artist, error)
	// ArtistTopTracks returns an artist's most popular tracks.
	ArtistTopTracks(ctx context.Context, accessToken, artistID string) ([]domain.Track, error)
	// SearchTracks searches tracks by free text.
	SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]domain.Track, error)
}
