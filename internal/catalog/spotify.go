package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/whatisboom/blendroom-sub001/pkg/breaker"
	"github.com/whatisboom/blendroom-sub001/pkg/config"
	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

// SpotifyCatalog implements Catalog against the Spotify Web API. A single
// process-wide rate limiter and circuit breaker cover all users, since
// Spotify throttles per application, not per user.
type SpotifyCatalog struct {
	cfg     config.CatalogConfig
	limiter *rate.Limiter
	breaker *breaker.CircuitBreaker
	log     logger.Logger

	// newClient is swappable so tests can point at a fake API.
	newClient func(ctx context.Context, accessToken string) *spotify.Client
}

// NewSpotifyCatalog creates a Spotify-backed catalog.
func NewSpotifyCatalog(cfg config.CatalogConfig, log logger.Logger) *SpotifyCatalog {
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &SpotifyCatalog{
		cfg:     cfg,
		limiter: rate.NewLimiter(perSecond, cfg.Burst),
		breaker: breaker.New(&breaker.Config{
			Name:        "spotify",
			MaxFailures: cfg.BreakerMaxFails,
			Timeout:     cfg.BreakerTimeout,
		}),
		log: log,
		newClient: func(ctx context.Context, accessToken string) *spotify.Client {
			src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
			return spotify.New(oauth2.NewClient(ctx, src))
		},
	}
}

// TopTracks returns the user's most played tracks.
func (c *SpotifyCatalog) TopTracks(ctx context.Context, accessToken string, limit int) ([]domain.Track, error) {
	var tracks []domain.Track
	err := c.call(ctx, "top_tracks", func() error {
		api := c.newClient(ctx, accessToken)
		page, err := api.CurrentUsersTopTracks(ctx, spotify.Limit(limit))
		if err != nil {
			return err
		}
		tracks = fullTracksToDomain(page.Tracks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// TopArtists returns the user's most played artists with genre tags.
func (c *SpotifyCatalog) TopArtists(ctx context.Context, accessToken string, limit int) ([]domain.Artist, error) {
	var artists []domain.Artist
	err := c.call(ctx, "top_artists", func() error {
		api := c.newClient(ctx, accessToken)
		page, err := api.CurrentUsersTopArtists(ctx, spotify.Limit(limit))
		if err != nil {
			return err
		}
		artists = make([]domain.Artist, 0, len(page.Artists))
		for _, a := range page.Artists {
			artists = append(artists, domain.Artist{
				ID:     a.ID.String(),
				Name:   a.Name,
				Genres: a.Genres,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artists, nil
}

// ArtistTopTracks returns an artist's most popular tracks in the configured
// market.
func (c *SpotifyCatalog) ArtistTopTracks(ctx context.Context, accessToken, artistID string) ([]domain.Track, error) {
	var tracks []domain.Track
	err := c.call(ctx, "artist_top_tracks", func() error {
		api := c.newClient(ctx, accessToken)
		full, err := api.GetArtistsTopTracks(ctx, spotify.ID(artistID), c.cfg.Market)
		if err != nil {
			return err
		}
		tracks = fullTracksToDomain(full)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// SearchTracks searches tracks by free text.
func (c *SpotifyCatalog) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]domain.Track, error) {
	var tracks []domain.Track
	err := c.call(ctx, "search_tracks", func() error {
		api := c.newClient(ctx, accessToken)
		result, err := api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
		if err != nil {
			return err
		}
		if result.Tracks != nil {
			tracks = fullTracksToDomain(result.Tracks.Tracks)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// call runs one outbound request under the rate limiter, circuit breaker and
// retry policy, and maps upstream failures onto the catalog error taxonomy.
func (c *SpotifyCatalog) call(ctx context.Context, op string, fn func() error) error {
	wait := c.cfg.RetryInitialWait
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying catalog call",
				logger.String("op", op),
				logger.Int("attempt", attempt),
				logger.Error(lastErr))
			select {
			case <-ctx.Done():
				return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCatalogUnavailable, "catalog call cancelled", http.StatusBadGateway)
			case <-time.After(wait):
			}
			wait *= 2
			if wait > c.cfg.RetryMaxWait {
				wait = c.cfg.RetryMaxWait
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeCatalogUnavailable, "catalog call cancelled", http.StatusBadGateway)
		}

		err := c.breaker.Execute(fn)
		if err == nil {
			return nil
		}
		if apperrors.IsError(err, apperrors.ErrCircuitOpen) {
			return err
		}
		lastErr = err
		if !isRetryableUpstream(err) {
			break
		}
	}
	return mapUpstreamError(op, lastErr)
}

// isRetryableUpstream reports whether the upstream failure is worth another
// attempt: rate limiting, server-side errors, or transport faults.
func isRetryableUpstream(err error) bool {
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= http.StatusInternalServerError
	}
	// Transport-level failures arrive as url.Error and friends.
	return true
}

func mapUpstreamError(op string, err error) error {
	var se spotify.Error
	if errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
		return apperrors.Wrap(err, apperrors.ErrCodeCatalogRateLimited, "catalog rate limit reached", http.StatusTooManyRequests)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeCatalogUnavailable, "catalog call failed: "+op, http.StatusBadGateway)
}

func fullTracksToDomain(full []spotify.FullTrack) []domain.Track {
	tracks := make([]domain.Track, 0, len(full))
	for _, ft := range full {
		tracks = append(tracks, fullTrackToDomain(ft))
	}
	return tracks
}

func fullTrackToDomain(ft spotify.FullTrack) domain.Track {
	artists := make([]domain.Artist, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, domain.Artist{ID: a.ID.String(), Name: a.Name})
	}
	track := domain.Track{
		ID:         ft.ID.String(),
		Name:       ft.Name,
		Artists:    artists,
		AlbumName:  ft.Album.Name,
		DurationMS: int(ft.Duration),
		PreviewURL: ft.PreviewURL,
	}
	if len(ft.Album.Images) > 0 {
		track.ImageURL = ft.Album.Images[0].URL
	}
	return track
}
