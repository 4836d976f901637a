package profile_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatisboom/blendroom-sub001/pkg/logger"
	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
	"github.com/whatisboom/blendroom-sub001/internal/profile"
)

type fakeCatalog struct {
	topTrackCalls atomic.Int64
	tracks        []domain.Track
	artists       []domain.Artist
}

func (f *fakeCatalog) TopTracks(ctx context.Context, accessToken string, limit int) ([]domain.Track, error) {
	f.topTrackCalls.Add(1)
	return f.tracks, nil
}

func (f *fakeCatalog) TopArtists(ctx context.Context, accessToken string, limit int) ([]domain.Artist, error) {
	return f.artists, nil
}

func (f *fakeCatalog) ArtistTopTracks(ctx context.Context, accessToken, artistID string) ([]domain.Track, error) {
	return nil, nil
}

func (f *fakeCatalog) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]domain.Track, error) {
	return nil, nil
}

func newTestAnalyzer(t *testing.T, cat *fakeCatalog) (*profile.Analyzer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redispkg.NewClientFromUniversal(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	a := profile.NewAnalyzer(cat, redispkg.NewSingleFlightCache(client), time.Hour, 20, log)
	return a, mr
}

func TestProfileDerivesTopGenresByFrequency(t *testing.T) {
	cat := &fakeCatalog{
		tracks: []domain.Track{{ID: "t1"}, {ID: "t2"}},
		artists: []domain.Artist{
			{ID: "a1", Genres: []string{"indie", "rock"}},
			{ID: "a2", Genres: []string{"rock"}},
			{ID: "a3", Genres: []string{"rock", "electronica"}},
		},
	}
	a, _ := newTestAnalyzer(t, cat)

	p, err := a.Profile(context.Background(), "u1", "token")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, p.TopTrackIDs)
	assert.Equal(t, "u1", p.UserID)
	require.GreaterOrEqual(t, len(p.TopGenres), 3)
	assert.Equal(t, "rock", p.TopGenres[0])
	assert.ElementsMatch(t, []string{"electronica", "indie"}, p.TopGenres[1:3])
}

func TestProfileIsCached(t *testing.T) {
	cat := &fakeCatalog{tracks: []domain.Track{{ID: "t1"}}}
	a, _ := newTestAnalyzer(t, cat)

	_, err := a.Profile(context.Background(), "u1", "token")
	require.NoError(t, err)
	_, err = a.Profile(context.Background(), "u1", "token")
	require.NoError(t, err)

	assert.Equal(t, int64(1), cat.topTrackCalls.Load())
}

func TestProfileCacheExpiryTriggersRecompute(t *testing.T) {
	cat := &fakeCatalog{tracks: []domain.Track{{ID: "t1"}}}
	a, mr := newTestAnalyzer(t, cat)

	_, err := a.Profile(context.Background(), "u1", "token")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = a.Profile(context.Background(), "u1", "token")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cat.topTrackCalls.Load())
}

func TestInvalidateForcesRefresh(t *testing.T) {
	cat := &fakeCatalog{tracks: []domain.Track{{ID: "t1"}}}
	a, _ := newTestAnalyzer(t, cat)

	_, err := a.Profile(context.Background(), "u1", "token")
	require.NoError(t, err)
	require.NoError(t, a.Invalidate(context.Background(), "u1"))

	_, err = a.Profile(context.Background(), "u1", "token")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cat.topTrackCalls.Load())
}

func TestProfilesAreCachedPerUser(t *testing.T) {
	cat := &fakeCatalog{tracks: []domain.Track{{ID: "t1"}}}
	a, _ := newTestAnalyzer(t, cat)

	_, err := a.Profile(context.Background(), "u1", "token1")
	require.NoError(t, err)
	_, err = a.Profile(context.Background(), "u2", "token2")
	require.NoError(t, err)

	assert.Equal(t, int64(2), cat.topTrackCalls.Load())
}
