package queue_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatisboom/blendroom-sub001/pkg/config"
	apperrors "github.com/whatisboom/blendroom-sub001/pkg/errors"
	"github.com/whatisboom/blendroom-sub001/pkg/logger"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
	"github.com/whatisboom/blendroom-sub001/internal/queue"
)

func quietLogger() logger.Logger {
	return logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type fakeSource struct {
	byArtist map[string][]domain.Track
	err      error
	calls    int
}

func (f *fakeSource) ArtistTopTracks(ctx context.Context, accessToken, artistID string) ([]domain.Track, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byArtist[artistID], nil
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		MinSize:         5,
		MaxSize:         10,
		StableZone:      3,
		TracksPerArtist: 8,
		DiversityWindow: 5,
	}
}

func newTestGenerator(source *fakeSource, cfg config.QueueConfig) *queue.Generator {
	return queue.NewGenerator(source, queue.NewScorer(testWeights), cfg, quietLogger())
}

func sessionWithProfile(commonArtists ...string) *domain.Session {
	return &domain.Session{
		ID:     "sess-1",
		Code:   "ABCDEF",
		HostID: "host",
		Participants: []domain.Participant{
			{UserID: "host", AccessToken: "token"},
		},
		Queue:        []domain.QueueItem{},
		PlayedTracks: []string{},
		Profile: &domain.SessionProfile{
			CommonArtists: commonArtists,
		},
	}
}

func TestGenerateRequiresProfile(t *testing.T) {
	g := newTestGenerator(&fakeSource{}, testQueueConfig())
	session := sessionWithProfile("a1")
	session.Profile = nil

	_, err := g.Generate(context.Background(), session, 5)
	assert.True(t, apperrors.IsError(err, apperrors.ErrProfileNotReady))
}

func TestGenerateRejectsNonPositiveTarget(t *testing.T) {
	g := newTestGenerator(&fakeSource{}, testQueueConfig())
	_, err := g.Generate(context.Background(), sessionWithProfile("a1"), 0)
	assert.Error(t, err)
	_, err = g.Generate(context.Background(), sessionWithProfile("a1"), -3)
	assert.Error(t, err)
}

func TestGenerateReturnsRankedItems(t *testing.T) {
	source := &fakeSource{byArtist: map[string][]domain.Track{
		"a1": {track("t1", "a1"), track("t2", "a1")},
		"a2": {track("t3", "a2")},
	}}
	g := newTestGenerator(source, testQueueConfig())

	items, err := g.Generate(context.Background(), sessionWithProfile("a1", "a2"), 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i, item.Position)
		assert.Equal(t, domain.AddedByAlgorithm, item.AddedBy)
		assert.False(t, item.IsStable)
		assert.False(t, item.AddedAt.IsZero())
	}
}

func TestGenerateExcludesQueuedAndPlayedTracks(t *testing.T) {
	source := &fakeSource{byArtist: map[string][]domain.Track{
		"a1": {track("queued", "a1"), track("played", "a1"), track("playing", "a1"), track("fresh", "a1")},
	}}
	g := newTestGenerator(source, testQueueConfig())

	session := sessionWithProfile("a1")
	session.Queue = []domain.QueueItem{{Track: track("queued", "a1")}}
	session.PlayedTracks = []string{"played"}
	current := domain.QueueItem{Track: track("playing", "a1")}
	session.CurrentTrack = &current

	items, err := g.Generate(context.Background(), session, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Track.ID)
}

func TestGenerateCapsTracksPerArtist(t *testing.T) {
	source := &fakeSource{byArtist: map[string][]domain.Track{
		"a1": {track("t1", "a1"), track("t2", "a1"), track("t3", "a1"), track("t4", "a1")},
	}}
	cfg := testQueueConfig()
	cfg.TracksPerArtist = 2
	g := newTestGenerator(source, cfg)

	items, err := g.Generate(context.Background(), sessionWithProfile("a1"), 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGenerateTruncatesToTarget(t *testing.T) {
	source := &fakeSource{byArtist: map[string][]domain.Track{
		"a1": {track("t1", "a1"), track("t2", "a1"), track("t3", "a1")},
	}}
	g := newTestGenerator(source, testQueueConfig())

	items, err := g.Generate(context.Background(), sessionWithProfile("a1"), 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGenerateLikedTracksRankFirst(t *testing.T) {
	source := &fakeSource{byArtist: map[string][]domain.Track{
		"a1": {track("plain", "a1")},
		"a2": {track("liked", "a2")},
	}}
	g := newTestGenerator(source, testQueueConfig())

	// The playing track was like-voted, so its artist carries the boost.
	session := sessionWithProfile("a1", "a2")
	current := domain.QueueItem{Track: track("liked-origin", "a2")}
	session.CurrentTrack = &current
	session.Votes.Like = []domain.Vote{{UserID: "host", TrackID: "liked-origin"}}

	items, err := g.Generate(context.Background(), session, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "liked", items[0].Track.ID)
}

func TestGenerateZeroCandidatesIsNotAnError(t *testing.T) {
	g := newTestGenerator(&fakeSource{byArtist: map[string][]domain.Track{}}, testQueueConfig())

	session := sessionWithProfile() // no common artists
	items, err := g.Generate(context.Background(), session, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGeneratePropagatesCatalogFailure(t *testing.T) {
	source := &fakeSource{err: apperrors.ErrCatalogRateLimited}
	g := newTestGenerator(source, testQueueConfig())

	_, err := g.Generate(context.Background(), sessionWithProfile("a1"), 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestGenerateIsDeterministic(t *testing.T) {
	byArtist := map[string][]domain.Track{
		"a1": {track("t1", "a1"), track("t2", "a1")},
		"a2": {track("t3", "a2"), track("t4", "a2")},
	}
	g1 := newTestGenerator(&fakeSource{byArtist: byArtist}, testQueueConfig())
	g2 := newTestGenerator(&fakeSource{byArtist: byArtist}, testQueueConfig())

	first, err := g1.Generate(context.Background(), sessionWithProfile("a1", "a2"), 10)
	require.NoError(t, err)
	second, err := g2.Generate(context.Background(), sessionWithProfile("a1", "a2"), 10)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Track.ID, second[i].Track.ID)
	}
}
