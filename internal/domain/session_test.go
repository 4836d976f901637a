package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

func sessionFixture() *domain.Session {
	return &domain.Session{
		ID:     "s1",
		Code:   "ABCDEF",
		HostID: "host",
		Participants: []domain.Participant{
			{UserID: "host"},
			{UserID: "alice"},
		},
		DJs:      []string{"host"},
		Settings: domain.DefaultSettings(),
		Queue: []domain.QueueItem{
			{Track: domain.Track{ID: "t1", Artists: []domain.Artist{{ID: "a1"}}}},
			{Track: domain.Track{ID: "t2", Artists: []domain.Artist{{ID: "a2"}, {ID: "a3"}}}},
		},
		PlayedTracks: []string{"old"},
	}
}

func TestNewJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := domain.NewJoinCode()
		require.NoError(t, err)
		assert.Len(t, code, domain.JoinCodeLength)
		for _, r := range code {
			assert.NotContains(t, "01OIL", string(r), "code %q contains an ambiguous character", code)
			assert.True(t, strings.ContainsRune("ABCDEFGHJKMNPQRSTUVWXYZ23456789", r))
		}
		seen[code] = true
	}
	// 50 draws from a 31^6 space colliding would point at a broken generator.
	assert.Greater(t, len(seen), 45)
}

func TestMembershipHelpers(t *testing.T) {
	s := sessionFixture()

	assert.True(t, s.IsParticipant("alice"))
	assert.False(t, s.IsParticipant("bob"))
	assert.True(t, s.IsDJ("host"))
	assert.False(t, s.IsDJ("alice"))
}

func TestTrackLookups(t *testing.T) {
	s := sessionFixture()

	assert.True(t, s.HasQueuedTrack("t2"))
	assert.False(t, s.HasQueuedTrack("t9"))
	assert.True(t, s.HasPlayedTrack("old"))
	assert.False(t, s.HasPlayedTrack("t1"))
	assert.Equal(t, []string{"t1", "t2"}, s.QueuedTrackIDs())
}

func TestLikedArtistIDs(t *testing.T) {
	s := sessionFixture()
	s.CurrentTrack = &domain.QueueItem{
		Track: domain.Track{ID: "now", Artists: []domain.Artist{{ID: "a-now"}}},
	}
	s.Votes.Like = []domain.Vote{
		{UserID: "alice", TrackID: "t2"},
		{UserID: "host", TrackID: "now"},
		{UserID: "host", TrackID: "gone"}, // no longer queued, ignored
	}

	artists := s.LikedArtistIDs()
	assert.Len(t, artists, 3)
	assert.Contains(t, artists, "a2")
	assert.Contains(t, artists, "a3")
	assert.Contains(t, artists, "a-now")
	assert.NotContains(t, artists, "a1")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, sessionFixture().Validate())

	s := sessionFixture()
	s.ID = ""
	assert.Error(t, s.Validate())

	s = sessionFixture()
	s.Code = "ABC"
	assert.Error(t, s.Validate())

	s = sessionFixture()
	s.HostID = ""
	assert.Error(t, s.Validate())

	s = sessionFixture()
	s.Participants = nil
	assert.Error(t, s.Validate())

	s = sessionFixture()
	s.Participants[1].UserID = ""
	assert.Error(t, s.Validate())

	s = sessionFixture()
	s.Queue[0].Track.ID = ""
	assert.Error(t, s.Validate())
}
