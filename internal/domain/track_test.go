package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whatisboom/blendroom-sub001/internal/domain"
)

func TestPrimaryArtistID(t *testing.T) {
	track := domain.Track{Artists: []domain.Artist{{ID: "a1"}, {ID: "a2"}}}
	assert.Equal(t, "a1", track.PrimaryArtistID())

	assert.Equal(t, "", domain.Track{}.PrimaryArtistID())
}

func TestArtistIDs(t *testing.T) {
	track := domain.Track{Artists: []domain.Artist{{ID: "a1"}, {ID: "a2"}}}
	assert.Equal(t, []string{"a1", "a2"}, track.ArtistIDs())
}

func TestGenresDedupsAcrossArtists(t *testing.T) {
	track := domain.Track{Artists: []domain.Artist{
		{ID: "a1", Genres: []string{"rock", "indie"}},
		{ID: "a2", Genres: []string{"indie", "folk"}},
	}}
	assert.Equal(t, []string{"rock", "indie", "folk"}, track.Genres())
}
