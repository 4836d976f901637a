// Package domain defines the session aggregate and its building blocks.
// The Session is the sole unit of persistence: queue items, votes and the
// session profile only exist inside their containing Session.
package domain

import (
	"crypto/rand"
	"fmt"
	"time"
)

// AddedByAlgorithm marks queue items contributed by the queue generator
// rather than a participant.
const AddedByAlgorithm = "algorithm"

// PlaybackMode values.
const (
	PlaybackModeCollaborative = "collaborative"
	PlaybackModeDJOnly        = "dj_only"
)

// QueueItem is one entry in a session queue. Position always equals the
// item's index in the containing slice and IsStable is true for exactly the
// leading stable-zone items; both are recomputed by normalization after
// every structural edit.
type QueueItem struct {
	Track    Track     `json:"track"`
	Position int       `json:"position"`
	AddedBy  string    `json:"added_by"`
	AddedAt  time.Time `json:"added_at"`
	IsStable bool      `json:"is_stable"`
}

// Vote records one participant's vote on a track.
type Vote struct {
	UserID  string    `json:"user_id"`
	TrackID string    `json:"track_id"`
	VotedAt time.Time `json:"voted_at"`
}

// Votes groups the per-session vote lists.
type Votes struct {
	Skip []Vote `json:"skip"`
	Like []Vote `json:"like"`
}

// Participant is a user currently in a session. AccessToken is the user's
// catalog credential, needed to read their listening history.
type Participant struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AccessToken string    `json:"access_token,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// SessionSettings holds host-adjustable session behavior.
type SessionSettings struct {
	VoteToSkipEnabled bool   `json:"vote_to_skip_enabled"`
	SkipVoteThreshold int    `json:"skip_vote_threshold"`
	PlaybackMode      string `json:"playback_mode"`
}

// DefaultSettings returns the settings a new session starts with.
func DefaultSettings() SessionSettings {
	return SessionSettings{
		VoteToSkipEnabled: true,
		SkipVoteThreshold: 2,
		PlaybackMode:      PlaybackModeCollaborative,
	}
}

// Session is the aggregate root for a collaborative listening session.
type Session struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	HostID       string          `json:"host_id"`
	Participants []Participant   `json:"participants"`
	DJs          []string        `json:"djs"`
	Settings     SessionSettings `json:"settings"`
	Queue        []QueueItem     `json:"queue"`
	CurrentTrack *QueueItem      `json:"current_track,omitempty"`
	// PlayedTracks is append-only and never truncated; it backs the global
	// dedup against replaying a track within a session.
	PlayedTracks          []string        `json:"played_tracks"`
	Votes                 Votes           `json:"votes"`
	Profile               *SessionProfile `json:"profile,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	LastParticipantChange time.Time       `json:"last_participant_change"`
}

// joinCodeAlphabet omits characters that read ambiguously (0/O, 1/I/L).
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// JoinCodeLength is the length of session join codes.
const JoinCodeLength = 6

// NewJoinCode returns a random join code.
func NewJoinCode() (string, error) {
	buf := make([]byte, JoinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}

// IsParticipant reports whether the user is in the session.
func (s *Session) IsParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// IsDJ reports whether the user holds the DJ role.
func (s *Session) IsDJ(userID string) bool {
	for _, id := range s.DJs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasQueuedTrack reports whether the track id is already in the queue.
func (s *Session) HasQueuedTrack(trackID string) bool {
	for _, item := range s.Queue {
		if item.Track.ID == trackID {
			return true
		}
	}
	return false
}

// HasPlayedTrack reports whether the track id is in the play history.
func (s *Session) HasPlayedTrack(trackID string) bool {
	for _, id := range s.PlayedTracks {
		if id == trackID {
			return true
		}
	}
	return false
}

// QueuedTrackIDs returns the ids of all queued tracks in order.
func (s *Session) QueuedTrackIDs() []string {
	ids := make([]string, 0, len(s.Queue))
	for _, item := range s.Queue {
		ids = append(ids, item.Track.ID)
	}
	return ids
}

// LikedArtistIDs returns the artist ids of all like-voted tracks, resolved
// against the queue and current track.
func (s *Session) LikedArtistIDs() map[string]struct{} {
	liked := make(map[string]struct{}, len(s.Votes.Like))
	for _, v := range s.Votes.Like {
		liked[v.TrackID] = struct{}{}
	}
	artists := make(map[string]struct{})
	collect := func(item QueueItem) {
		if _, ok := liked[item.Track.ID]; !ok {
			return
		}
		for _, a := range item.Track.Artists {
			artists[a.ID] = struct{}{}
		}
	}
	for _, item := range s.Queue {
		collect(item)
	}
	if s.CurrentTrack != nil {
		collect(*s.CurrentTrack)
	}
	return artists
}

// Validate checks the structural shape required of every persisted session.
// The store rejects sessions failing this check rather than trusting
// deserialized JSON.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session missing id")
	}
	if len(s.Code) != JoinCodeLength {
		return fmt.Errorf("session %s has malformed join code %q", s.ID, s.Code)
	}
	if s.HostID == "" {
		return fmt.Errorf("session %s missing host id", s.ID)
	}
	if s.Participants == nil {
		return fmt.Errorf("session %s missing participant list", s.ID)
	}
	for i, p := range s.Participants {
		if p.UserID == "" {
			return fmt.Errorf("session %s participant %d missing user id", s.ID, i)
		}
	}
	for i, item := range s.Queue {
		if item.Track.ID == "" {
			return fmt.Errorf("session %s queue item %d missing track id", s.ID, i)
		}
	}
	return nil
}
