// Package broadcast publishes session events to participants over Redis
// pub/sub. Delivery to connected clients is handled by whatever real-time
// gateway subscribes to the session channels; the engine never waits for
// delivery.
package broadcast

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/whatisboom/blendroom-sub001/pkg/logger"
	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"
)

// Event names produced by the engine and its service layer.
const (
	EventQueueUpdated      = "queue_updated"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventTrackSkipped      = "track_skipped"
	EventPlaybackAdvanced  = "playback_advanced"
	EventSessionEnded      = "session_ended"
	EventSettingsUpdated   = "settings_updated"
)

// Broadcaster fans an event out to a session's participants,
// fire-and-forget.
type Broadcaster interface {
	Broadcast(ctx context.Context, sessionID, event string, payload interface{})
}

// Envelope is the wire shape of a published event.
type Envelope struct {
	SessionID string      `json:"session_id"`
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// RedisBroadcaster publishes envelopes to the session's pub/sub channel.
type RedisBroadcaster struct {
	client *redispkg.Client
	log    logger.Logger

	published atomic.Int64
	failed    atomic.Int64
}

// NewRedisBroadcaster creates a broadcaster on the given Redis client.
func NewRedisBroadcaster(client *redispkg.Client, log logger.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, log: log}
}

// Broadcast publishes the event. Failures are counted and logged but never
// returned; a missed notification only delays the next UI refresh.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, sessionID, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{
		SessionID: sessionID,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		b.failed.Add(1)
		b.log.Error("failed to encode broadcast event",
			logger.String("session_id", sessionID),
			logger.String("event", event),
			logger.Error(err))
		return
	}
	if err := b.client.Publish(ctx, redispkg.SessionChannel(sessionID), data); err != nil {
		b.failed.Add(1)
		b.log.Warn("failed to publish broadcast event",
			logger.String("session_id", sessionID),
			logger.String("event", event),
			logger.Error(err))
		return
	}
	b.published.Add(1)
}

// Stats returns publish counters.
func (b *RedisBroadcaster) Stats() (published, failed int64) {
	return b.published.Load(), b.failed.Load()
}
