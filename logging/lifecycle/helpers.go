package lifecycle

import (
	"context"

	"coil-and-cash/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player enters a room.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a session detaches without a death.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventPlayerDied is emitted on every death resolution.
	EventPlayerDied logging.EventType = "lifecycle.player_died"
)

// JoinedPayload describes a room entry.
type JoinedPayload struct {
	Name      string  `json:"name"`
	StakeTier float64 `json:"stakeTier"`
}

// DiedPayload describes a death outcome.
type DiedPayload struct {
	Cause      string  `json:"cause"`
	KillerName string  `json:"killerName,omitempty"`
	Score      float64 `json:"score"`
	TimeAlive  float64 `json:"timeAlive"`
}

// PlayerJoined publishes a room-entry event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload JoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// PlayerLeft publishes a detach event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
	})
}

// PlayerDied publishes a death event.
func PlayerDied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DiedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerDied,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
