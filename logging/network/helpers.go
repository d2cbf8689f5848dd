package network

import (
	"context"

	"coil-and-cash/server/logging"
)

const (
	// EventSessionDropped is emitted when a write failure evicts a session.
	EventSessionDropped logging.EventType = "network.session_dropped"
	// EventBroadcastFailed is emitted when a snapshot cannot be marshaled.
	EventBroadcastFailed logging.EventType = "network.broadcast_failed"
	// EventInputThrottled is emitted when a session exceeds its input budget.
	EventInputThrottled logging.EventType = "network.input_throttled"
)

// SessionDropped publishes a session eviction.
func SessionDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  map[string]string{"reason": reason},
	})
}

// BroadcastFailed publishes a marshal/broadcast failure.
func BroadcastFailed(ctx context.Context, pub logging.Publisher, tick uint64, room string, err error) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBroadcastFailed,
		Tick:     tick,
		Room:     room,
		Severity: logging.SeverityError,
		Category: logging.CategoryNetwork,
		Payload:  map[string]string{"error": err.Error()},
	})
}

// InputThrottled publishes a rate-limit rejection.
func InputThrottled(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventInputThrottled,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
	})
}
