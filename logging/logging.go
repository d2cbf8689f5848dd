package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindPlayer  EntityKind = "player"
	EntityKindRoom    EntityKind = "room"
	EntityKindSession EntityKind = "session"
)

// EntityRef names the actor an event is about.
type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Event is the structured record routed to every configured sink.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Room     string         `json:"room,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

const (
	CategoryGameplay = "gameplay"
	CategoryEconomy  = "economy"
	CategoryNetwork  = "network"
	CategorySystem   = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// NopPublisher discards every event. Useful default for tests.
func NopPublisher() Publisher {
	return nopPublisher{}
}

type roomPublisher struct {
	next Publisher
	room string
}

func (p *roomPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if event.Room == "" {
		event.Room = p.room
	}
	p.next.Publish(ctx, event)
}

// WithRoom stamps the room id onto every event that lacks one.
func WithRoom(p Publisher, room string) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if room == "" {
		return p
	}
	return &roomPublisher{next: p, room: room}
}
