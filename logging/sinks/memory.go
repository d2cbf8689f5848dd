package sinks

import (
	"context"
	"sync"

	"coil-and-cash/server/logging"
)

// MemorySink retains events in arrival order so tests can assert on what
// was published. Production configs use the console or JSON sinks.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write stores the event. The Extra map is copied so a producer mutating
// it afterwards cannot rewrite recorded history.
func (s *MemorySink) Write(event logging.Event) error {
	if event.Extra != nil {
		extra := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			extra[k] = v
		}
		event.Extra = extra
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

// Events copies the recorded history.
func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]logging.Event(nil), s.events...)
}

// Reset discards the recorded history.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.events = s.events[:0]
	s.mu.Unlock()
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
