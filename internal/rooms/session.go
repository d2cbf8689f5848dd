package rooms

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	writeWait = 10 * time.Second

	// inputRateLimit caps inbound input messages per session. Clients poll
	// input around 60 Hz; the burst absorbs frame-time jitter.
	inputRateLimit = rate.Limit(90)
	inputRateBurst = 30

	// maxPlausibleRTT rejects client-reported round trips no real link
	// produces; anything above it is a bug or a lie, not latency.
	maxPlausibleRTT = 30 * time.Second
)

// Conn is the subset of a websocket connection the registry writes to.
// *websocket.Conn satisfies it; tests substitute an in-memory fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session wraps one client connection with a serialized writer, an input
// rate limiter and heartbeat bookkeeping.
type Session struct {
	id   string
	conn Conn

	mu            sync.Mutex
	lastHeartbeat time.Time
	lastRTT       time.Duration

	limiter *rate.Limiter
}

// NewSession wraps a connection. The id is transport-assigned and distinct
// from the player id.
func NewSession(id string, conn Conn) *Session {
	return &Session{
		id:            id,
		conn:          conn,
		lastHeartbeat: time.Now(),
		limiter:       rate.NewLimiter(inputRateLimit, inputRateBurst),
	}
}

// ID returns the transport-assigned session id.
func (s *Session) ID() string { return s.id }

// Write sends one text frame, serializing against concurrent broadcasts.
func (s *Session) Write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// AllowInput reports whether another input message fits the rate budget.
func (s *Session) AllowInput() bool {
	return s.limiter.Allow()
}

// Heartbeat records a heartbeat arrival and the round trip the client
// measured against the previous ack. The client times the full
// send-to-ack loop on its own clock, so the figure is skew-free; the
// server only rejects values no link could produce.
func (s *Session) Heartbeat(receivedAt time.Time, rttMillis int64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = receivedAt
	if rttMillis > 0 {
		rtt := time.Duration(rttMillis) * time.Millisecond
		if rtt <= maxPlausibleRTT {
			s.lastRTT = rtt
		}
	}
	return s.lastRTT
}

// LastHeartbeat reports the most recent heartbeat arrival.
func (s *Session) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeat
}

// LastRTT reports the most recently derived round-trip time.
func (s *Session) LastRTT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRTT
}
