package rooms

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn is an in-memory Conn capturing written frames.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("write failed")
	}
	copied := append([]byte(nil), data...)
	c.frames = append(c.frames, copied)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) lastFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func TestSessionInputRateLimitAllowsBurstThenThrottles(t *testing.T) {
	session := NewSession("session-test", &fakeConn{})

	allowed := 0
	for i := 0; i < inputRateBurst*2; i++ {
		if session.AllowInput() {
			allowed++
		}
	}
	if allowed < inputRateBurst || allowed >= inputRateBurst*2 {
		t.Fatalf("expected roughly the burst budget to pass, allowed %d of %d", allowed, inputRateBurst*2)
	}
}

func TestSessionHeartbeatRecordsClientRTT(t *testing.T) {
	session := NewSession("session-test", &fakeConn{})
	received := time.Now()

	rtt := session.Heartbeat(received, 40)
	if rtt != 40*time.Millisecond {
		t.Fatalf("expected rtt 40ms, got %v", rtt)
	}
	if session.LastHeartbeat() != received {
		t.Fatalf("heartbeat arrival not recorded")
	}
	if session.LastRTT() != rtt {
		t.Fatalf("rtt not retained")
	}
}

func TestSessionHeartbeatIgnoresImplausibleRTT(t *testing.T) {
	session := NewSession("session-test", &fakeConn{})
	received := time.Now()

	session.Heartbeat(received, 40)

	// Negative and absurdly large reports keep the last good figure; a
	// skewed or hostile client must not distort diagnostics.
	session.Heartbeat(received.Add(time.Second), -10)
	session.Heartbeat(received.Add(2*time.Second), time.Hour.Milliseconds())
	if session.LastRTT() != 40*time.Millisecond {
		t.Fatalf("implausible rtt report changed the figure: %v", session.LastRTT())
	}
}

func TestSessionWriteFailurePropagates(t *testing.T) {
	conn := &fakeConn{failWrites: true}
	session := NewSession("session-test", conn)
	if err := session.Write(1, []byte("frame")); err == nil {
		t.Fatalf("expected write to fail")
	}
}
