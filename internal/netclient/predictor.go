// Package netclient hides round-trip latency for headless clients: the
// local player is dead-reckoned ahead of the server, remote players are
// rendered slightly in the past so real samples can be interpolated.
package netclient

import (
	"math"

	"coil-and-cash/server/internal/arena"
)

// SnapThreshold is the local-vs-server divergence, in world units, beyond
// which the predicted position snaps to the authoritative one. Below it
// the divergence is accepted silently; correcting every small drift would
// jitter more than it fixes.
const SnapThreshold = 200.0

// Predictor dead-reckons the local player with the same speed rule the
// server applies, so prediction and authority drift apart only through
// latency, not through rule mismatch.
type Predictor struct {
	pos      arena.Vec
	heading  float64
	boosting bool
	length   float64
}

// NewPredictor starts predicting from the server-assigned spawn position.
func NewPredictor(start arena.Vec) *Predictor {
	return &Predictor{pos: start, length: arena.InitialLength}
}

// SetInput applies a local input sample immediately, before the server
// ever sees it.
func (p *Predictor) SetInput(angle float64, boosting bool) {
	p.heading = angle
	p.boosting = boosting
}

// SetLength tracks the authoritative length so the boost gate matches the
// server's.
func (p *Predictor) SetLength(length float64) {
	p.length = length
}

// Advance moves the predicted position by dt seconds of local input.
func (p *Predictor) Advance(dt float64) arena.Vec {
	speed := arena.BaseSpeed
	if p.boosting && p.length > arena.MinBoostLength {
		speed *= arena.BoostMultiplier
	}
	p.pos.X += math.Cos(p.heading) * speed * dt
	p.pos.Y += math.Sin(p.heading) * speed * dt
	return p.pos
}

// Reconcile compares the prediction against the server-confirmed position
// and snaps only on large divergence. Reports whether a snap happened.
func (p *Predictor) Reconcile(confirmed arena.Vec) bool {
	if math.Hypot(p.pos.X-confirmed.X, p.pos.Y-confirmed.Y) <= SnapThreshold {
		return false
	}
	p.pos = confirmed
	return true
}

// Pos returns the current predicted position.
func (p *Predictor) Pos() arena.Vec {
	return p.pos
}
