package netclient

import (
	"math"
	"time"

	"coil-and-cash/server/internal/arena"
)

const (
	// RenderDelay is the fixed lag applied to remote entities so the
	// renderer usually sits between two real samples instead of ahead of
	// the newest one.
	RenderDelay = 100 * time.Millisecond

	// sampleBufferCap bounds the per-entity history. Four samples cover
	// RenderDelay at the broadcast cadence with room for jitter.
	sampleBufferCap = 4
)

// Sample is one timestamped remote-entity observation.
type Sample struct {
	At       time.Time
	Pos      arena.Vec
	Heading  float64
	Velocity float64
}

// sampleBuffer keeps a small window of samples in ascending timestamp
// order. Out-of-order arrivals are inserted at their temporal position,
// never appended.
type sampleBuffer struct {
	samples []Sample
}

func (b *sampleBuffer) push(s Sample) {
	idx := len(b.samples)
	for idx > 0 && b.samples[idx-1].At.After(s.At) {
		idx--
	}
	b.samples = append(b.samples, Sample{})
	copy(b.samples[idx+1:], b.samples[idx:])
	b.samples[idx] = s
	if len(b.samples) > sampleBufferCap {
		b.samples = b.samples[len(b.samples)-sampleBufferCap:]
	}
}

// at returns the neighbors straddling t: the newest sample at or before t
// and the oldest sample after it. Either may be absent.
func (b *sampleBuffer) at(t time.Time) (older, newer *Sample) {
	for i := range b.samples {
		s := &b.samples[i]
		if !s.At.After(t) {
			older = s
		} else {
			newer = s
			break
		}
	}
	return older, newer
}

// Interpolator renders remote entities RenderDelay in the past, blending
// between buffered samples.
type Interpolator struct {
	buffers map[string]*sampleBuffer
	delay   time.Duration
}

// NewInterpolator uses the default render delay.
func NewInterpolator() *Interpolator {
	return &Interpolator{buffers: make(map[string]*sampleBuffer), delay: RenderDelay}
}

// Observe records a remote sample for the entity.
func (in *Interpolator) Observe(id string, s Sample) {
	buf, ok := in.buffers[id]
	if !ok {
		buf = &sampleBuffer{}
		in.buffers[id] = buf
	}
	buf.push(s)
}

// Forget drops an entity's buffer after it leaves or dies.
func (in *Interpolator) Forget(id string) {
	delete(in.buffers, id)
}

// PositionAt computes the rendered position for the entity at wall time
// now. Between two samples it interpolates; with only a past sample it
// extrapolates along the last heading rather than freezing in place.
// Returns false when the entity has never been observed.
func (in *Interpolator) PositionAt(id string, now time.Time) (arena.Vec, bool) {
	buf, ok := in.buffers[id]
	if !ok || len(buf.samples) == 0 {
		return arena.Vec{}, false
	}
	renderTime := now.Add(-in.delay)
	older, newer := buf.at(renderTime)

	switch {
	case older != nil && newer != nil:
		span := newer.At.Sub(older.At).Seconds()
		if span <= 0 {
			return newer.Pos, true
		}
		alpha := renderTime.Sub(older.At).Seconds() / span
		return arena.Vec{
			X: older.Pos.X + (newer.Pos.X-older.Pos.X)*alpha,
			Y: older.Pos.Y + (newer.Pos.Y-older.Pos.Y)*alpha,
		}, true
	case older != nil:
		// No future sample yet: lost or late packets. Extrapolate.
		ahead := renderTime.Sub(older.At).Seconds()
		return arena.Vec{
			X: older.Pos.X + math.Cos(older.Heading)*older.Velocity*ahead,
			Y: older.Pos.Y + math.Sin(older.Heading)*older.Velocity*ahead,
		}, true
	default:
		// Render time precedes every sample; hold the oldest.
		return buf.samples[0].Pos, true
	}
}
