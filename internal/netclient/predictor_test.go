package netclient

import (
	"math"
	"testing"

	"coil-and-cash/server/internal/arena"
)

func TestPredictorMatchesServerSpeedRule(t *testing.T) {
	p := NewPredictor(arena.Vec{})
	p.SetInput(0, false)
	pos := p.Advance(1.0)

	if math.Abs(pos.X-arena.BaseSpeed) > 1e-9 || math.Abs(pos.Y) > 1e-9 {
		t.Fatalf("expected (%v,0), got %+v", arena.BaseSpeed, pos)
	}
}

func TestPredictorBoostGateRequiresLength(t *testing.T) {
	p := NewPredictor(arena.Vec{})
	p.SetInput(0, true)
	pos := p.Advance(1.0)
	if math.Abs(pos.X-arena.BaseSpeed) > 1e-9 {
		t.Fatalf("boost engaged below the length gate: %+v", pos)
	}

	p = NewPredictor(arena.Vec{})
	p.SetLength(arena.MinBoostLength + 5)
	p.SetInput(0, true)
	pos = p.Advance(1.0)
	want := arena.BaseSpeed * arena.BoostMultiplier
	if math.Abs(pos.X-want) > 1e-9 {
		t.Fatalf("expected boosted advance %v, got %+v", want, pos)
	}
}

func TestReconcileAcceptsSmallDivergence(t *testing.T) {
	p := NewPredictor(arena.Vec{X: 100, Y: 100})
	confirmed := arena.Vec{X: 100 + SnapThreshold/2, Y: 100}

	if p.Reconcile(confirmed) {
		t.Fatalf("snapped inside the threshold")
	}
	if p.Pos() != (arena.Vec{X: 100, Y: 100}) {
		t.Fatalf("prediction moved without a snap: %+v", p.Pos())
	}
}

func TestReconcileSnapsBeyondThreshold(t *testing.T) {
	p := NewPredictor(arena.Vec{X: 100, Y: 100})
	confirmed := arena.Vec{X: 100 + SnapThreshold*2, Y: 100}

	if !p.Reconcile(confirmed) {
		t.Fatalf("expected a snap beyond the threshold")
	}
	if p.Pos() != confirmed {
		t.Fatalf("prediction did not snap to %+v, got %+v", confirmed, p.Pos())
	}
}
