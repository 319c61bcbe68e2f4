package game

import (
	"math"
	"testing"
)

func TestLoopAdvance(t *testing.T) {
	g := newTestGame(t, testConfig(), room(10, 10), nil, DefaultOptions())
	loop := NewLoop(g)

	ticks, alpha := loop.Advance(0.25)
	if ticks != 16 || alpha != 0 {
		t.Errorf("Advance(0.25) = %d, %v; want 16, 0", ticks, alpha)
	}

	ticks, alpha = loop.Advance(1.5 / 64)
	if ticks != 1 || math.Abs(alpha-0.5) > 1e-9 {
		t.Errorf("Advance(1.5 dt) = %d, %v; want 1, 0.5", ticks, alpha)
	}

	// The leftover half tick carries over
	ticks, _ = loop.Advance(0.5 / 64)
	if ticks != 1 {
		t.Errorf("carry-over ticks = %d, want 1", ticks)
	}
	if g.Tick() != 18 {
		t.Errorf("tick = %d, want 18", g.Tick())
	}
}

func TestLoopCapsFrameTime(t *testing.T) {
	g := newTestGame(t, testConfig(), room(10, 10), nil, DefaultOptions())
	loop := NewLoop(g)

	// A 10 second stall runs no more than max_frame_time worth of ticks
	ticks, _ := loop.Advance(10)
	if ticks != 16 {
		t.Errorf("ticks after stall = %d, want 16", ticks)
	}
}

func TestLoopPausedAndSpeed(t *testing.T) {
	g := newTestGame(t, testConfig(), room(10, 10), nil, DefaultOptions())
	loop := NewLoop(g)

	g.SetPaused(true)
	if ticks, _ := loop.Advance(0.25); ticks != 0 {
		t.Errorf("paused loop ran %d ticks", ticks)
	}

	g.SetPaused(false)
	loop.Reset()
	g.SetStepsPerUpdate(2)
	if ticks, _ := loop.Advance(4.0 / 64); ticks != 8 {
		t.Errorf("double speed ran %d ticks, want 8", ticks)
	}
}
