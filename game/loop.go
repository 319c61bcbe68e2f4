package game

import "time"

// Loop runs Step at a fixed tick rate from a variable frame rate.
type Loop struct {
	game         *Game
	dt           float64
	maxFrameTime float64
	accumulator  float64
	lastTime     time.Time
}

// NewLoop creates a loop at sim.tick_rate with frame times capped at sim.max_frame_time.
func NewLoop(g *Game) *Loop {
	maxFrame := g.cfg.Sim.MaxFrameTime
	if maxFrame <= 0 {
		maxFrame = 0.25
	}
	return &Loop{
		game:         g,
		dt:           g.cfg.Derived.DT,
		maxFrameTime: maxFrame,
	}
}

// Update should be called every rendered frame. It returns the
// interpolation alpha for rendering between ticks.
func (l *Loop) Update() float64 {
	now := time.Now()
	var frameTime float64
	if !l.lastTime.IsZero() {
		frameTime = now.Sub(l.lastTime).Seconds()
	}
	l.lastTime = now
	l.game.perfCollector.RecordFrame()

	_, alpha := l.Advance(frameTime)
	return alpha
}

// Advance adds frameTime seconds and runs every whole tick now due. Frame
// times above the cap are clamped so a stall cannot queue unbounded ticks.
// Paused games accumulate nothing.
func (l *Loop) Advance(frameTime float64) (ticks int, alpha float64) {
	if l.game.paused {
		return 0, 0
	}
	if frameTime > l.maxFrameTime {
		frameTime = l.maxFrameTime
	}
	l.accumulator += frameTime * float64(l.game.stepsPerUpdate)

	for l.accumulator >= l.dt {
		l.game.Step()
		l.accumulator -= l.dt
		ticks++
	}
	return ticks, l.accumulator / l.dt
}

// Reset drops accumulated time, e.g. after unpausing.
func (l *Loop) Reset() {
	l.accumulator = 0
	l.lastTime = time.Time{}
}
