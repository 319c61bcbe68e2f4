package telemetry

import "github.com/pthm-cable/sightline/systems"

// recentEvents is how many events the collector keeps for inspection.
const recentEvents = 64

// Collector accumulates engine activity within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	windowStartTick int32

	// Counters for the current window
	sweeps, casts, refinements, faded int
	vertices                          []float64
	searches                          int
	expanded                          []float64
	steps, slides                     int
	events                            [EventRemoved + 1]int

	recent []Event
}

// NewCollector creates a collector.
// windowDurationSec: how long each window lasts in simulation seconds
// dt: seconds per tick
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}
	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordSweep records one visibility polygon rebuild.
func (c *Collector) RecordSweep(poly *systems.VisibilityPolygon) {
	c.sweeps++
	c.casts += poly.Casts
	c.refinements += poly.Refinements
	c.faded += len(poly.Faded())
	c.vertices = append(c.vertices, float64(poly.Len()))
}

// RecordSearch records one path search.
func (c *Collector) RecordSearch(stats systems.SearchStats) {
	c.searches++
	c.expanded = append(c.expanded, float64(stats.Expanded))
}

// RecordStep records one movement step.
func (c *Collector) RecordStep(res systems.StepResult) {
	c.steps++
	if res.Slid {
		c.slides++
	}
}

// Record counts an event and keeps it in the recent list.
func (c *Collector) Record(ev Event) {
	if int(ev.Type) < len(c.events) {
		c.events[ev.Type]++
	}
	if len(c.recent) == recentEvents {
		copy(c.recent, c.recent[1:])
		c.recent = c.recent[:recentEvents-1]
	}
	c.recent = append(c.recent, ev)
}

// Recent returns the latest events, oldest first.
func (c *Collector) Recent() []Event {
	out := make([]Event, len(c.recent))
	copy(out, c.recent)
	return out
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// WorldSample is the engine state sampled at window end.
type WorldSample struct {
	Entities    int
	Movers      int
	IndexHeight int
	FogVisible  int
	FogExplored int
}

// Flush produces the window's stats and resets the counters.
func (c *Collector) Flush(currentTick int32, world WorldSample) WindowStats {
	vMean, _, vP50, vP90 := Summarize(c.vertices)
	eMean, _, _, eP90 := Summarize(c.expanded)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Entities:    world.Entities,
		Movers:      world.Movers,
		IndexHeight: world.IndexHeight,
		FogVisible:  world.FogVisible,
		FogExplored: world.FogExplored,

		Sweeps:       c.sweeps,
		Casts:        c.casts,
		Refinements:  c.refinements,
		VerticesMean: vMean,
		VerticesP50:  vP50,
		VerticesP90:  vP90,
		Faded:        c.faded,

		Searches:     c.searches,
		Fallbacks:    c.events[EventPathFallback],
		Unreachable:  c.events[EventUnreachable],
		ExpandedMean: eMean,
		ExpandedP90:  eP90,

		Steps:   c.steps,
		Slides:  c.slides,
		Stuck:   c.events[EventStuck],
		Escapes: c.events[EventEscape],
		Removed: c.events[EventRemoved],
	}

	c.windowStartTick = currentTick
	c.sweeps, c.casts, c.refinements, c.faded = 0, 0, 0, 0
	c.vertices = c.vertices[:0]
	c.searches = 0
	c.expanded = c.expanded[:0]
	c.steps, c.slides = 0, 0
	c.events = [EventRemoved + 1]int{}

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
