package game

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/components"
	"github.com/pthm-cable/sightline/systems"
	"github.com/pthm-cable/sightline/telemetry"
)

// Step runs a single tick. Index writes made in one phase are visible to
// every query that follows, in this tick and the next.
func (g *Game) Step() {
	g.perfCollector.StartTick()

	// 1. Write prop boxes to the index
	g.perfCollector.StartPhase(telemetry.PhaseBounds)
	g.syncBounds()

	// 2. Turn input, move-to targets and patrols into displacements
	g.perfCollector.StartPhase(telemetry.PhaseIntents)
	g.updateIntents()

	// 3. Resolve displacements against the grid and the index
	g.perfCollector.StartPhase(telemetry.PhaseMovement)
	g.updateMovement()

	// 4. Rebuild stale visibility polygons and the player's fog
	g.perfCollector.StartPhase(telemetry.PhaseVisibility)
	g.updateVisibility()

	g.tick++

	// 5. Stats windows and inspector snapshots
	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()
	g.publishSnapshot()

	g.perfCollector.EndTick()
}

// updateIntents picks each mover's displacement for this tick. Direct
// input wins over a move-to target; an idle mover with a patrol plans its
// next leg.
func (g *Game) updateIntents() {
	g.pending = g.pending[:0]
	dt := g.cfg.Derived.DT
	arrive := g.cfg.Movement.ArriveDistance

	query := g.moverFilter.Query()
	for query.Next() {
		e := query.Entity()
		pos, mc, in := query.Get()
		stepLen := mc.Speed * dt

		var desired r2.Vec
		switch {
		case in.Push != (r2.Vec{}):
			desired = r2.Scale(stepLen, unit(in.Push))
			in.Push = r2.Vec{}
		default:
			if !in.HasTarget && len(in.Patrol) > 0 {
				goal := in.Patrol[in.PatrolIdx]
				in.PatrolIdx = (in.PatrolIdx + 1) % len(in.Patrol)
				g.plan(e, pos.Vec(), in, goal)
			}
			desired = followPath(pos.Vec(), in, stepLen, arrive)
		}
		g.pending = append(g.pending, pendingStep{entity: e, handle: mc.Handle, desired: desired})
	}
}

// followPath returns the displacement towards the current waypoint,
// advancing past waypoints within arrive. The target is cleared once the
// last waypoint is reached.
func followPath(pos r2.Vec, in *components.Intent, stepLen, arrive float64) r2.Vec {
	for {
		wp, ok := in.Waypoint()
		if !ok {
			if in.HasTarget {
				in.Clear()
			}
			return r2.Vec{}
		}
		to := r2.Sub(wp, pos)
		d := r2.Norm(to)
		if d <= arrive {
			in.Next++
			continue
		}
		return r2.Scale(math.Min(stepLen, d)/d, to)
	}
}

// plan searches a path from from to goal and stores it in the intent.
// It reports whether the mover has somewhere to go.
func (g *Game) plan(e ecs.Entity, from r2.Vec, in *components.Intent, goal r2.Vec) bool {
	opts := systems.PathOptions{
		AllowDiagonals:    g.cfg.Pathfinding.AllowDiagonals,
		FallbackToClosest: g.cfg.Pathfinding.FallbackToClosest,
	}
	path := g.planner.FindPath(from, goal, opts)
	stats := g.planner.LastSearch()
	g.collector.RecordSearch(stats)

	if stats.Fallback {
		g.collector.Record(telemetry.Event{Type: telemetry.EventPathFallback, Tick: g.tick, Entity: e})
	}
	if len(path) == 0 {
		if !stats.Reachable {
			g.collector.Record(telemetry.Event{Type: telemetry.EventUnreachable, Tick: g.tick, Entity: e})
			in.Clear()
			return false
		}
		if stats.Clamped {
			// Already in the clamped goal cell
			in.Clear()
			return false
		}
		// Same cell: walk straight there
		path = []r2.Vec{goal}
	}

	in.Target = goal
	in.HasTarget = true
	in.Path = append(in.Path[:0], path...)
	in.Next = 0
	return true
}

// updateMovement steps every pending mover and writes committed positions
// back to the ECS.
func (g *Game) updateMovement() {
	for _, p := range g.pending {
		res, err := g.movers.Step(p.handle, p.desired)
		if err != nil {
			slog.Warn("mover step skipped", "entity", p.entity, "error", err)
			g.collector.Record(telemetry.Event{Type: telemetry.EventRemoved, Tick: g.tick, Entity: p.entity})
			continue
		}
		if p.desired == (r2.Vec{}) {
			continue
		}
		g.collector.RecordStep(res)

		mc := g.moverMap.Get(p.entity)
		f := unit(p.desired)
		mc.FacingX, mc.FacingY = f.X, f.Y

		if res.Stuck {
			mc.Stuck++
			if mc.Stuck == 1 {
				g.collector.Record(telemetry.Event{Type: telemetry.EventStuck, Tick: g.tick, Entity: p.entity})
			}
			g.handleStuck(p.entity, res.Position, mc)
			continue
		}

		mc.Stuck = 0
		if res.Escaped {
			g.collector.Record(telemetry.Event{Type: telemetry.EventEscape, Tick: g.tick, Entity: p.entity})
		}
		pos := g.posMap.Get(p.entity)
		if pos.Vec() != res.Position {
			// Every other viewer may now see more or less of this mover
			g.boundsDirty = true
		}
		pos.Set(res.Position)
		g.noteSwept(p.handle)
	}
}

// handleStuck replans a mover that keeps getting refused, and gives up on
// its target after three attempts.
func (g *Game) handleStuck(e ecs.Entity, pos r2.Vec, mc *components.Mover) {
	in := g.intentMap.Get(e)
	if !in.HasTarget || mc.Stuck%stuckReplanTicks != 0 {
		return
	}
	if mc.Stuck >= 3*stuckReplanTicks {
		slog.Debug("mover gave up target", "entity", e, "target", in.Target)
		in.Clear()
		mc.Stuck = 0
		return
	}
	g.plan(e, pos, in, in.Target)
}

// noteSwept marks a mover whose polygon was rebuilt by a committed move.
func (g *Game) noteSwept(h systems.MoverHandle) {
	g.swept = append(g.swept, h)
}

// updateVisibility records rebuilt polygons. Any index change, from a prop
// or a mover, makes every viewer polygon stale, so all are rebuilt.
func (g *Game) updateVisibility() {
	playerSwept := false
	if g.boundsDirty {
		g.refreshViewers()
		g.boundsDirty = false
		playerSwept = true
	} else {
		ph, hasPlayer := g.playerHandle()
		for _, h := range g.swept {
			m, err := g.movers.Mover(h)
			if err != nil || !m.Viewer {
				continue
			}
			g.collector.RecordSweep(&m.Visibility)
			if hasPlayer && h == ph {
				playerSwept = true
			}
		}
	}
	if playerSwept {
		g.revealFog()
	}
	g.swept = g.swept[:0]
}

// refreshViewers rebuilds every viewer polygon.
func (g *Game) refreshViewers() {
	g.movers.Each(func(h systems.MoverHandle, m *systems.Mover) {
		if !m.Viewer {
			return
		}
		if err := g.movers.SetViewer(h, m.EyeOffset); err != nil {
			return
		}
		g.collector.RecordSweep(&m.Visibility)
	})
}

// revealFog demotes the player's fog and rasterises its current polygon.
func (g *Game) revealFog() {
	h, ok := g.playerHandle()
	if !ok {
		return
	}
	m, err := g.movers.Mover(h)
	if err != nil || !m.Viewer {
		return
	}
	g.fog.Demote()
	g.fog.Reveal(m.Visibility)
}

func (g *Game) playerHandle() (systems.MoverHandle, bool) {
	e, ok := g.Player()
	if !ok {
		return -1, false
	}
	return g.moverMap.Get(e).Handle, true
}
