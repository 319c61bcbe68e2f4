package game

import (
	"log/slog"

	"github.com/pthm-cable/sightline/inspector"
	"github.com/pthm-cable/sightline/systems"
	"github.com/pthm-cable/sightline/telemetry"
)

// flushTelemetry closes the stats window when it is complete.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.sampleWorld())
	perfStats := g.perfCollector.Stats()

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteFrames(stats); err != nil {
			slog.Error("failed to write frame stats", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// sampleWorld reads the state reported at window end.
func (g *Game) sampleWorld() telemetry.WorldSample {
	visible, explored := g.fog.Counts()
	return telemetry.WorldSample{
		Entities:    g.entityCount(),
		Movers:      g.movers.Len(),
		IndexHeight: g.index.Height(),
		FogVisible:  visible,
		FogExplored: explored,
	}
}

func (g *Game) entityCount() int {
	n := 0
	query := g.entityFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// publishSnapshot offers a snapshot to the inspector every inspector.every
// ticks. A full channel drops the snapshot rather than stall the tick.
func (g *Game) publishSnapshot() {
	if g.snapshots == nil || g.tick%int32(g.cfg.Inspector.Every) != 0 {
		return
	}
	// The tick is the only sender, so a free slot stays free until the send
	if cap(g.snapshots) > 0 && len(g.snapshots) == cap(g.snapshots) {
		slog.Debug("inspector busy, snapshot dropped", "tick", g.tick)
		return
	}
	select {
	case g.snapshots <- g.Snapshot():
	default:
		slog.Debug("inspector busy, snapshot dropped", "tick", g.tick)
	}
}

// Snapshot copies the current engine state for inspection.
func (g *Game) Snapshot() inspector.Snapshot {
	s := inspector.Snapshot{
		Tick:  g.tick,
		Level: g.level.Name,
		Index: inspector.IndexSnapshot{Leaves: g.index.Len(), Height: g.index.Height()},
	}

	query := g.entityFilter.Query()
	for query.Next() {
		e := query.Entity()
		pos, ext, id, _ := query.Get()
		box := systems.BoxAround(pos.Vec(), ext.Vec())
		es := inspector.EntitySnapshot{
			ID:   e.ID(),
			Name: id.Name,
			Kind: id.Kind.String(),
			Box:  [4]float64{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
		}
		parts := []any{pos, ext}
		if g.isMover(e) {
			parts = append(parts, g.moverMap.Get(e), g.intentMap.Get(e))
		}
		es.Fields = inspector.FieldMap(parts...)
		s.Entities = append(s.Entities, es)
	}

	g.movers.Each(func(_ systems.MoverHandle, m *systems.Mover) {
		if !m.Viewer {
			return
		}
		v := inspector.ViewSnapshot{
			ID:       m.Entity.ID(),
			Origin:   [2]float64{m.Visibility.Origin.X, m.Visibility.Origin.Y},
			Vertices: make([][2]float64, len(m.Visibility.Vertices)),
			Casts:    m.Visibility.Casts,
		}
		for i, p := range m.Visibility.Vertices {
			v.Vertices[i] = [2]float64{p.X, p.Y}
		}
		for _, f := range m.Visibility.Faded() {
			v.Faded = append(v.Faded, f.ID())
		}
		s.Views = append(s.Views, v)
	})

	if _, ok := g.playerHandle(); ok {
		w, h := g.grid.Width(), g.grid.Height()
		fog := &inspector.FogSnapshot{Width: w, Height: h, Cells: make([]byte, w*h)}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				fog.Cells[y*w+x] = byte(g.fog.At(x, y))
			}
		}
		s.Fog = fog
	}

	for _, ev := range g.collector.Recent() {
		s.Events = append(s.Events, inspector.EventSnapshot{
			Tick:   ev.Tick,
			Type:   ev.Type.String(),
			Entity: ev.Entity.ID(),
		})
	}
	return s
}
