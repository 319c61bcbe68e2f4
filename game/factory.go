package game

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/components"
	"github.com/pthm-cable/sightline/level"
	"github.com/pthm-cable/sightline/systems"
	"github.com/pthm-cable/sightline/telemetry"
)

// eyeHeight lifts a viewer's eye above its box centre, as a fraction of the half height.
const eyeHeight = 0.5

// spawn creates the entity for a level entry. Players and NPCs get a mover
// handle; props are indexed by the next bounds sync.
func (g *Game) spawn(le level.Entity) (ecs.Entity, error) {
	pos := components.Position{X: le.X, Y: le.Y}
	ext := components.Extent{HalfW: le.Width / 2, HalfH: le.Height / 2}
	id := components.Identity{Name: le.Name, Kind: kindOf(le.Kind)}
	attrs := components.Attributes{Values: maps.Clone(le.Attributes)}

	if id.Kind == components.KindProp {
		e := g.propMapper.NewEntity(&pos, &ext, &id, &attrs)
		g.names[le.Name] = e
		return e, nil
	}

	speed := le.Speed
	if speed == 0 {
		speed = g.cfg.Movement.DefaultSpeed
	}
	mover := components.Mover{Speed: speed, FacingX: 1}
	intent := components.Intent{}
	for _, p := range le.Patrol {
		intent.Patrol = append(intent.Patrol, p.Vec())
	}

	var e ecs.Entity
	var viewer components.Viewer
	if le.Viewer {
		viewer = components.Viewer{EyeY: -ext.HalfH * eyeHeight}
		e = g.viewerMapper.NewEntity(&pos, &ext, &id, &attrs, &mover, &intent, &viewer)
	} else {
		e = g.moverMapper.NewEntity(&pos, &ext, &id, &attrs, &mover, &intent)
	}

	h, err := g.movers.AddMover(e, pos.Vec(), ext.Vec())
	if err != nil {
		g.world.RemoveEntity(e)
		return ecs.Entity{}, err
	}
	g.moverMap.Get(e).Handle = h

	if le.Viewer {
		// Polygons are computed once every prop is indexed
		m, _ := g.movers.Mover(h)
		m.Viewer = true
		m.EyeOffset = viewer.Eye()
	}
	if id.Kind == components.KindPlayer && !g.hasPlayer {
		g.player = e
		g.hasPlayer = true
	}
	g.names[le.Name] = e
	return e, nil
}

// Remove deletes e from the world, the index and the movement controller.
func (g *Game) Remove(e ecs.Entity) error {
	if !g.world.Alive(e) {
		return fmt.Errorf("entity %v: %w", e, ErrUnknownEntity)
	}
	if g.isMover(e) {
		if err := g.movers.RemoveMover(g.moverMap.Get(e).Handle); err != nil {
			slog.Warn("mover already gone", "entity", e, "error", err)
		}
	}
	g.index.Remove(e)
	delete(g.skipped, e)

	name := g.idMap.Get(e).Name
	if g.names[name] == e {
		delete(g.names, name)
	}
	if g.hasPlayer && g.player == e {
		g.hasPlayer = false
	}
	g.world.RemoveEntity(e)
	g.boundsDirty = true
	return nil
}

// SetBounds moves and resizes a prop. The index picks it up at the next
// bounds sync. Movers are moved with Teleport.
func (g *Game) SetBounds(e ecs.Entity, center, halfExtents r2.Vec) error {
	if !g.world.Alive(e) {
		return fmt.Errorf("entity %v: %w", e, ErrUnknownEntity)
	}
	if g.isMover(e) {
		return fmt.Errorf("entity %v: movers are moved with Teleport", e)
	}
	g.posMap.Get(e).Set(center)
	ext := g.extMap.Get(e)
	ext.HalfW, ext.HalfH = halfExtents.X, halfExtents.Y
	return nil
}

// Teleport places a mover at pos without collision checks. Every viewer
// polygon and the fog are rebuilt at once.
func (g *Game) Teleport(e ecs.Entity, pos r2.Vec) error {
	mc, in, err := g.moverOf(e)
	if err != nil {
		return err
	}
	if err := g.movers.Teleport(mc.Handle, pos); err != nil {
		return err
	}
	g.posMap.Get(e).Set(pos)
	in.Clear()
	g.refreshViewers()
	g.revealFog()
	return nil
}

// syncBounds writes every prop box to the index. Unchanged boxes are a no-op.
// Props with invalid boxes are dropped from the index until their box changes.
func (g *Game) syncBounds() {
	query := g.entityFilter.Query()
	for query.Next() {
		e := query.Entity()
		pos, ext, id, _ := query.Get()
		if id.Kind != components.KindProp {
			continue
		}

		box := systems.BoxAround(pos.Vec(), ext.Vec())
		if old, ok := g.index.Bounds(e); ok && old == box {
			continue
		}
		if bad, ok := g.skipped[e]; ok && sameBox(bad, box) {
			continue
		}
		if err := g.index.InsertOrUpdate(e, box); err != nil {
			g.skipped[e] = box
			if g.index.Contains(e) {
				g.index.Remove(e)
				g.boundsDirty = true
			}
			g.collector.Record(telemetry.Event{Type: telemetry.EventRemoved, Tick: g.tick, Entity: e})
			continue
		}
		delete(g.skipped, e)
		g.boundsDirty = true
	}
}

func kindOf(k level.Kind) components.Kind {
	switch k {
	case level.KindPlayer:
		return components.KindPlayer
	case level.KindNPC:
		return components.KindNPC
	default:
		return components.KindProp
	}
}
