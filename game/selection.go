package game

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/systems"
)

// MoveTo plans a path for e to target. The mover follows it over the next
// ticks; a patrol resumes once it arrives.
func (g *Game) MoveTo(e ecs.Entity, target r2.Vec) error {
	_, in, err := g.moverOf(e)
	if err != nil {
		return err
	}
	in.Push = r2.Vec{}
	if !g.plan(e, g.posMap.Get(e).Vec(), in, target) {
		if g.planner.LastSearch().Reachable {
			return nil
		}
		return fmt.Errorf("move %v to %v: %w", e, target, systems.ErrUnreachableDestination)
	}
	return nil
}

// Push moves e one step along dir on the next tick and drops its move-to target.
func (g *Game) Push(e ecs.Entity, dir r2.Vec) error {
	_, in, err := g.moverOf(e)
	if err != nil {
		return err
	}
	in.Clear()
	in.Push = dir
	return nil
}

// Stop drops any pending input and target of e.
func (g *Game) Stop(e ecs.Entity) error {
	_, in, err := g.moverOf(e)
	if err != nil {
		return err
	}
	in.Clear()
	in.Push = r2.Vec{}
	return nil
}

// Facing returns the last movement direction of e.
func (g *Game) Facing(e ecs.Entity) (r2.Vec, error) {
	mc, _, err := g.moverOf(e)
	if err != nil {
		return r2.Vec{}, err
	}
	return mc.Facing(), nil
}

// TargetInFront returns the nearest entity within movement.facing_range of
// e along its facing direction. Entities that do not block movement count
// as targets too.
func (g *Game) TargetInFront(e ecs.Entity) (ecs.Entity, bool) {
	mc, _, err := g.moverOf(e)
	if err != nil {
		return ecs.Entity{}, false
	}
	reach := g.cfg.Movement.FacingRange
	rc := g.vis.CastRay(g.posMap.Get(e).Vec(), mc.Facing(), systems.BlocksMovement, e)

	var best ecs.Entity
	bestDist := reach
	found := false
	if rc.Hit.Source == systems.SourceEntity && rc.Hit.Distance <= bestDist {
		best, bestDist, found = rc.Hit.Entity, rc.Hit.Distance, true
	}
	for _, h := range rc.BlockedHits {
		if h.Distance <= bestDist && (!found || h.Distance < bestDist) {
			best, bestDist, found = h.Entity, h.Distance, true
		}
	}
	return best, found
}

// SelectAt returns the entity whose box contains p, preferring the one whose
// centre is closest.
func (g *Game) SelectAt(p r2.Vec) (ecs.Entity, bool) {
	var best ecs.Entity
	bestDist := 0.0
	found := false
	for _, e := range g.index.QueryRegion(systems.AABB{Min: p, Max: p}) {
		box, ok := g.index.Bounds(e)
		if !ok {
			continue
		}
		d := r2.Norm(r2.Sub(box.Center(), p))
		if !found || d < bestDist {
			best, bestDist, found = e, d, true
		}
	}
	return best, found
}

// EntitiesIn returns every indexed entity whose box touches rect.
func (g *Game) EntitiesIn(rect systems.AABB) []ecs.Entity {
	return g.index.QueryRegion(rect)
}

// CanSee reports whether the viewer e sees target: the target's centre is
// inside the polygon, or one of the polygon's rays stopped on or passed
// through its box.
func (g *Game) CanSee(e, target ecs.Entity) (bool, error) {
	mc, _, err := g.moverOf(e)
	if err != nil {
		return false, err
	}
	if !g.world.Alive(target) {
		return false, fmt.Errorf("entity %v: %w", target, ErrUnknownEntity)
	}
	m, err := g.movers.Mover(mc.Handle)
	if err != nil {
		return false, err
	}
	if !m.Viewer {
		return false, nil
	}
	for _, h := range m.Visibility.Hits {
		if h.Source == systems.SourceEntity && h.Entity == target {
			return true, nil
		}
	}
	for _, h := range m.Visibility.BlockedHits {
		if h.Entity == target {
			return true, nil
		}
	}
	return m.Visibility.Contains(g.posMap.Get(target).Vec()), nil
}

// ViewOf returns the visibility polygon of viewer e.
func (g *Game) ViewOf(e ecs.Entity) (systems.VisibilityPolygon, bool) {
	mc, _, err := g.moverOf(e)
	if err != nil {
		return systems.VisibilityPolygon{}, false
	}
	m, err := g.movers.Mover(mc.Handle)
	if err != nil || !m.Viewer {
		return systems.VisibilityPolygon{}, false
	}
	return m.Visibility, true
}
