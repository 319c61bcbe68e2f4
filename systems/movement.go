package systems

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// moveEpsilon is the displacement below which a step is treated as idle.
const moveEpsilon = 1e-9

// MoverHandle identifies a mover owned by a MovementController.
type MoverHandle int32

// MoverState is the coarse motion state of a mover.
type MoverState uint8

const (
	MoverIdle MoverState = iota
	MoverMoving
)

func (s MoverState) String() string {
	if s == MoverMoving {
		return "moving"
	}
	return "idle"
}

// Mover is a movable entity. Position is the box centre.
type Mover struct {
	Entity      ecs.Entity
	Position    r2.Vec
	HalfExtents r2.Vec
	State       MoverState
	DepthKey    float64 // Draw order: y of the box bottom

	// Viewers get their visibility polygon rebuilt after every committed move.
	Viewer     bool
	EyeOffset  r2.Vec
	Visibility VisibilityPolygon

	active bool
}

// Bounds returns the mover's world box.
func (m *Mover) Bounds() AABB {
	return BoxAround(m.Position, m.HalfExtents)
}

// Eye returns the visibility origin.
func (m *Mover) Eye() r2.Vec {
	return r2.Add(m.Position, m.EyeOffset)
}

// MovementParams tune movement resolution.
type MovementParams struct {
	HitThreshold float64 // Minimum look-ahead distance for sliding
}

// StepResult reports what one Step did.
type StepResult struct {
	Desired   r2.Vec
	Applied   r2.Vec // Displacement actually committed
	Position  r2.Vec // Position after the step
	Hit       RayHit // Movement ray result
	Slid      bool   // Displacement was redirected along a surface
	Committed bool
	Stuck     bool // Candidate was blocked and the move was refused
	Escaped   bool // Committed from a position that was already blocked
}

// MovementController resolves per-tick displacements against the grid and
// the spatial index. It is the only writer of mover entries in the index.
type MovementController struct {
	grid   *WalkabilityGrid
	index  *SpatialIndex
	vis    *VisibilityEngine
	params MovementParams

	movers []Mover
	free   []MoverHandle
}

// NewMovementController creates a controller over the shared grid, index and engine.
func NewMovementController(grid *WalkabilityGrid, index *SpatialIndex, vis *VisibilityEngine, params MovementParams) *MovementController {
	return &MovementController{
		grid:   grid,
		index:  index,
		vis:    vis,
		params: params,
	}
}

// AddMover registers e at pos and inserts its box into the index.
func (c *MovementController) AddMover(e ecs.Entity, pos, halfExtents r2.Vec) (MoverHandle, error) {
	m := Mover{
		Entity:      e,
		Position:    pos,
		HalfExtents: halfExtents,
		DepthKey:    pos.Y + halfExtents.Y,
		active:      true,
	}
	if err := c.index.InsertOrUpdate(e, m.Bounds()); err != nil {
		return -1, fmt.Errorf("add mover: %w", err)
	}

	if n := len(c.free); n > 0 {
		h := c.free[n-1]
		c.free = c.free[:n-1]
		c.movers[h] = m
		return h, nil
	}
	c.movers = append(c.movers, m)
	return MoverHandle(len(c.movers) - 1), nil
}

// RemoveMover drops the mover and its index entry.
func (c *MovementController) RemoveMover(h MoverHandle) error {
	m, err := c.Mover(h)
	if err != nil {
		return err
	}
	c.index.Remove(m.Entity)
	*m = Mover{}
	c.free = append(c.free, h)
	return nil
}

// Mover returns the mover for h.
func (c *MovementController) Mover(h MoverHandle) (*Mover, error) {
	if h < 0 || int(h) >= len(c.movers) || !c.movers[h].active {
		return nil, fmt.Errorf("handle %d: %w", h, ErrUnknownMover)
	}
	return &c.movers[h], nil
}

// SetViewer turns visibility tracking on for h and computes its first polygon.
func (c *MovementController) SetViewer(h MoverHandle, eyeOffset r2.Vec) error {
	m, err := c.Mover(h)
	if err != nil {
		return err
	}
	m.Viewer = true
	m.EyeOffset = eyeOffset
	m.Visibility = c.vis.ComputeVisibilityPolygon(m.Eye(), m.Entity)
	return nil
}

// Len returns the number of live movers.
func (c *MovementController) Len() int { return len(c.movers) - len(c.free) }

// Each calls fn for every live mover in handle order.
func (c *MovementController) Each(fn func(h MoverHandle, m *Mover)) {
	for i := range c.movers {
		if c.movers[i].active {
			fn(MoverHandle(i), &c.movers[i])
		}
	}
}

// Blocked reports whether p is in a non-walkable cell or strictly inside a
// movement-blocking entity other than self.
func (c *MovementController) Blocked(p r2.Vec, self ecs.Entity) bool {
	if !c.grid.WalkableAt(p) {
		return true
	}
	for _, e := range c.index.QueryRegion(AABB{Min: p, Max: p}) {
		if e == self {
			continue
		}
		caps, _ := c.index.Capabilities(e)
		if !caps.BlocksMovement {
			continue
		}
		if box, ok := c.index.Bounds(e); ok && box.ContainsPoint(p) {
			return true
		}
	}
	return false
}

// Step moves h by desired. A movement-blocking hit closer than
// max(HitThreshold, |desired|) redirects the displacement with slideAxisLocked.
// The candidate is refused when it is blocked, unless the mover already
// stood on a blocked position. Refusals are logged as "mover stuck".
func (c *MovementController) Step(h MoverHandle, desired r2.Vec) (StepResult, error) {
	m, err := c.Mover(h)
	if err != nil {
		return StepResult{}, err
	}
	res := StepResult{Desired: desired, Position: m.Position}

	dist := r2.Norm(desired)
	if dist < moveEpsilon {
		m.State = MoverIdle
		return res, nil
	}
	m.State = MoverMoving

	rc := c.vis.CastRay(m.Position, desired, BlocksMovement, m.Entity)
	res.Hit = rc.Hit

	applied := desired
	threshold := math.Max(c.params.HitThreshold, dist)
	if rc.Hit.Blocking() && rc.Hit.Distance <= threshold {
		applied = slideAxisLocked(desired, rc.Hit.Normal)
		res.Slid = true
	}

	candidate := r2.Add(m.Position, applied)
	wasBlocked := c.Blocked(m.Position, m.Entity)
	if !wasBlocked && c.Blocked(candidate, m.Entity) {
		res.Stuck = true
		slog.Debug("mover stuck",
			"entity", m.Entity,
			"position", m.Position,
			"desired", desired,
			"normal", rc.Hit.Normal,
			"hit", rc.Hit.Source,
		)
		return res, nil
	}

	res.Escaped = wasBlocked
	res.Applied = applied
	res.Committed = true
	c.commit(m, candidate)
	res.Position = m.Position
	return res, nil
}

// Teleport places h at pos without collision checks.
func (c *MovementController) Teleport(h MoverHandle, pos r2.Vec) error {
	m, err := c.Mover(h)
	if err != nil {
		return err
	}
	c.commit(m, pos)
	return nil
}

// commit writes the new position through to the index, the depth key and
// the visibility polygon.
func (c *MovementController) commit(m *Mover, pos r2.Vec) {
	m.Position = pos
	m.DepthKey = pos.Y + m.HalfExtents.Y
	if err := c.index.InsertOrUpdate(m.Entity, m.Bounds()); err != nil {
		slog.Warn("mover index update failed", "entity", m.Entity, "error", err)
	}
	if m.Viewer {
		m.Visibility = c.vis.ComputeVisibilityPolygon(m.Eye(), m.Entity)
	}
}

// slideAxisLocked reflects d off n and keeps a single axis of the result:
// the horizontal part when n has a vertical component, else the vertical
// part. Concave corners can zero the displacement entirely.
func slideAxisLocked(d, n r2.Vec) r2.Vec {
	reflected := r2.Sub(d, r2.Scale(2*r2.Dot(d, n), n))
	if n.Y != 0 {
		return r2.Vec{X: reflected.X}
	}
	return r2.Vec{Y: reflected.Y}
}
