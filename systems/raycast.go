package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// HitSource tells what a ray hit.
type HitSource uint8

const (
	SourceNone   HitSource = iota // Nothing within range
	SourceGrid                    // A non-walkable grid cell
	SourceEntity                  // An entity box from the spatial index
)

func (s HitSource) String() string {
	switch s {
	case SourceGrid:
		return "grid"
	case SourceEntity:
		return "entity"
	default:
		return "none"
	}
}

// RayHit is one ray intersection. Normal components are -1, 0 or 1.
type RayHit struct {
	Point    r2.Vec
	Normal   r2.Vec
	Distance float64
	Source   HitSource
	Entity   ecs.Entity // Set when Source is SourceEntity
}

// Blocking reports whether the ray stopped on something.
func (h RayHit) Blocking() bool { return h.Source != SourceNone }

// RayCast is the result of CastRay: the nearest blocking hit and the
// non-blocking entities passed on the way.
type RayCast struct {
	Hit         RayHit
	BlockedHits []RayHit
}

// Raycast marches r through the grid (Amanatides-Woo, in world units) and
// returns the first boundary it crosses into a non-walkable cell. The cell
// holding the origin is never reported, so a ray leaving a wall sees the
// next wall it enters. Cells outside the grid are solid.
func (g *WalkabilityGrid) Raycast(r Ray, maxDist float64) (RayHit, bool) {
	cs := g.cellSize
	cx, cy := g.WorldToCell(r.Origin)

	stepX, stepY := 1, 1
	boundX := float64(cx+1) * cs
	boundY := float64(cy+1) * cs
	if r.Dir.X < 0 {
		stepX = -1
		boundX = float64(cx) * cs
	}
	if r.Dir.Y < 0 {
		stepY = -1
		boundY = float64(cy) * cs
	}

	tMaxX := (boundX - r.Origin.X) / r.Dir.X
	tMaxY := (boundY - r.Origin.Y) / r.Dir.Y
	tDeltaX := cs / math.Abs(r.Dir.X)
	tDeltaY := cs / math.Abs(r.Dir.Y)

	// Negative maxDist is unbounded; the grid edge still ends the march.
	limit := maxDist
	if limit < 0 {
		limit = math.Inf(1)
	}

	for {
		var t float64
		var n r2.Vec
		if tMaxX < tMaxY {
			t = tMaxX
			cx += stepX
			tMaxX += tDeltaX
			n = r2.Vec{X: float64(-stepX)}
		} else {
			t = tMaxY
			cy += stepY
			tMaxY += tDeltaY
			n = r2.Vec{Y: float64(-stepY)}
		}
		if t > limit {
			return RayHit{}, false
		}
		if !g.Walkable(cx, cy) {
			return RayHit{
				Point:    r.At(t),
				Normal:   n,
				Distance: t,
				Source:   SourceGrid,
			}, true
		}
	}
}

// LineOfSight reports whether the straight segment a-b crosses only walkable cells.
func (g *WalkabilityGrid) LineOfSight(a, b r2.Vec) bool {
	if !g.WalkableAt(a) || !g.WalkableAt(b) {
		return false
	}
	d := r2.Norm(r2.Sub(b, a))
	if d == 0 {
		return true
	}
	_, hit := g.Raycast(RayTowards(a, b), d)
	return !hit
}

// VisibilityParams tune CastRay and the visibility sweep.
type VisibilityParams struct {
	BaseSamples    int     // Uniform angles per sweep
	CornerDistance float64 // Hit point jump that marks a corner
	AngleEpsilon   float64 // Smallest refinable gap, radians
	MaxDistance    float64 // Ray range limit
	MaxSamples     int     // Casts per sweep before refinement stops
}

// DefaultVisibilityParams returns the standard sweep settings.
func DefaultVisibilityParams() VisibilityParams {
	return VisibilityParams{
		BaseSamples:    64,
		CornerDistance: 16,
		AngleEpsilon:   0.25 * math.Pi / 180,
		MaxDistance:    320,
		MaxSamples:     2048,
	}
}

// VisibilityEngine answers ray and visibility queries against a grid and an index.
// Its queries never change either.
type VisibilityEngine struct {
	grid   *WalkabilityGrid
	index  *SpatialIndex
	params VisibilityParams
}

// NewVisibilityEngine creates an engine over grid and index.
func NewVisibilityEngine(grid *WalkabilityGrid, index *SpatialIndex, params VisibilityParams) *VisibilityEngine {
	if params.BaseSamples < 3 {
		params.BaseSamples = 3
	}
	if params.MaxSamples < params.BaseSamples {
		params.MaxSamples = params.BaseSamples
	}
	if params.MaxDistance <= 0 {
		params.MaxDistance = DefaultVisibilityParams().MaxDistance
	}
	return &VisibilityEngine{grid: grid, index: index, params: params}
}

// Params returns the engine settings.
func (v *VisibilityEngine) Params() VisibilityParams { return v.params }

// CastRay finds the nearest hit along dir that blocks attr. Entities whose
// capability is off are collected into BlockedHits when nearer than the hit.
// A grid hit wins a distance tie against an entity. Boxes containing the
// origin are never hit, and exclude lists entities to ignore entirely.
func (v *VisibilityEngine) CastRay(origin, dir r2.Vec, attr Attribute, exclude ...ecs.Entity) RayCast {
	r := NewRay(origin, dir)
	maxD := v.params.MaxDistance

	best := RayHit{Point: r.At(maxD), Distance: maxD, Source: SourceNone}
	if gh, ok := v.grid.Raycast(r, maxD); ok {
		best = gh
	}

	var passed []RayHit
	for _, c := range v.index.QueryRayWithin(r, best.Distance) {
		if c.Inside || excluded(c.Entity, exclude) {
			continue
		}
		if c.Distance > best.Distance {
			break
		}
		hit := RayHit{
			Point:    r.At(c.Distance),
			Normal:   c.Normal,
			Distance: c.Distance,
			Source:   SourceEntity,
			Entity:   c.Entity,
		}
		if !c.Caps.Has(attr) {
			passed = append(passed, hit)
			continue
		}
		if c.Distance < best.Distance || best.Source == SourceNone {
			best = hit
		}
		break
	}

	var blocked []RayHit
	for _, h := range passed {
		if h.Distance < best.Distance {
			blocked = append(blocked, h)
		}
	}
	return RayCast{Hit: best, BlockedHits: blocked}
}

func excluded(e ecs.Entity, list []ecs.Entity) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}
