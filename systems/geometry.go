package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// RayEpsilon replaces ray direction components smaller than itself.
const RayEpsilon = 1e-4

// AABB is an axis-aligned box in world space. Min <= Max on both axes.
type AABB struct {
	Min, Max r2.Vec
}

// NewAABB builds a box from two corners in any order.
func NewAABB(x0, y0, x1, y1 float64) AABB {
	return AABB{
		Min: r2.Vec{X: math.Min(x0, x1), Y: math.Min(y0, y1)},
		Max: r2.Vec{X: math.Max(x0, x1), Y: math.Max(y0, y1)},
	}
}

// BoxAround builds a box centred on c with the given half extents.
func BoxAround(c, half r2.Vec) AABB {
	return AABB{Min: r2.Sub(c, half), Max: r2.Add(c, half)}
}

// Valid reports whether every coordinate is finite and Min <= Max.
// Zero-area boxes are valid.
func (b AABB) Valid() bool {
	for _, v := range [4]float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: r2.Vec{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y)},
		Max: r2.Vec{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y)},
	}
}

// Intersects reports whether the boxes overlap. Touching edges count.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

// Contains reports whether o lies entirely inside b.
func (b AABB) Contains(o AABB) bool {
	return b.Min.X <= o.Min.X && b.Min.Y <= o.Min.Y &&
		o.Max.X <= b.Max.X && o.Max.Y <= b.Max.Y
}

// ContainsPoint reports whether p lies strictly inside b.
// Points on the boundary are outside so a mover can rest against a box.
func (b AABB) ContainsPoint(p r2.Vec) bool {
	return p.X > b.Min.X && p.X < b.Max.X && p.Y > b.Min.Y && p.Y < b.Max.Y
}

// Perimeter is the 2D surface-area heuristic used to score BVH insertions.
func (b AABB) Perimeter() float64 {
	return 2 * ((b.Max.X - b.Min.X) + (b.Max.Y - b.Min.Y))
}

// Center returns the box midpoint.
func (b AABB) Center() r2.Vec {
	return r2.Scale(0.5, r2.Add(b.Min, b.Max))
}

// Size returns the box width and height.
func (b AABB) Size() r2.Vec {
	return r2.Sub(b.Max, b.Min)
}

// Ray is a half-line with a unit direction, so parameter t is world distance.
type Ray struct {
	Origin r2.Vec
	Dir    r2.Vec
}

// NewRay nudges near-zero direction components to RayEpsilon (keeping their
// sign, zero becomes positive) and normalizes the result.
func NewRay(origin, dir r2.Vec) Ray {
	d := r2.Vec{X: nudge(dir.X), Y: nudge(dir.Y)}
	return Ray{Origin: origin, Dir: r2.Unit(d)}
}

// RayTowards builds a ray from a to b.
func RayTowards(a, b r2.Vec) Ray {
	return NewRay(a, r2.Sub(b, a))
}

func nudge(v float64) float64 {
	if math.Abs(v) >= RayEpsilon {
		return v
	}
	if math.Signbit(v) {
		return -RayEpsilon
	}
	return RayEpsilon
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) r2.Vec {
	return r2.Add(r.Origin, r2.Scale(t, r.Dir))
}

// slabHit is the result of a ray/box slab test.
type slabHit struct {
	entry  float64 // Distance where the ray enters the box (negative when the origin is inside)
	exit   float64
	normal r2.Vec // Face normal at entry
}

// intersect runs the slab test against b. ok is false when the ray misses
// or the box lies entirely behind the origin.
func (r Ray) intersect(b AABB) (slabHit, bool) {
	// Divide so entry distances match the grid march bit for bit.
	tx1 := (b.Min.X - r.Origin.X) / r.Dir.X
	tx2 := (b.Max.X - r.Origin.X) / r.Dir.X
	ty1 := (b.Min.Y - r.Origin.Y) / r.Dir.Y
	ty2 := (b.Max.Y - r.Origin.Y) / r.Dir.Y

	txNear, txFar := math.Min(tx1, tx2), math.Max(tx1, tx2)
	tyNear, tyFar := math.Min(ty1, ty2), math.Max(ty1, ty2)

	near := math.Max(txNear, tyNear)
	far := math.Min(txFar, tyFar)
	if far < 0 || near > far {
		return slabHit{}, false
	}

	var n r2.Vec
	if txNear >= tyNear {
		n.X = -sign(r.Dir.X)
	} else {
		n.Y = -sign(r.Dir.Y)
	}
	return slabHit{entry: near, exit: far, normal: n}, true
}

// sign returns -1 or 1. Zero maps to 1.
func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
