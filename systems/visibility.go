package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// VisibilityPolygon is the boundary of space visible from Origin. Vertices
// are accepted hit points in ascending angle order; the polygon closes from
// the last vertex back to the first.
type VisibilityPolygon struct {
	Origin      r2.Vec
	Vertices    []r2.Vec
	Angles      []float64 // Sample angle of each vertex, radians in [0, 2π)
	Hits        []RayHit  // Hit behind each vertex
	BlockedHits []RayHit  // Non-occluding entities seen along the accepted rays

	Casts       int // Rays cast, refinements included
	Refinements int // Midpoints pushed back for corner resolution
}

// Len returns the vertex count.
func (p VisibilityPolygon) Len() int { return len(p.Vertices) }

// Faded returns the distinct entities in BlockedHits in first-seen order.
func (p VisibilityPolygon) Faded() []ecs.Entity {
	var out []ecs.Entity
	seen := make(map[ecs.Entity]struct{}, len(p.BlockedHits))
	for _, h := range p.BlockedHits {
		if _, ok := seen[h.Entity]; ok {
			continue
		}
		seen[h.Entity] = struct{}{}
		out = append(out, h.Entity)
	}
	return out
}

// Contains reports whether pt lies inside the polygon (even-odd rule).
func (p VisibilityPolygon) Contains(pt r2.Vec) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		a, b := p.Vertices[i], p.Vertices[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if pt.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Area returns the shoelace area of the vertex loop.
func (p VisibilityPolygon) Area() float64 {
	n := len(p.Vertices)
	if n < 3 {
		return 0
	}
	var sum float64
	for i, a := range p.Vertices {
		b := p.Vertices[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the box around the vertices and the origin.
func (p VisibilityPolygon) Bounds() AABB {
	b := AABB{Min: p.Origin, Max: p.Origin}
	for _, v := range p.Vertices {
		b = b.Union(AABB{Min: v, Max: v})
	}
	return b
}

// sweepSample is an angle waiting in the sweep queue. cast is set when the
// angle was already cast and is being retried after a refinement.
type sweepSample struct {
	angle float64
	cast  *RayCast
}

// sweepQueue is a FIFO of base angles with a front stack for refinements.
type sweepQueue struct {
	front []sweepSample // Pushed to the front; last element is next
	base  []float64
	next  int
}

func (q *sweepQueue) pushFront(s sweepSample) { q.front = append(q.front, s) }

func (q *sweepQueue) pop() (sweepSample, bool) {
	if n := len(q.front); n > 0 {
		s := q.front[n-1]
		q.front = q.front[:n-1]
		return s, true
	}
	if q.next < len(q.base) {
		s := sweepSample{angle: q.base[q.next]}
		q.next++
		return s, true
	}
	return sweepSample{}, false
}

// ComputeVisibilityPolygon sweeps BaseSamples uniform angles around origin
// with BlocksVision rays. When a sample differs from the previously accepted
// one (hit points further apart than CornerDistance, or different normals)
// and the angular gap is above AngleEpsilon, the midpoint and the sample are
// pushed back to the front of the queue and retried. Two range-limited
// misses in a row are an arc, not a corner. The gap between the last and
// first sample is not refined.
func (v *VisibilityEngine) ComputeVisibilityPolygon(origin r2.Vec, exclude ...ecs.Entity) VisibilityPolygon {
	n := v.params.BaseSamples
	q := sweepQueue{base: make([]float64, n)}
	for i := range q.base {
		q.base[i] = 2 * math.Pi * float64(i) / float64(n)
	}

	poly := VisibilityPolygon{
		Origin:   origin,
		Vertices: make([]r2.Vec, 0, n),
		Angles:   make([]float64, 0, n),
		Hits:     make([]RayHit, 0, n),
	}

	for {
		s, ok := q.pop()
		if !ok {
			break
		}
		rc := s.cast
		if rc == nil {
			cast := v.CastRay(origin, r2.Vec{X: math.Cos(s.angle), Y: math.Sin(s.angle)}, BlocksVision, exclude...)
			rc = &cast
			poly.Casts++
		}

		if last := len(poly.Hits) - 1; last >= 0 && poly.Casts < v.params.MaxSamples {
			prevAngle := poly.Angles[last]
			gap := s.angle - prevAngle
			if gap > v.params.AngleEpsilon && isCorner(poly.Hits[last], rc.Hit, v.params.CornerDistance) {
				q.pushFront(sweepSample{angle: s.angle, cast: rc})
				q.pushFront(sweepSample{angle: prevAngle + gap/2})
				poly.Refinements++
				continue
			}
		}

		poly.Vertices = append(poly.Vertices, rc.Hit.Point)
		poly.Angles = append(poly.Angles, s.angle)
		poly.Hits = append(poly.Hits, rc.Hit)
		poly.BlockedHits = append(poly.BlockedHits, rc.BlockedHits...)
	}

	return poly
}

// isCorner reports whether two neighbouring samples straddle a discontinuity.
func isCorner(a, b RayHit, cornerDist float64) bool {
	if !a.Blocking() && !b.Blocking() {
		return false
	}
	if a.Normal != b.Normal {
		return true
	}
	return r2.Norm(r2.Sub(a.Point, b.Point)) > cornerDist
}
