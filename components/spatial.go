package components

import "gonum.org/v1/gonum/spatial/r2"

// Position is the centre of an entity's box in world units.
type Position struct {
	X float64 `inspect:"label,fmt:%.1f"`
	Y float64 `inspect:"label,fmt:%.1f"`
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Set copies v into the position.
func (p *Position) Set(v r2.Vec) { p.X, p.Y = v.X, v.Y }

// Extent is half the size of an entity's box.
type Extent struct {
	HalfW float64 `inspect:"label,fmt:%.1f"`
	HalfH float64 `inspect:"label,fmt:%.1f"`
}

// Vec returns the half extents as a vector.
func (e Extent) Vec() r2.Vec { return r2.Vec{X: e.HalfW, Y: e.HalfH} }
