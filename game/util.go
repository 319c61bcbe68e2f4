package game

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/systems"
)

// unit returns v scaled to length 1, or the zero vector.
func unit(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}

// sameBox compares boxes bit for bit so NaN boxes match themselves.
func sameBox(a, b systems.AABB) bool {
	return sameBits(a.Min.X, b.Min.X) && sameBits(a.Min.Y, b.Min.Y) &&
		sameBits(a.Max.X, b.Max.X) && sameBits(a.Max.Y, b.Max.Y)
}

func sameBits(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}
