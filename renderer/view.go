// Package renderer draws the level, entities and debug overlays with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/camera"
	"github.com/pthm-cable/sightline/systems"
)

// toScreen converts a world vector to a screen position.
func toScreen(cam *camera.Camera, v r2.Vec) rl.Vector2 {
	x, y := cam.WorldToScreen(float32(v.X), float32(v.Y))
	return rl.Vector2{X: x, Y: y}
}

// screenRect converts a world box to a screen rectangle.
func screenRect(cam *camera.Camera, b systems.AABB) rl.Rectangle {
	min := toScreen(cam, b.Min)
	return rl.Rectangle{
		X:      min.X,
		Y:      min.Y,
		Width:  cam.Scale(float32(b.Max.X - b.Min.X)),
		Height: cam.Scale(float32(b.Max.Y - b.Min.Y)),
	}
}

// onScreen reports whether any part of b is in view.
func onScreen(cam *camera.Camera, b systems.AABB) bool {
	c := b.Center()
	return cam.IsVisible(float32(c.X), float32(c.Y), float32(b.Max.X-c.X), float32(b.Max.Y-c.Y))
}

// visibleCells returns the cell range covered by the viewport, clamped to the grid.
func visibleCells(cam *camera.Camera, grid *systems.WalkabilityGrid) (x0, y0, x1, y1 int) {
	minX, minY, maxX, maxY := cam.VisibleWorldBounds()
	x0, y0 = grid.WorldToCell(r2.Vec{X: float64(minX), Y: float64(minY)})
	x1, y1 = grid.WorldToCell(r2.Vec{X: float64(maxX), Y: float64(maxY)})
	x0, y0, _ = grid.ClampCell(x0, y0)
	x1, y1, _ = grid.ClampCell(x1, y1)
	return x0, y0, x1, y1
}

// shade scales the RGB channels of c by f.
func shade(c rl.Color, f float32) rl.Color {
	scale := func(v uint8) uint8 {
		s := float32(v) * f
		if s > 255 {
			return 255
		}
		return uint8(s)
	}
	return rl.Color{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// fade returns c with alpha a.
func fade(c rl.Color, a uint8) rl.Color {
	c.A = a
	return c
}
