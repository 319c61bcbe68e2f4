package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/camera"
	"github.com/pthm-cable/sightline/systems"
)

// Overlay colors.
var (
	colorView     = rl.Color{R: 255, G: 240, B: 160, A: 40}
	colorViewEdge = rl.Color{R: 255, G: 240, B: 160, A: 160}
	colorRay      = rl.Color{R: 255, G: 240, B: 160, A: 50}
	colorFaded    = rl.Color{R: 120, G: 220, B: 255, A: 220}
	colorPath     = rl.Color{R: 120, G: 255, B: 140, A: 200}
)

// DrawVisibility fills a visibility polygon as a fan around its origin.
// With rays set, every sample ray is drawn as well.
func DrawVisibility(poly systems.VisibilityPolygon, cam *camera.Camera, rays bool) {
	n := poly.Len()
	if n < 3 {
		return
	}
	origin := toScreen(cam, poly.Origin)
	for i := 0; i < n; i++ {
		a := toScreen(cam, poly.Vertices[i])
		b := toScreen(cam, poly.Vertices[(i+1)%n])
		// Vertices run clockwise on screen, so the fan is drawn reversed
		rl.DrawTriangle(origin, b, a, colorView)
		rl.DrawLineV(a, b, colorViewEdge)
		if rays {
			rl.DrawLineV(origin, a, colorRay)
		}
	}
	rl.DrawCircleV(origin, 3, colorViewEdge)
}

// DrawFaded marks where rays passed through non-occluding entities.
func DrawFaded(poly systems.VisibilityPolygon, cam *camera.Camera) {
	for _, h := range poly.BlockedHits {
		rl.DrawCircleV(toScreen(cam, h.Point), 2, colorFaded)
	}
}

// DrawPath draws the remaining waypoints from pos.
func DrawPath(pos r2.Vec, path []r2.Vec, next int, cam *camera.Camera) {
	prev := toScreen(cam, pos)
	for i := next; i < len(path); i++ {
		p := toScreen(cam, path[i])
		rl.DrawLineEx(prev, p, 2, colorPath)
		rl.DrawCircleV(p, 3, colorPath)
		prev = p
	}
}

// DrawBVH outlines every index node. Leaves are green; internal nodes fade
// from red at the root as they get deeper.
func DrawBVH(index *systems.SpatialIndex, cam *camera.Camera) {
	index.Each(func(box systems.AABB, depth int, leaf bool, _ ecs.Entity) {
		if !onScreen(cam, box) {
			return
		}
		c := rl.Color{R: 90, G: 230, B: 110, A: 200}
		if !leaf {
			a := 200 - depth*30
			if a < 50 {
				a = 50
			}
			c = rl.Color{R: 240, G: 90, B: 90, A: uint8(a)}
		}
		rl.DrawRectangleLinesEx(screenRect(cam, box), 1, c)
	})
}

// DrawCellMarker outlines one grid cell, e.g. the cell under the cursor.
func DrawCellMarker(grid *systems.WalkabilityGrid, cx, cy int, cam *camera.Camera, c rl.Color) {
	if !grid.InBounds(cx, cy) {
		return
	}
	rl.DrawRectangleLinesEx(screenRect(cam, grid.CellBounds(cx, cy)), 1, c)
}
