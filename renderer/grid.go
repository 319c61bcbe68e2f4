package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sightline/camera"
	"github.com/pthm-cable/sightline/systems"
)

// Cell colors by kind.
var (
	colorFloor  = rl.Color{R: 46, G: 50, B: 58, A: 255}
	colorWall   = rl.Color{R: 92, G: 98, B: 110, A: 255}
	colorObject = rl.Color{R: 120, G: 88, B: 60, A: 255}
	colorSpawn  = rl.Color{R: 52, G: 70, B: 60, A: 255}
	colorVoid   = rl.Color{R: 12, G: 12, B: 16, A: 255}
)

// GridRenderer draws the walkability grid with edge shading on solid cells.
type GridRenderer struct {
	ShowLines bool // Outline every cell
}

// NewGridRenderer creates a grid renderer.
func NewGridRenderer() *GridRenderer {
	return &GridRenderer{}
}

// Draw renders the cells in view.
func (r *GridRenderer) Draw(grid *systems.WalkabilityGrid, cam *camera.Camera) {
	x0, y0, x1, y1 := visibleCells(cam, grid)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			kind := grid.At(cx, cy)
			rect := screenRect(cam, grid.CellBounds(cx, cy))
			// Pad by a pixel so neighbouring cells do not leave seams when zoomed
			rect.Width++
			rect.Height++
			rl.DrawRectangleRec(rect, cellColor(kind))

			if !kind.Walkable() {
				r.drawCellEdges(grid, cx, cy, rect, cellColor(kind))
			}
			if r.ShowLines {
				rl.DrawRectangleLinesEx(rect, 1, fade(rl.Black, 60))
			}
		}
	}
}

// drawCellEdges lights the top and left faces of a solid cell and shadows the
// bottom and right faces where they border walkable cells.
func (r *GridRenderer) drawCellEdges(grid *systems.WalkabilityGrid, cx, cy int, rect rl.Rectangle, base rl.Color) {
	edge := rect.Height * 0.15
	if edge < 1 {
		edge = 1
	}

	if grid.Walkable(cx, cy-1) {
		rl.DrawRectangleRec(rl.Rectangle{X: rect.X, Y: rect.Y, Width: rect.Width, Height: edge}, fade(shade(base, 1.4), 200))
	}
	if grid.Walkable(cx, cy+1) {
		rl.DrawRectangleRec(rl.Rectangle{X: rect.X, Y: rect.Y + rect.Height - edge, Width: rect.Width, Height: edge}, fade(shade(base, 0.6), 200))
	}
	if grid.Walkable(cx-1, cy) {
		rl.DrawRectangleRec(rl.Rectangle{X: rect.X, Y: rect.Y, Width: edge, Height: rect.Height}, fade(shade(base, 1.2), 150))
	}
	if grid.Walkable(cx+1, cy) {
		rl.DrawRectangleRec(rl.Rectangle{X: rect.X + rect.Width - edge, Y: rect.Y, Width: edge, Height: rect.Height}, fade(shade(base, 0.7), 150))
	}
}

func cellColor(k systems.CellKind) rl.Color {
	switch k {
	case systems.CellFloor:
		return colorFloor
	case systems.CellWall:
		return colorWall
	case systems.CellObject:
		return colorObject
	case systems.CellSpawn:
		return colorSpawn
	default:
		return colorVoid
	}
}
