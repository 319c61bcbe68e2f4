package systems

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// FogState represents the visibility of a grid cell.
type FogState uint8

const (
	FogShroud   FogState = iota // never seen
	FogExplored                 // seen before but not now
	FogVisible                  // currently visible
)

func (s FogState) String() string {
	switch s {
	case FogExplored:
		return "explored"
	case FogVisible:
		return "visible"
	default:
		return "shroud"
	}
}

// FogOfWar is a per-cell visibility mask rasterised from visibility polygons.
type FogOfWar struct {
	Width, Height int
	Grid          []FogState // per-cell fog state

	grid *WalkabilityGrid
}

// NewFogOfWar creates a fully shrouded mask matching grid.
func NewFogOfWar(grid *WalkabilityGrid) *FogOfWar {
	return &FogOfWar{
		Width:  grid.Width(),
		Height: grid.Height(),
		Grid:   make([]FogState, grid.Width()*grid.Height()),
		grid:   grid,
	}
}

// At returns the fog state at (x, y).
func (f *FogOfWar) At(x, y int) FogState {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return FogShroud
	}
	return f.Grid[y*f.Width+x]
}

// IsVisible returns true if the cell is currently visible.
func (f *FogOfWar) IsVisible(x, y int) bool {
	return f.At(x, y) == FogVisible
}

// Demote turns every visible cell into explored. Call once per rebuild,
// before revealing the new polygons.
func (f *FogOfWar) Demote() {
	for i := range f.Grid {
		if f.Grid[i] == FogVisible {
			f.Grid[i] = FogExplored
		}
	}
}

// Reveal marks the cells of poly visible: every cell whose centre is inside
// the polygon, the cell holding the origin, and the solid cells the rays
// stopped on. It returns how many cells it marked.
func (f *FogOfWar) Reveal(poly VisibilityPolygon) int {
	if len(poly.Vertices) == 0 {
		return 0
	}
	marked := 0
	mark := func(cx, cy int) {
		if cx < 0 || cy < 0 || cx >= f.Width || cy >= f.Height {
			return
		}
		i := cy*f.Width + cx
		if f.Grid[i] != FogVisible {
			f.Grid[i] = FogVisible
			marked++
		}
	}

	b := poly.Bounds()
	x0, y0 := f.grid.WorldToCell(b.Min)
	x1, y1 := f.grid.WorldToCell(b.Max)
	x0, y0, _ = f.grid.ClampCell(x0, y0)
	x1, y1, _ = f.grid.ClampCell(x1, y1)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			if poly.Contains(f.grid.CellCenter(cx, cy)) {
				mark(cx, cy)
			}
		}
	}

	mark(f.grid.WorldToCell(poly.Origin))

	// Hit points sit on the face of the solid cell; step back through the
	// normal to land inside it.
	inset := f.grid.CellSize() * 1e-3
	for _, h := range poly.Hits {
		if h.Source != SourceGrid {
			continue
		}
		mark(f.grid.WorldToCell(r2.Sub(h.Point, r2.Scale(inset, h.Normal))))
	}
	return marked
}

// Counts returns the number of visible and explored cells.
func (f *FogOfWar) Counts() (visible, explored int) {
	for _, s := range f.Grid {
		switch s {
		case FogVisible:
			visible++
		case FogExplored:
			explored++
		}
	}
	return
}

// Reset shrouds every cell.
func (f *FogOfWar) Reset() {
	clear(f.Grid)
}
