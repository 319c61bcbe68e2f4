package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// CellKind classifies one grid cell.
type CellKind uint8

const (
	CellVoid   CellKind = iota // Outside the playable area
	CellFloor                  // Walkable floor
	CellWall                   // Solid wall
	CellObject                 // Static object baked into the grid
	CellSpawn                  // Walkable spawn marker
)

// Walkable reports whether movers may stand in the cell. Non-walkable cells
// are solid for every ray.
func (k CellKind) Walkable() bool {
	return k == CellFloor || k == CellSpawn
}

func (k CellKind) String() string {
	switch k {
	case CellFloor:
		return "floor"
	case CellWall:
		return "wall"
	case CellObject:
		return "object"
	case CellSpawn:
		return "spawn"
	default:
		return "void"
	}
}

// Rune returns the level-file character for the cell.
func (k CellKind) Rune() rune {
	switch k {
	case CellFloor:
		return '.'
	case CellWall:
		return '#'
	case CellObject:
		return 'o'
	case CellSpawn:
		return 'S'
	default:
		return ' '
	}
}

// ParseCellKind maps a level-file character to its cell kind.
func ParseCellKind(r rune) (CellKind, bool) {
	switch r {
	case '.':
		return CellFloor, true
	case '#':
		return CellWall, true
	case 'o':
		return CellObject, true
	case 'S':
		return CellSpawn, true
	case ' ':
		return CellVoid, true
	}
	return CellVoid, false
}

// WalkabilityGrid is the per-level cell classification. It is immutable once built.
type WalkabilityGrid struct {
	cells    []CellKind
	cellSize float64 // world units per cell
	width    int     // grid width in cells
	height   int     // grid height in cells
}

// NewWalkabilityGrid copies cells (row-major, width*height) into a new grid.
func NewWalkabilityGrid(width, height int, cellSize float64, cells []CellKind) (*WalkabilityGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid size %dx%d must be positive", width, height)
	}
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("cell size %v must be positive", cellSize)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("grid %dx%d needs %d cells, got %d", width, height, width*height, len(cells))
	}
	g := &WalkabilityGrid{
		cells:    make([]CellKind, len(cells)),
		cellSize: cellSize,
		width:    width,
		height:   height,
	}
	copy(g.cells, cells)
	return g, nil
}

// GridFromRows builds a grid from level-file rows. Short rows are padded with void.
func GridFromRows(rows []string, cellSize float64) (*WalkabilityGrid, error) {
	width := 0
	for _, row := range rows {
		if n := len([]rune(row)); n > width {
			width = n
		}
	}
	cells := make([]CellKind, 0, width*len(rows))
	for y, row := range rows {
		runes := []rune(row)
		for x := 0; x < width; x++ {
			if x >= len(runes) {
				cells = append(cells, CellVoid)
				continue
			}
			k, ok := ParseCellKind(runes[x])
			if !ok {
				return nil, fmt.Errorf("row %d col %d: unknown cell %q", y, x, runes[x])
			}
			cells = append(cells, k)
		}
	}
	return NewWalkabilityGrid(width, len(rows), cellSize, cells)
}

// Width returns the grid width in cells.
func (g *WalkabilityGrid) Width() int { return g.width }

// Height returns the grid height in cells.
func (g *WalkabilityGrid) Height() int { return g.height }

// CellSize returns world units per cell.
func (g *WalkabilityGrid) CellSize() float64 { return g.cellSize }

// InBounds reports whether the cell exists.
func (g *WalkabilityGrid) InBounds(cx, cy int) bool {
	return cx >= 0 && cx < g.width && cy >= 0 && cy < g.height
}

// At returns the cell kind. Out of bounds is void.
func (g *WalkabilityGrid) At(cx, cy int) CellKind {
	if !g.InBounds(cx, cy) {
		return CellVoid
	}
	return g.cells[cy*g.width+cx]
}

// Walkable reports whether the cell is walkable. Out of bounds is blocked.
func (g *WalkabilityGrid) Walkable(cx, cy int) bool {
	return g.At(cx, cy).Walkable()
}

// WalkableAt reports whether the world position lies in a walkable cell.
func (g *WalkabilityGrid) WalkableAt(p r2.Vec) bool {
	return g.Walkable(g.WorldToCell(p))
}

// WorldToCell converts world coordinates to cell coordinates.
func (g *WalkabilityGrid) WorldToCell(p r2.Vec) (cx, cy int) {
	cx = int(math.Floor(p.X / g.cellSize))
	cy = int(math.Floor(p.Y / g.cellSize))
	return
}

// CellCenter converts cell coordinates to the world position of the cell centre.
func (g *WalkabilityGrid) CellCenter(cx, cy int) r2.Vec {
	return r2.Vec{
		X: (float64(cx) + 0.5) * g.cellSize,
		Y: (float64(cy) + 0.5) * g.cellSize,
	}
}

// CellBounds returns the world box of a cell.
func (g *WalkabilityGrid) CellBounds(cx, cy int) AABB {
	x0 := float64(cx) * g.cellSize
	y0 := float64(cy) * g.cellSize
	return NewAABB(x0, y0, x0+g.cellSize, y0+g.cellSize)
}

// ClampCell moves a cell to the nearest in-bounds cell. clamped reports whether it moved.
func (g *WalkabilityGrid) ClampCell(cx, cy int) (x, y int, clamped bool) {
	x = min(max(cx, 0), g.width-1)
	y = min(max(cy, 0), g.height-1)
	return x, y, x != cx || y != cy
}

// Bounds returns the world box covered by the grid.
func (g *WalkabilityGrid) Bounds() AABB {
	return NewAABB(0, 0, float64(g.width)*g.cellSize, float64(g.height)*g.cellSize)
}

// Count returns how many cells have the given kind.
func (g *WalkabilityGrid) Count(kind CellKind) int {
	n := 0
	for _, k := range g.cells {
		if k == kind {
			n++
		}
	}
	return n
}
