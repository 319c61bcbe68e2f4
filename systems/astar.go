package systems

import (
	"container/heap"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// PathOptions selects the search behaviour for one FindPath call.
type PathOptions struct {
	AllowDiagonals    bool
	FallbackToClosest bool // Path to the closest expanded cell when the goal is unreachable
}

// DefaultPathOptions enables diagonals and the closest-cell fallback.
func DefaultPathOptions() PathOptions {
	return PathOptions{AllowDiagonals: true, FallbackToClosest: true}
}

// PlannerParams hold the per-planner search limits.
type PlannerParams struct {
	MaxExpansions int  // Node budget per search (0 = unlimited)
	Smooth        bool // Drop waypoints with line of sight past them
}

// SearchStats describes the most recent search.
type SearchStats struct {
	Expanded        int
	Reachable       bool
	Fallback        bool
	Clamped         bool
	BudgetExhausted bool
}

// PathPlanner runs A* over a WalkabilityGrid. Per-cell scratch arrays are
// reused between searches and invalidated by a generation stamp.
type PathPlanner struct {
	grid   *WalkabilityGrid
	params PlannerParams

	openHeap *nodeHeap
	gScore   []float64
	cameFrom []int32
	seen     []uint32 // == gen when gScore/cameFrom are valid
	closed   []uint32 // == gen when the cell was expanded
	gen      uint32
	seq      uint64

	last SearchStats
}

// astarNode is a node in the A* search.
type astarNode struct {
	cell  int32
	g     float64
	h     float64
	f     float64 // f = g + h (priority)
	seq   uint64  // Discovery order
	index int     // Heap index
}

// nodeHeap orders the open set by f, then h, then discovery order.
type nodeHeap []*astarNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewPathPlanner creates a planner for grid.
func NewPathPlanner(grid *WalkabilityGrid, params PlannerParams) *PathPlanner {
	cells := grid.Width() * grid.Height()
	return &PathPlanner{
		grid:     grid,
		params:   params,
		openHeap: &nodeHeap{},
		gScore:   make([]float64, cells),
		cameFrom: make([]int32, cells),
		seen:     make([]uint32, cells),
		closed:   make([]uint32, cells),
	}
}

// LastSearch returns statistics for the most recent FindPath call.
func (a *PathPlanner) LastSearch() SearchStats { return a.last }

// neighbour offsets: cardinals first, then diagonals.
var neighbourOffsets = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// FindPath returns world waypoints from start to end, excluding the start
// cell. Endpoints outside the grid are clamped and logged. An empty result
// means start and end share a cell, or no path exists and the fallback is
// off or cannot get closer.
func (a *PathPlanner) FindPath(start, end r2.Vec, opts PathOptions) []r2.Vec {
	a.last = SearchStats{}
	g := a.grid

	sx, sy := g.WorldToCell(start)
	ex, ey := g.WorldToCell(end)
	var clampedStart, clampedEnd bool
	sx, sy, clampedStart = g.ClampCell(sx, sy)
	ex, ey, clampedEnd = g.ClampCell(ex, ey)
	if clampedStart || clampedEnd {
		a.last.Clamped = true
		slog.Warn("path endpoint clamped",
			"start", start,
			"end", end,
			"error", fmt.Errorf("clamp to %dx%d grid: %w", g.Width(), g.Height(), ErrOutOfBoundsQuery),
		)
	}

	if sx == ex && sy == ey {
		a.last.Reachable = true
		return nil
	}

	a.reset()
	w := g.Width()
	startID := int32(sy*w + sx)
	goalID := int32(ey*w + ex)

	startH := a.heuristic(sx, sy, ex, ey, opts.AllowDiagonals)
	a.seen[startID] = a.gen
	a.gScore[startID] = 0
	a.cameFrom[startID] = -1
	a.push(startID, 0, startH)

	best, bestH, bestG := startID, startH, 0.0
	limit := a.params.MaxExpansions

	for a.openHeap.Len() > 0 {
		if limit > 0 && a.last.Expanded >= limit {
			a.last.BudgetExhausted = true
			break
		}

		current := heap.Pop(a.openHeap).(*astarNode)
		if a.closed[current.cell] == a.gen || current.g > a.gScore[current.cell] {
			continue // stale entry
		}
		a.closed[current.cell] = a.gen
		a.last.Expanded++

		if current.cell == goalID {
			a.last.Reachable = true
			path := a.reconstructPath(startID, goalID)
			if !clampedEnd {
				path[len(path)-1] = end
			}
			return path
		}

		if current.h < bestH || (current.h == bestH && current.g < bestG) {
			best, bestH, bestG = current.cell, current.h, current.g
		}

		cx, cy := int(current.cell)%w, int(current.cell)/w
		for i, off := range neighbourOffsets {
			diagonal := i >= 4
			if diagonal && !opts.AllowDiagonals {
				break
			}
			nx, ny := cx+off[0], cy+off[1]
			if !g.Walkable(nx, ny) {
				continue
			}
			// No corner cutting: both orthogonal neighbours must be open
			if diagonal && (!g.Walkable(nx, cy) || !g.Walkable(cx, ny)) {
				continue
			}

			nid := int32(ny*w + nx)
			if a.closed[nid] == a.gen {
				continue
			}

			moveCost := 1.0
			if diagonal {
				moveCost = math.Sqrt2
			}
			tentativeG := current.g + moveCost
			if a.seen[nid] == a.gen && tentativeG >= a.gScore[nid] {
				continue
			}

			a.seen[nid] = a.gen
			a.gScore[nid] = tentativeG
			a.cameFrom[nid] = current.cell
			a.push(nid, tentativeG, a.heuristic(nx, ny, ex, ey, opts.AllowDiagonals))
		}
	}

	slog.Debug("path search failed",
		"start", start,
		"end", end,
		"expanded", a.last.Expanded,
		"budget_exhausted", a.last.BudgetExhausted,
		"error", ErrUnreachableDestination,
	)
	if !opts.FallbackToClosest || best == startID {
		return nil
	}
	a.last.Fallback = true
	return a.reconstructPath(startID, best)
}

func (a *PathPlanner) push(cell int32, g, h float64) {
	heap.Push(a.openHeap, &astarNode{cell: cell, g: g, h: h, f: g + h, seq: a.seq})
	a.seq++
}

// reset starts a new search generation.
func (a *PathPlanner) reset() {
	*a.openHeap = (*a.openHeap)[:0]
	a.seq = 0
	a.gen++
	if a.gen == 0 {
		// Stamp wrapped: old stamps could alias the new generation
		clear(a.seen)
		clear(a.closed)
		a.gen = 1
	}
}

// heuristic is octile distance with diagonals, Euclidean without.
func (a *PathPlanner) heuristic(x1, y1, x2, y2 int, diagonals bool) float64 {
	dx := math.Abs(float64(x2 - x1))
	dy := math.Abs(float64(y2 - y1))
	if diagonals {
		return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
	}
	return math.Hypot(dx, dy)
}

// reconstructPath walks cameFrom back from goal and returns cell centres
// in travel order, start cell excluded.
func (a *PathPlanner) reconstructPath(startID, goalID int32) []r2.Vec {
	w := a.grid.Width()
	var ids []int32
	for current := goalID; current != startID && current >= 0; current = a.cameFrom[current] {
		ids = append(ids, current)
	}

	path := make([]r2.Vec, len(ids))
	for i := range ids {
		id := int(ids[len(ids)-1-i])
		path[i] = a.grid.CellCenter(id%w, id/w)
	}

	if a.params.Smooth {
		sx, sy := int(startID)%w, int(startID)/w
		path = a.simplifyPath(a.grid.CellCenter(sx, sy), path)
	}
	return path
}

// simplifyPath keeps only the waypoints needed to stay in line of sight,
// walking from start towards the furthest visible waypoint each time.
func (a *PathPlanner) simplifyPath(start r2.Vec, path []r2.Vec) []r2.Vec {
	if len(path) <= 1 {
		return path
	}

	simplified := make([]r2.Vec, 0, len(path))
	from := start
	i := 0
	for i < len(path) {
		furthest := i
		for j := len(path) - 1; j > i; j-- {
			if a.grid.LineOfSight(from, path[j]) {
				furthest = j
				break
			}
		}
		simplified = append(simplified, path[furthest])
		from = path[furthest]
		i = furthest + 1
	}
	return simplified
}
