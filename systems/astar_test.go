package systems

import (
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func cellOf(g *WalkabilityGrid, p r2.Vec) [2]int {
	x, y := g.WorldToCell(p)
	return [2]int{x, y}
}

func chebyshev(a, b [2]int) int {
	dx, dy := a[0]-b[0], a[1]-b[1]
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

// checkConnected verifies every waypoint is walkable and one step from the previous.
func checkConnected(t *testing.T, g *WalkabilityGrid, start r2.Vec, path []r2.Vec) {
	t.Helper()
	prev := cellOf(g, start)
	for i, p := range path {
		c := cellOf(g, p)
		if !g.Walkable(c[0], c[1]) {
			t.Errorf("waypoint %d at cell %v is not walkable", i, c)
		}
		if d := chebyshev(prev, c); d != 1 {
			t.Errorf("waypoint %d at cell %v is %d cells from %v", i, c, d, prev)
		}
		prev = c
	}
}

// TestAStarSimplePath verifies A* finds a straight-line path ending at the target.
func TestAStarSimplePath(t *testing.T) {
	g := mustGrid(t, openRows(10, 10), 16)
	planner := NewPathPlanner(g, PlannerParams{})

	start := r2.Vec{X: 24, Y: 24}
	end := r2.Vec{X: 140, Y: 20}
	path := planner.FindPath(start, end, DefaultPathOptions())

	if len(path) != 7 {
		t.Fatalf("len(path) = %d, want 7", len(path))
	}
	if path[len(path)-1] != end {
		t.Errorf("last waypoint = %v, want %v", path[len(path)-1], end)
	}
	checkConnected(t, g, start, path)

	stats := planner.LastSearch()
	if !stats.Reachable || stats.Fallback || stats.Clamped {
		t.Errorf("LastSearch() = %+v, want reachable only", stats)
	}
}

// TestAStarAroundObstacle verifies A* navigates around a wall through its gap.
func TestAStarAroundObstacle(t *testing.T) {
	rows := []string{
		"..........",
		"....#.....",
		"....#.....",
		"....#.....",
		"....#.....",
		"....#.....",
		"..........",
	}
	g := mustGrid(t, rows, 16)
	planner := NewPathPlanner(g, PlannerParams{})

	start := g.CellCenter(1, 3)
	end := g.CellCenter(8, 3)
	path := planner.FindPath(start, end, DefaultPathOptions())
	if len(path) == 0 {
		t.Fatal("expected path, got none")
	}
	checkConnected(t, g, start, path)
	if got := cellOf(g, path[len(path)-1]); got != [2]int{8, 3} {
		t.Errorf("path ends at %v, want (8, 3)", got)
	}
}

// TestAStarNoCornerCutting verifies diagonal moves between two walls are refused.
func TestAStarNoCornerCutting(t *testing.T) {
	g := mustGrid(t, []string{
		".#.",
		"#..",
		"...",
	}, 16)
	planner := NewPathPlanner(g, PlannerParams{})

	path := planner.FindPath(g.CellCenter(0, 0), g.CellCenter(1, 1), DefaultPathOptions())
	if len(path) != 0 {
		t.Errorf("path = %v, want none", path)
	}
	if stats := planner.LastSearch(); stats.Reachable {
		t.Error("corner-cutting goal reported reachable")
	}
}

// TestAStarFallbackToClosest verifies an enclosed goal yields a path to the
// closest reachable cell.
func TestAStarFallbackToClosest(t *testing.T) {
	g := mustGrid(t, openRows(10, 10, [2]int{8, 8}, [2]int{8, 9}, [2]int{9, 8}), 16)
	planner := NewPathPlanner(g, PlannerParams{})

	start := g.CellCenter(0, 0)
	path := planner.FindPath(start, g.CellCenter(9, 9), DefaultPathOptions())
	if len(path) == 0 {
		t.Fatal("expected fallback path, got none")
	}
	checkConnected(t, g, start, path)

	last := cellOf(g, path[len(path)-1])
	if d := chebyshev(last, [2]int{9, 9}); d > 2 {
		t.Errorf("fallback ends at %v, %d cells from the goal", last, d)
	}
	stats := planner.LastSearch()
	if stats.Reachable || !stats.Fallback {
		t.Errorf("LastSearch() = %+v, want fallback", stats)
	}

	opts := DefaultPathOptions()
	opts.FallbackToClosest = false
	if path := planner.FindPath(start, g.CellCenter(9, 9), opts); len(path) != 0 {
		t.Errorf("without fallback path = %v, want none", path)
	}
}

// TestAStarDeterministic verifies repeated searches return identical paths.
func TestAStarDeterministic(t *testing.T) {
	g := mustGrid(t, openRows(20, 20, [2]int{10, 5}, [2]int{10, 6}, [2]int{10, 7}), 16)
	a := NewPathPlanner(g, PlannerParams{})
	b := NewPathPlanner(g, PlannerParams{})

	start, end := g.CellCenter(2, 6), g.CellCenter(17, 6)
	first := a.FindPath(start, end, DefaultPathOptions())
	for i := 0; i < 5; i++ {
		if got := a.FindPath(start, end, DefaultPathOptions()); !slices.Equal(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
	if got := b.FindPath(start, end, DefaultPathOptions()); !slices.Equal(got, first) {
		t.Errorf("second planner differs: %v vs %v", got, first)
	}
}

// TestAStarClampsOutOfBounds verifies endpoints outside the grid are clamped.
func TestAStarClampsOutOfBounds(t *testing.T) {
	g := mustGrid(t, openRows(10, 10), 16)
	planner := NewPathPlanner(g, PlannerParams{})

	path := planner.FindPath(g.CellCenter(5, 5), r2.Vec{X: -100, Y: -100}, DefaultPathOptions())
	if len(path) == 0 {
		t.Fatal("expected path to the clamped corner")
	}
	if got := path[len(path)-1]; got != g.CellCenter(0, 0) {
		t.Errorf("last waypoint = %v, want %v", got, g.CellCenter(0, 0))
	}
	if !planner.LastSearch().Clamped {
		t.Error("LastSearch().Clamped = false, want true")
	}
}

// TestAStarSameCell verifies a start and end in one cell need no waypoints.
func TestAStarSameCell(t *testing.T) {
	g := mustGrid(t, openRows(4, 4), 16)
	planner := NewPathPlanner(g, PlannerParams{})

	if path := planner.FindPath(r2.Vec{X: 17, Y: 17}, r2.Vec{X: 30, Y: 30}, DefaultPathOptions()); len(path) != 0 {
		t.Errorf("path = %v, want none", path)
	}
	if !planner.LastSearch().Reachable {
		t.Error("same-cell search not reachable")
	}
}

// TestAStarCardinalOnly verifies diagonals are never taken when disabled.
func TestAStarCardinalOnly(t *testing.T) {
	g := mustGrid(t, openRows(8, 8), 16)
	planner := NewPathPlanner(g, PlannerParams{})

	start := g.CellCenter(0, 0)
	path := planner.FindPath(start, g.CellCenter(5, 4), PathOptions{FallbackToClosest: true})
	if len(path) != 9 {
		t.Fatalf("len(path) = %d, want 9", len(path))
	}
	prev := cellOf(g, start)
	for _, p := range path {
		c := cellOf(g, p)
		if c[0] != prev[0] && c[1] != prev[1] {
			t.Errorf("diagonal step from %v to %v", prev, c)
		}
		prev = c
	}
}

// TestAStarBudget verifies an exhausted budget falls back to the closest cell.
func TestAStarBudget(t *testing.T) {
	g := mustGrid(t, openRows(40, 40), 16)
	planner := NewPathPlanner(g, PlannerParams{MaxExpansions: 5})

	path := planner.FindPath(g.CellCenter(0, 0), g.CellCenter(39, 39), DefaultPathOptions())
	stats := planner.LastSearch()
	if !stats.BudgetExhausted {
		t.Fatalf("LastSearch() = %+v, want budget exhausted", stats)
	}
	if stats.Expanded != 5 {
		t.Errorf("Expanded = %d, want 5", stats.Expanded)
	}
	if len(path) == 0 || !stats.Fallback {
		t.Errorf("expected a fallback path, got %v", path)
	}
}

// TestAStarSmoothing verifies waypoints with line of sight past them are dropped.
func TestAStarSmoothing(t *testing.T) {
	g := mustGrid(t, openRows(10, 10), 16)
	planner := NewPathPlanner(g, PlannerParams{Smooth: true})

	end := g.CellCenter(9, 2)
	path := planner.FindPath(g.CellCenter(0, 2), end, DefaultPathOptions())
	if len(path) != 1 || path[0] != end {
		t.Errorf("path = %v, want [%v]", path, end)
	}
}
