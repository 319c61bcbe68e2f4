package systems

import (
	"math"
	"slices"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// TestVisibilityConvergesInOpenSpace verifies an unobstructed sweep keeps the
// base samples with uniform gaps and no refinement.
func TestVisibilityConvergesInOpenSpace(t *testing.T) {
	g := mustGrid(t, openRows(100, 100), 16)
	vis, _ := newTestEngine(t, g, nil, 256)

	poly := vis.ComputeVisibilityPolygon(r2.Vec{X: 800, Y: 800})

	if poly.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", poly.Len())
	}
	if poly.Refinements != 0 {
		t.Errorf("Refinements = %d, want 0", poly.Refinements)
	}
	if poly.Casts != 64 {
		t.Errorf("Casts = %d, want 64", poly.Casts)
	}

	want := 2 * math.Pi / 64
	for i := 1; i < len(poly.Angles); i++ {
		if gap := poly.Angles[i] - poly.Angles[i-1]; !approx(gap, want, 1e-9) {
			t.Errorf("gap %d = %v, want %v", i, gap, want)
		}
	}
	for i, v := range poly.Vertices {
		if d := r2.Norm(r2.Sub(v, poly.Origin)); !approx(d, 256, 1e-6) {
			t.Errorf("vertex %d at distance %v, want 256", i, d)
		}
		if poly.Hits[i].Blocking() {
			t.Errorf("vertex %d hit %v, want none", i, poly.Hits[i].Source)
		}
	}
}

// TestVisibilityRefinesCorners verifies a pillar triggers refinement and that
// every accepted pair is either continuous or closer than the epsilon.
func TestVisibilityRefinesCorners(t *testing.T) {
	rows := []string{
		"############",
		"#..........#",
		"#..........#",
		"#.....##...#",
		"#.....##...#",
		"#..........#",
		"#..........#",
		"############",
	}
	g := mustGrid(t, rows, 16)
	vis, _ := newTestEngine(t, g, nil, 400)
	params := vis.Params()

	poly := vis.ComputeVisibilityPolygon(r2.Vec{X: 40, Y: 56})

	if poly.Refinements == 0 {
		t.Fatal("expected corner refinement")
	}
	if poly.Len() <= params.BaseSamples {
		t.Errorf("Len() = %d, want more than %d", poly.Len(), params.BaseSamples)
	}
	if poly.Casts >= params.MaxSamples {
		t.Fatalf("sweep hit the sample cap (%d casts)", poly.Casts)
	}

	for i := 1; i < poly.Len(); i++ {
		gap := poly.Angles[i] - poly.Angles[i-1]
		if gap <= 0 {
			t.Fatalf("angles not ascending at %d: %v then %v", i, poly.Angles[i-1], poly.Angles[i])
		}
		if gap > params.AngleEpsilon && isCorner(poly.Hits[i-1], poly.Hits[i], params.CornerDistance) {
			t.Errorf("unresolved corner between %d and %d (gap %v)", i-1, i, gap)
		}
	}

	if !poly.Contains(poly.Origin) {
		t.Error("polygon does not contain its origin")
	}
	// Behind the pillar, seen from the west
	if poly.Contains(r2.Vec{X: 136, Y: 64}) {
		t.Error("polygon contains a point hidden behind the pillar")
	}
}

// TestVisibilityFadedEntities verifies non-occluding entities are reported
// once and occluding ones shape the polygon instead.
func TestVisibilityFadedEntities(t *testing.T) {
	g := mustGrid(t, openRows(20, 20), 16)
	es := newTestEntities(t, 2)
	glass, crate := es[0], es[1]
	table := attrTable{glass: {AttrOccludes: "false"}}
	vis, idx := newTestEngine(t, g, table.resolve, 200)

	// Glass to the east, crate to the west of the viewer
	if err := idx.InsertOrUpdate(glass, NewAABB(180, 140, 200, 180)); err != nil {
		t.Fatal(err)
	}
	if err := idx.InsertOrUpdate(crate, NewAABB(120, 140, 140, 180)); err != nil {
		t.Fatal(err)
	}

	poly := vis.ComputeVisibilityPolygon(r2.Vec{X: 160, Y: 160})

	if faded := poly.Faded(); !slices.Equal(faded, []ecs.Entity{glass}) {
		t.Errorf("Faded() = %v, want [%v]", faded, glass)
	}

	sawCrate := false
	for _, h := range poly.Hits {
		if h.Source == SourceEntity && h.Entity == crate {
			sawCrate = true
		}
		if h.Entity == glass && h.Source == SourceEntity {
			t.Error("glass stopped a vision ray")
		}
	}
	if !sawCrate {
		t.Error("no vertex landed on the crate")
	}
}

// TestVisibilityIsPure verifies two sweeps from the same origin agree.
func TestVisibilityIsPure(t *testing.T) {
	g := mustGrid(t, []string{
		"########",
		"#......#",
		"#..#...#",
		"#......#",
		"########",
	}, 16)
	vis, idx := newTestEngine(t, g, nil, 300)
	before := idx.Len()

	a := vis.ComputeVisibilityPolygon(r2.Vec{X: 24, Y: 24})
	b := vis.ComputeVisibilityPolygon(r2.Vec{X: 24, Y: 24})

	if !slices.Equal(a.Vertices, b.Vertices) {
		t.Error("sweeps from the same origin differ")
	}
	if idx.Len() != before {
		t.Error("sweep changed the index")
	}
}

// TestVisibilityAreaOfClosedRoom verifies the polygon of a closed room covers
// its floor once corners are refined.
func TestVisibilityAreaOfClosedRoom(t *testing.T) {
	g := mustGrid(t, []string{
		"######",
		"#....#",
		"#....#",
		"#....#",
		"######",
	}, 16)
	vis, _ := newTestEngine(t, g, nil, 300)

	poly := vis.ComputeVisibilityPolygon(r2.Vec{X: 40, Y: 40})
	want := 64.0 * 48.0
	if got := poly.Area(); math.Abs(got-want)/want > 0.01 {
		t.Errorf("Area = %v, want %v within 1%%", got, want)
	}
	if (VisibilityPolygon{}).Area() != 0 {
		t.Error("empty polygon has area")
	}
}
