package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

// TestGridRaycastHitsBlockedCell casts east into the only wall of a 10x10 grid.
func TestGridRaycastHitsBlockedCell(t *testing.T) {
	for _, cs := range []float64{1, 16} {
		g := mustGrid(t, openRows(10, 10, [2]int{5, 5}), cs)
		origin := r2.Vec{X: 4.5 * cs, Y: 5.5 * cs}

		hit, ok := g.Raycast(NewRay(origin, r2.Vec{X: 1, Y: 0}), -1)
		if !ok {
			t.Fatalf("cell size %v: expected a hit", cs)
		}
		if hit.Normal != (r2.Vec{X: -1, Y: 0}) {
			t.Errorf("cell size %v: Normal = %v, want (-1, 0)", cs, hit.Normal)
		}
		if !approx(hit.Distance, 0.5*cs, 1e-6*cs) {
			t.Errorf("cell size %v: Distance = %v, want %v", cs, hit.Distance, 0.5*cs)
		}
		if hit.Source != SourceGrid {
			t.Errorf("cell size %v: Source = %v, want grid", cs, hit.Source)
		}
	}
}

// TestGridRaycastLeavesStartingCell verifies a ray starting in a wall reports
// the next wall it enters, here the grid edge.
func TestGridRaycastLeavesStartingCell(t *testing.T) {
	g := mustGrid(t, openRows(10, 10, [2]int{5, 5}), 1)

	hit, ok := g.Raycast(NewRay(r2.Vec{X: 5.5, Y: 5.5}, r2.Vec{X: 1, Y: 0}), -1)
	if !ok {
		t.Fatal("expected the grid edge to stop the ray")
	}
	if !approx(hit.Distance, 4.5, 1e-6) {
		t.Errorf("Distance = %v, want 4.5", hit.Distance)
	}
	if hit.Normal != (r2.Vec{X: -1, Y: 0}) {
		t.Errorf("Normal = %v, want (-1, 0)", hit.Normal)
	}
}

// TestGridRaycastRespectsRange verifies no hit is reported past maxDist.
func TestGridRaycastRespectsRange(t *testing.T) {
	g := mustGrid(t, openRows(10, 10, [2]int{8, 5}), 1)
	if _, ok := g.Raycast(NewRay(r2.Vec{X: 1.5, Y: 5.5}, r2.Vec{X: 1}), 3); ok {
		t.Error("hit reported beyond maxDist")
	}
}

// TestNewRayNudgesDegenerateComponents verifies zero components become epsilon.
func TestNewRayNudgesDegenerateComponents(t *testing.T) {
	tests := []struct {
		name         string
		dir          r2.Vec
		wantPositive [2]bool
	}{
		{"zero vector", r2.Vec{}, [2]bool{true, true}},
		{"east", r2.Vec{X: 1}, [2]bool{true, true}},
		{"tiny negative y", r2.Vec{X: -3, Y: -1e-6}, [2]bool{false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRay(r2.Vec{}, tt.dir)
			if r.Dir.X == 0 || r.Dir.Y == 0 {
				t.Fatalf("Dir = %v has a zero component", r.Dir)
			}
			if (r.Dir.X > 0) != tt.wantPositive[0] || (r.Dir.Y > 0) != tt.wantPositive[1] {
				t.Errorf("Dir = %v, want signs %v", r.Dir, tt.wantPositive)
			}
			if !approx(r2.Norm(r.Dir), 1, 1e-12) {
				t.Errorf("|Dir| = %v, want 1", r2.Norm(r.Dir))
			}
		})
	}
}

func newTestEngine(t *testing.T, g *WalkabilityGrid, resolve AttrResolver, maxDist float64) (*VisibilityEngine, *SpatialIndex) {
	t.Helper()
	idx := NewSpatialIndex(resolve)
	p := DefaultVisibilityParams()
	p.MaxDistance = maxDist
	return NewVisibilityEngine(g, idx, p), idx
}

// TestCastRayGridWinsTie verifies a grid hit beats an entity at the same distance.
func TestCastRayGridWinsTie(t *testing.T) {
	g := mustGrid(t, openRows(10, 10, [2]int{5, 5}), 1)
	vis, idx := newTestEngine(t, g, nil, 100)
	es := newTestEntities(t, 1)
	if err := idx.InsertOrUpdate(es[0], NewAABB(5, 5, 6, 6)); err != nil {
		t.Fatal(err)
	}

	rc := vis.CastRay(r2.Vec{X: 4.5, Y: 5.5}, r2.Vec{X: 1}, BlocksVision)
	if rc.Hit.Source != SourceGrid {
		t.Errorf("Source = %v, want grid", rc.Hit.Source)
	}
	if !approx(rc.Hit.Distance, 0.5, 1e-6) {
		t.Errorf("Distance = %v, want 0.5", rc.Hit.Distance)
	}
}

// TestCastRayNearestEntity verifies an entity in front of a wall is the hit.
func TestCastRayNearestEntity(t *testing.T) {
	g := mustGrid(t, openRows(10, 10, [2]int{8, 5}), 1)
	vis, idx := newTestEngine(t, g, nil, 100)
	es := newTestEntities(t, 1)
	crate := es[0]
	if err := idx.InsertOrUpdate(crate, NewAABB(3, 5, 4, 6)); err != nil {
		t.Fatal(err)
	}

	rc := vis.CastRay(r2.Vec{X: 1.5, Y: 5.5}, r2.Vec{X: 1}, BlocksMovement)
	if rc.Hit.Source != SourceEntity || rc.Hit.Entity != crate {
		t.Fatalf("Hit = %+v, want crate", rc.Hit)
	}
	if !approx(rc.Hit.Distance, 1.5, 1e-6) {
		t.Errorf("Distance = %v, want 1.5", rc.Hit.Distance)
	}
	if rc.Hit.Normal != (r2.Vec{X: -1}) {
		t.Errorf("Normal = %v, want (-1, 0)", rc.Hit.Normal)
	}

	// The same ray ignores the crate when told to
	rc = vis.CastRay(r2.Vec{X: 1.5, Y: 5.5}, r2.Vec{X: 1}, BlocksMovement, crate)
	if rc.Hit.Source != SourceGrid {
		t.Errorf("excluded crate: Source = %v, want grid", rc.Hit.Source)
	}
}

// TestCastRayCollectsBlockedHits verifies entities that do not block the
// attribute are collected but do not stop the ray.
func TestCastRayCollectsBlockedHits(t *testing.T) {
	g := mustGrid(t, openRows(10, 10, [2]int{8, 5}), 1)
	es := newTestEntities(t, 2)
	glass, far := es[0], es[1]
	table := attrTable{glass: {AttrOccludes: "false"}, far: {AttrOccludes: "false"}}
	vis, idx := newTestEngine(t, g, table.resolve, 100)

	if err := idx.InsertOrUpdate(glass, NewAABB(3, 5, 4, 6)); err != nil {
		t.Fatal(err)
	}
	// Behind the wall, so never collected
	if err := idx.InsertOrUpdate(far, NewAABB(9, 5, 10, 6)); err != nil {
		t.Fatal(err)
	}

	rc := vis.CastRay(r2.Vec{X: 1.5, Y: 5.5}, r2.Vec{X: 1}, BlocksVision)
	if rc.Hit.Source != SourceGrid {
		t.Errorf("Source = %v, want grid", rc.Hit.Source)
	}
	if len(rc.BlockedHits) != 1 || rc.BlockedHits[0].Entity != glass {
		t.Errorf("BlockedHits = %+v, want only the glass", rc.BlockedHits)
	}

	// Glass still blocks movement
	rc = vis.CastRay(r2.Vec{X: 1.5, Y: 5.5}, r2.Vec{X: 1}, BlocksMovement)
	if rc.Hit.Entity != glass || len(rc.BlockedHits) != 0 {
		t.Errorf("movement ray Hit = %+v BlockedHits = %d, want glass and none", rc.Hit, len(rc.BlockedHits))
	}
}

// TestCastRayRangeLimit verifies an open ray ends at MaxDistance with no source.
func TestCastRayRangeLimit(t *testing.T) {
	g := mustGrid(t, openRows(100, 100), 16)
	vis, _ := newTestEngine(t, g, nil, 10)

	origin := r2.Vec{X: 800, Y: 800}
	rc := vis.CastRay(origin, r2.Vec{X: 0, Y: -1}, BlocksVision)
	if rc.Hit.Blocking() {
		t.Fatalf("Hit = %+v, want no hit", rc.Hit)
	}
	if rc.Hit.Distance != 10 {
		t.Errorf("Distance = %v, want 10", rc.Hit.Distance)
	}
	if rc.Hit.Normal != (r2.Vec{}) {
		t.Errorf("Normal = %v, want zero", rc.Hit.Normal)
	}
	if !approxVec(rc.Hit.Point, r2.Vec{X: 800, Y: 790}, 1e-2) {
		t.Errorf("Point = %v, want (800, 790)", rc.Hit.Point)
	}
}

// TestCastRayIgnoresBoxAroundOrigin verifies a ray leaving a box is not stopped by it.
func TestCastRayIgnoresBoxAroundOrigin(t *testing.T) {
	g := mustGrid(t, openRows(10, 10), 1)
	vis, idx := newTestEngine(t, g, nil, 100)
	es := newTestEntities(t, 1)
	if err := idx.InsertOrUpdate(es[0], NewAABB(4, 4, 7, 7)); err != nil {
		t.Fatal(err)
	}

	rc := vis.CastRay(r2.Vec{X: 5.5, Y: 5.5}, r2.Vec{X: 1}, BlocksMovement)
	if rc.Hit.Source != SourceGrid {
		t.Errorf("Source = %v, want grid", rc.Hit.Source)
	}
	if !approx(rc.Hit.Distance, 4.5, 1e-6) {
		t.Errorf("Distance = %v, want 4.5", rc.Hit.Distance)
	}
}

// TestLineOfSight verifies segment visibility across the grid.
func TestLineOfSight(t *testing.T) {
	g := mustGrid(t, openRows(10, 10, [2]int{5, 3}, [2]int{5, 4}, [2]int{5, 5}), 1)

	tests := []struct {
		name string
		a, b r2.Vec
		want bool
	}{
		{"clear row", r2.Vec{X: 0.5, Y: 1.5}, r2.Vec{X: 9.5, Y: 1.5}, true},
		{"through wall", r2.Vec{X: 0.5, Y: 4.5}, r2.Vec{X: 9.5, Y: 4.5}, false},
		{"same point", r2.Vec{X: 2.5, Y: 2.5}, r2.Vec{X: 2.5, Y: 2.5}, true},
		{"from wall", r2.Vec{X: 5.5, Y: 4.5}, r2.Vec{X: 7.5, Y: 4.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.LineOfSight(tt.a, tt.b); got != tt.want {
				t.Errorf("LineOfSight(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestSlabNormals verifies the entry normal faces the ray.
func TestSlabNormals(t *testing.T) {
	box := NewAABB(-1, -1, 1, 1)
	tests := []struct {
		origin, dir, want r2.Vec
	}{
		{r2.Vec{X: -5}, r2.Vec{X: 1}, r2.Vec{X: -1}},
		{r2.Vec{X: 5}, r2.Vec{X: -1}, r2.Vec{X: 1}},
		{r2.Vec{Y: -5}, r2.Vec{Y: 1}, r2.Vec{Y: -1}},
		{r2.Vec{Y: 5}, r2.Vec{Y: -1}, r2.Vec{Y: 1}},
	}
	for _, tt := range tests {
		hit, ok := NewRay(tt.origin, tt.dir).intersect(box)
		if !ok {
			t.Errorf("ray from %v along %v missed", tt.origin, tt.dir)
			continue
		}
		if hit.normal != tt.want {
			t.Errorf("ray from %v along %v: normal = %v, want %v", tt.origin, tt.dir, hit.normal, tt.want)
		}
		if !approx(hit.entry, 4, 1e-6) {
			t.Errorf("ray from %v along %v: entry = %v, want 4", tt.origin, tt.dir, hit.entry)
		}
	}

	if _, ok := NewRay(r2.Vec{X: 5}, r2.Vec{X: 1}).intersect(box); ok {
		t.Error("box behind the origin reported as hit")
	}
}
