package systems

import (
	"errors"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

type moveFixture struct {
	grid  *WalkabilityGrid
	index *SpatialIndex
	vis   *VisibilityEngine
	mc    *MovementController
	es    []ecs.Entity
}

func newMoveFixture(t *testing.T, rows []string, resolve AttrResolver) *moveFixture {
	t.Helper()
	g := mustGrid(t, rows, 16)
	vis, idx := newTestEngine(t, g, resolve, 320)
	return &moveFixture{
		grid:  g,
		index: idx,
		vis:   vis,
		mc:    NewMovementController(g, idx, vis, MovementParams{HitThreshold: 6}),
		es:    newTestEntities(t, 4),
	}
}

func (f *moveFixture) add(t *testing.T, i int, pos r2.Vec) MoverHandle {
	t.Helper()
	h, err := f.mc.AddMover(f.es[i], pos, r2.Vec{X: 4, Y: 4})
	if err != nil {
		t.Fatalf("AddMover: %v", err)
	}
	return h
}

// TestSlideAxisLocked verifies reflection followed by single-axis projection.
func TestSlideAxisLocked(t *testing.T) {
	tests := []struct {
		name    string
		d, n    r2.Vec
		want    r2.Vec
	}{
		{"floor normal up", r2.Vec{X: 1, Y: 1}, r2.Vec{Y: 1}, r2.Vec{X: 1}},
		{"floor normal down", r2.Vec{X: 1, Y: 1}, r2.Vec{Y: -1}, r2.Vec{X: 1}},
		{"side wall", r2.Vec{X: 1, Y: 1}, r2.Vec{X: -1}, r2.Vec{Y: 1}},
		{"head on", r2.Vec{X: 3}, r2.Vec{X: -1}, r2.Vec{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slideAxisLocked(tt.d, tt.n); got != tt.want {
				t.Errorf("slideAxisLocked(%v, %v) = %v, want %v", tt.d, tt.n, got, tt.want)
			}
		})
	}
}

// TestStepSlidesAlongWall moves diagonally into a wall below and expects the
// vertical part to be dropped.
func TestStepSlidesAlongWall(t *testing.T) {
	rows := openRows(10, 10)
	rows[6] = "##########"
	f := newMoveFixture(t, rows, nil)
	h := f.add(t, 0, r2.Vec{X: 88, Y: 93})

	res, err := f.mc.Step(h, r2.Vec{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !res.Slid || !res.Committed {
		t.Fatalf("Step = %+v, want committed slide", res)
	}
	if res.Hit.Normal != (r2.Vec{Y: -1}) {
		t.Errorf("hit normal = %v, want (0, -1)", res.Hit.Normal)
	}
	if res.Applied != (r2.Vec{X: 1}) {
		t.Errorf("Applied = %v, want (1, 0)", res.Applied)
	}
	if want := (r2.Vec{X: 89, Y: 93}); res.Position != want {
		t.Errorf("Position = %v, want %v", res.Position, want)
	}
}

// TestStepFreeMove verifies a move with nothing ahead is applied unchanged.
func TestStepFreeMove(t *testing.T) {
	f := newMoveFixture(t, openRows(10, 10), nil)
	h := f.add(t, 0, r2.Vec{X: 80, Y: 80})

	res, err := f.mc.Step(h, r2.Vec{X: 2, Y: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Slid || res.Applied != (r2.Vec{X: 2, Y: -1}) {
		t.Errorf("Step = %+v, want unchanged displacement", res)
	}
	m, _ := f.mc.Mover(h)
	if m.State != MoverMoving {
		t.Errorf("State = %v, want moving", m.State)
	}

	if _, err := f.mc.Step(h, r2.Vec{}); err != nil {
		t.Fatal(err)
	}
	if m.State != MoverIdle {
		t.Errorf("State after zero step = %v, want idle", m.State)
	}
}

// TestStepEscapesBlockedPosition verifies a mover inside a wall can still move out.
func TestStepEscapesBlockedPosition(t *testing.T) {
	f := newMoveFixture(t, openRows(10, 10, [2]int{5, 5}), nil)
	h := f.add(t, 0, r2.Vec{X: 88, Y: 88})

	res, err := f.mc.Step(h, r2.Vec{X: -1})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Committed || !res.Escaped {
		t.Fatalf("Step = %+v, want committed escape", res)
	}
	if res.Position != (r2.Vec{X: 87, Y: 88}) {
		t.Errorf("Position = %v, want (87, 88)", res.Position)
	}
}

// TestStepStuckAtConcaveCorner verifies the known axis-locked limitation: the
// slid candidate lands in the other wall and the move is refused.
func TestStepStuckAtConcaveCorner(t *testing.T) {
	f := newMoveFixture(t, openRows(10, 10, [2]int{5, 4}, [2]int{4, 5}, [2]int{5, 5}), nil)
	start := r2.Vec{X: 79, Y: 79}
	h := f.add(t, 0, start)

	res, err := f.mc.Step(h, r2.Vec{X: 2, Y: 2.5})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Stuck || res.Committed {
		t.Fatalf("Step = %+v, want stuck", res)
	}
	m, _ := f.mc.Mover(h)
	if m.Position != start {
		t.Errorf("Position = %v, want unchanged %v", m.Position, start)
	}
}

// TestStepBlockedByEntity verifies colliding entities stop movement and
// non-colliding ones do not.
func TestStepBlockedByEntity(t *testing.T) {
	tests := []struct {
		name     string
		collides string
		wantX    float64
	}{
		{"solid crate", "true", 40},
		{"ghost crate", "false", 43},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := attrTable{}
			f := newMoveFixture(t, openRows(10, 10), table.resolve)
			crate := f.es[1]
			table[crate] = map[string]string{AttrCollides: tt.collides}
			if err := f.index.InsertOrUpdate(crate, NewAABB(44, 30, 60, 50)); err != nil {
				t.Fatal(err)
			}
			h := f.add(t, 0, r2.Vec{X: 40, Y: 40})

			res, err := f.mc.Step(h, r2.Vec{X: 3})
			if err != nil {
				t.Fatal(err)
			}
			if res.Position.X != tt.wantX {
				t.Errorf("Position.X = %v, want %v", res.Position.X, tt.wantX)
			}
		})
	}
}

// TestStepUpdatesIndexDepthAndVisibility verifies a committed move writes
// through to the index, the depth key and the viewer polygon.
func TestStepUpdatesIndexDepthAndVisibility(t *testing.T) {
	f := newMoveFixture(t, openRows(10, 10), nil)
	h := f.add(t, 0, r2.Vec{X: 80, Y: 80})
	eye := r2.Vec{Y: -2}
	if err := f.mc.SetViewer(h, eye); err != nil {
		t.Fatal(err)
	}

	if _, err := f.mc.Step(h, r2.Vec{X: 0, Y: 3}); err != nil {
		t.Fatal(err)
	}
	m, _ := f.mc.Mover(h)
	want := r2.Vec{X: 80, Y: 83}

	box, ok := f.index.Bounds(m.Entity)
	if !ok || box != BoxAround(want, m.HalfExtents) {
		t.Errorf("index box = %v, want %v", box, BoxAround(want, m.HalfExtents))
	}
	if m.DepthKey != 87 {
		t.Errorf("DepthKey = %v, want 87", m.DepthKey)
	}
	if m.Visibility.Origin != r2.Add(want, eye) {
		t.Errorf("visibility origin = %v, want %v", m.Visibility.Origin, r2.Add(want, eye))
	}
	if m.Visibility.Len() == 0 {
		t.Error("visibility polygon is empty")
	}
}

// TestStepUnknownMover verifies stale and invalid handles fail cleanly.
func TestStepUnknownMover(t *testing.T) {
	f := newMoveFixture(t, openRows(4, 4), nil)
	h := f.add(t, 0, r2.Vec{X: 24, Y: 24})

	if err := f.mc.RemoveMover(h); err != nil {
		t.Fatal(err)
	}
	if f.index.Contains(f.es[0]) {
		t.Error("removed mover still in the index")
	}

	for _, handle := range []MoverHandle{h, -1, 99} {
		if _, err := f.mc.Step(handle, r2.Vec{X: 1}); !errors.Is(err, ErrUnknownMover) {
			t.Errorf("Step(%d) error = %v, want ErrUnknownMover", handle, err)
		}
	}

	// Freed handles are reused
	h2 := f.add(t, 1, r2.Vec{X: 40, Y: 40})
	if h2 != h || f.mc.Len() != 1 {
		t.Errorf("reused handle = %d (len %d), want %d (len 1)", h2, f.mc.Len(), h)
	}
}
