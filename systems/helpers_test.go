package systems

import (
	"math"
	"strings"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// testTag gives test entities a component so the world can create them.
type testTag struct {
	ID int
}

// newTestEntities creates n live entities in a fresh world.
func newTestEntities(t *testing.T, n int) []ecs.Entity {
	t.Helper()
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[testTag](world)
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = mapper.NewEntity(&testTag{ID: i})
	}
	return out
}

// mustGrid builds a grid from rows or fails the test.
func mustGrid(t *testing.T, rows []string, cellSize float64) *WalkabilityGrid {
	t.Helper()
	g, err := GridFromRows(rows, cellSize)
	if err != nil {
		t.Fatalf("GridFromRows: %v", err)
	}
	return g
}

// openRows returns w x h floor rows with the listed cells set to wall.
func openRows(w, h int, walls ...[2]int) []string {
	rows := make([][]byte, h)
	for y := range rows {
		rows[y] = []byte(strings.Repeat(".", w))
	}
	for _, c := range walls {
		rows[c[1]][c[0]] = '#'
	}
	out := make([]string, h)
	for y := range rows {
		out[y] = string(rows[y])
	}
	return out
}

// attrTable is a resolver backed by a per-entity attribute map.
type attrTable map[ecs.Entity]map[string]string

func (a attrTable) resolve(e ecs.Entity, name string) (string, bool) {
	v, ok := a[e][name]
	return v, ok
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func approxVec(a, b r2.Vec, tol float64) bool {
	return approx(a.X, b.X, tol) && approx(a.Y, b.Y, tol)
}
