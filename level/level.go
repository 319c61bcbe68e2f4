// Package level loads level files: an ASCII cell layout plus the entities
// placed on it.
package level

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/sightline/systems"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidLevel is wrapped by every validation failure.
var ErrInvalidLevel = errors.New("invalid level")

// DefaultCellSize is used when a level omits cell_size.
const DefaultCellSize = 16

// Kind is the role of a level entity.
type Kind string

const (
	KindPlayer Kind = "player"
	KindNPC    Kind = "npc"
	KindProp   Kind = "prop"
)

// Point is a world position in level files.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Vec converts the point to a vector.
func (p Point) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Entity is one placed entity. X and Y are the box centre in world units.
type Entity struct {
	Name       string            `yaml:"name"`
	Kind       Kind              `yaml:"kind"`
	X          float64           `yaml:"x"`
	Y          float64           `yaml:"y"`
	Width      float64           `yaml:"width"`
	Height     float64           `yaml:"height"`
	Speed      float64           `yaml:"speed"`  // 0 = movement.default_speed
	Viewer     bool              `yaml:"viewer"` // Track a visibility polygon
	Bake       bool              `yaml:"bake"`   // Props only: stamp into the grid instead of spawning
	Attributes map[string]string `yaml:"attributes"`
	Patrol     []Point           `yaml:"patrol"` // NPC waypoints, visited in a loop
}

// Position returns the entity centre.
func (e Entity) Position() r2.Vec { return r2.Vec{X: e.X, Y: e.Y} }

// HalfExtents returns half the entity size.
func (e Entity) HalfExtents() r2.Vec { return r2.Vec{X: e.Width / 2, Y: e.Height / 2} }

// Bounds returns the entity's world box.
func (e Entity) Bounds() systems.AABB {
	return systems.BoxAround(e.Position(), e.HalfExtents())
}

// File is the on-disk level format.
type File struct {
	Name     string   `yaml:"name"`
	CellSize float64  `yaml:"cell_size"`
	Rows     []string `yaml:"rows"`
	Entities []Entity `yaml:"entities"`
}

// Level is a built level ready for the engine.
type Level struct {
	Name     string
	Grid     *systems.WalkabilityGrid
	Entities []Entity // Everything that spawns into the world, in file order
	Baked    []Entity // Props stamped into the grid as CellObject
	Spawns   []r2.Vec // Spawn marker centres, row-major
}

// Player returns the first player entity.
func (l *Level) Player() (Entity, bool) {
	for _, e := range l.Entities {
		if e.Kind == KindPlayer {
			return e, true
		}
	}
	return Entity{}, false
}

// Load reads and builds the level at path. An empty path loads the embedded default.
func Load(path string) (*Level, error) {
	if path == "" {
		return Parse(defaultYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level file: %w", err)
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lvl, nil
}

// Default builds the embedded default level.
func Default() *Level {
	lvl, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded level: %v", err))
	}
	return lvl
}

// Parse decodes and builds a level. Unknown keys are rejected.
func Parse(data []byte) (*Level, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing level: %w", err)
	}
	return Build(f)
}

// Build validates f, bakes static props into the grid and places players
// without a position on spawn markers.
func Build(f File) (*Level, error) {
	if f.CellSize == 0 {
		f.CellSize = DefaultCellSize
	}
	if len(f.Rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidLevel)
	}

	base, err := systems.GridFromRows(f.Rows, f.CellSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	lvl := &Level{Name: f.Name}
	for y := 0; y < base.Height(); y++ {
		for x := 0; x < base.Width(); x++ {
			if base.At(x, y) == systems.CellSpawn {
				lvl.Spawns = append(lvl.Spawns, base.CellCenter(x, y))
			}
		}
	}

	seen := make(map[string]bool, len(f.Entities))
	nextSpawn := 0
	for i, e := range f.Entities {
		if err := validateEntity(e, seen); err != nil {
			return nil, fmt.Errorf("%w: entity %d: %v", ErrInvalidLevel, i, err)
		}
		seen[e.Name] = true

		if e.Kind == KindPlayer && e.X == 0 && e.Y == 0 {
			if nextSpawn >= len(lvl.Spawns) {
				return nil, fmt.Errorf("%w: entity %q has no position and no spawn marker is left", ErrInvalidLevel, e.Name)
			}
			e.X, e.Y = lvl.Spawns[nextSpawn].X, lvl.Spawns[nextSpawn].Y
			nextSpawn++
		}
		if !base.Bounds().ContainsPoint(e.Position()) {
			return nil, fmt.Errorf("%w: entity %q at %v is outside the grid", ErrInvalidLevel, e.Name, e.Position())
		}

		if e.Bake {
			lvl.Baked = append(lvl.Baked, e)
			continue
		}
		lvl.Entities = append(lvl.Entities, e)
	}

	lvl.Grid, err = bake(base, lvl.Baked)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	return lvl, nil
}

func validateEntity(e Entity, seen map[string]bool) error {
	switch {
	case e.Name == "":
		return errors.New("missing name")
	case seen[e.Name]:
		return fmt.Errorf("duplicate name %q", e.Name)
	case e.Width <= 0 || e.Height <= 0:
		return fmt.Errorf("%q: size %vx%v must be positive", e.Name, e.Width, e.Height)
	case e.Speed < 0:
		return fmt.Errorf("%q: speed %v must not be negative", e.Name, e.Speed)
	}
	switch e.Kind {
	case KindPlayer, KindNPC:
		if e.Bake {
			return fmt.Errorf("%q: only props can be baked", e.Name)
		}
	case KindProp:
		if len(e.Patrol) > 0 {
			return fmt.Errorf("%q: props cannot patrol", e.Name)
		}
	default:
		return fmt.Errorf("%q: unknown kind %q", e.Name, e.Kind)
	}
	return nil
}

// bake returns a copy of base with every walkable cell whose centre lies in a
// baked prop's box turned into CellObject.
func bake(base *systems.WalkabilityGrid, props []Entity) (*systems.WalkabilityGrid, error) {
	if len(props) == 0 {
		return base, nil
	}
	w, h := base.Width(), base.Height()
	cells := make([]systems.CellKind, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cells = append(cells, base.At(x, y))
		}
	}
	for _, p := range props {
		box := p.Bounds()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if cells[y*w+x].Walkable() && box.ContainsPoint(base.CellCenter(x, y)) {
					cells[y*w+x] = systems.CellObject
				}
			}
		}
	}
	return systems.NewWalkabilityGrid(w, h, base.CellSize(), cells)
}
