// Package components defines ECS components for the engine.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/systems"
)

// Kind is the role of an entity.
type Kind uint8

const (
	KindProp Kind = iota
	KindPlayer
	KindNPC
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	default:
		return "prop"
	}
}

// Identity names an entity.
type Identity struct {
	Name string `inspect:"label"`
	Kind Kind   `inspect:"label"`
}

// Attributes holds free-form string attributes such as "Collides" and
// "Occludes". The spatial index reads them once at registration.
type Attributes struct {
	Values map[string]string `inspect:"skip"`
}

// Get returns the named attribute.
func (a *Attributes) Get(name string) (string, bool) {
	v, ok := a.Values[name]
	return v, ok
}

// Mover links an entity to its movement controller handle.
type Mover struct {
	Handle  systems.MoverHandle `inspect:"label"`
	Speed   float64             `inspect:"bar,max:200"` // world units per second
	FacingX float64             `inspect:"skip"`
	FacingY float64             `inspect:"skip"`
	Stuck   int32               `inspect:"label"` // consecutive refused steps
}

// Facing returns the last movement direction.
func (m *Mover) Facing() r2.Vec { return r2.Vec{X: m.FacingX, Y: m.FacingY} }

// Viewer marks an entity whose visibility polygon is tracked.
type Viewer struct {
	EyeX float64 `inspect:"label,fmt:%.1f"`
	EyeY float64 `inspect:"label,fmt:%.1f"`
}

// Eye returns the eye offset from the entity position.
func (v Viewer) Eye() r2.Vec { return r2.Vec{X: v.EyeX, Y: v.EyeY} }

// Intent is what a mover is trying to do this tick.
type Intent struct {
	// Direct input, consumed by the next step
	Push r2.Vec `inspect:"skip"`

	// Move-to target and its planned path
	Target    r2.Vec   `inspect:"skip"`
	HasTarget bool     `inspect:"bool"`
	Path      []r2.Vec `inspect:"skip"`
	Next      int      `inspect:"label"`

	// Patrol loop, restarted when the path runs out
	Patrol    []r2.Vec `inspect:"skip"`
	PatrolIdx int      `inspect:"label"`
}

// Waypoint returns the current waypoint.
func (in *Intent) Waypoint() (r2.Vec, bool) {
	if !in.HasTarget || in.Next >= len(in.Path) {
		return r2.Vec{}, false
	}
	return in.Path[in.Next], true
}

// Clear drops the move-to target.
func (in *Intent) Clear() {
	in.HasTarget = false
	in.Path = in.Path[:0]
	in.Next = 0
}
