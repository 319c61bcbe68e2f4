// Package telemetry provides frame timing, windowed engine statistics and
// CSV output.
package telemetry

import "github.com/mlange-42/ark/ecs"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventStuck       EventType = iota // Movement refused at a concave corner
	EventEscape                       // Mover left a blocked position
	EventPathFallback                 // Path ends at the closest reachable cell
	EventUnreachable                  // No path and no fallback
	EventRemoved                      // Entity skipped after a hard engine error
)

var eventNames = [...]string{"stuck", "escape", "path_fallback", "unreachable", "removed"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event is a single notable engine occurrence.
type Event struct {
	Type   EventType
	Tick   int32
	Entity ecs.Entity
}
