// Package inspector streams read-only engine snapshots to debug clients
// over websockets.
package inspector

// Snapshot is one frame of engine state as seen by inspector clients.
type Snapshot struct {
	Tick     int32            `json:"tick"`
	Level    string           `json:"level"`
	Entities []EntitySnapshot `json:"entities"`
	Views    []ViewSnapshot   `json:"views,omitempty"`
	Fog      *FogSnapshot     `json:"fog,omitempty"`
	Events   []EventSnapshot  `json:"events,omitempty"`
	Index    IndexSnapshot    `json:"index"`
}

// EntitySnapshot describes one entity's box and its inspectable fields.
type EntitySnapshot struct {
	ID     uint32            `json:"id"`
	Name   string            `json:"name"`
	Kind   string            `json:"kind"`
	Box    [4]float64        `json:"box"` // min x, min y, max x, max y
	Fields map[string]string `json:"fields,omitempty"`
}

// ViewSnapshot is a viewer's visibility polygon.
type ViewSnapshot struct {
	ID       uint32       `json:"id"`
	Origin   [2]float64   `json:"origin"`
	Vertices [][2]float64 `json:"vertices"`
	Faded    []uint32     `json:"faded,omitempty"`
	Casts    int          `json:"casts"`
}

// FogSnapshot is the player's fog mask, one byte per cell row-major
// (0 shroud, 1 explored, 2 visible).
type FogSnapshot struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []byte `json:"cells"`
}

// EventSnapshot is a recent engine event.
type EventSnapshot struct {
	Tick   int32  `json:"tick"`
	Type   string `json:"type"`
	Entity uint32 `json:"entity"`
}

// IndexSnapshot summarizes the spatial index.
type IndexSnapshot struct {
	Leaves int `json:"leaves"`
	Height int `json:"height"`
}
