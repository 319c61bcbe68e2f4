package ui

import (
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID names a debug overlay.
type OverlayID string

const (
	OverlayFog        OverlayID = "fog"
	OverlayNames      OverlayID = "names"
	OverlayGridLines  OverlayID = "grid_lines"
	OverlayPlayerView OverlayID = "player_view"
	OverlayAllViews   OverlayID = "all_views"
	OverlayRays       OverlayID = "rays"
	OverlayFaded      OverlayID = "faded"
	OverlayPaths      OverlayID = "paths"
	OverlayBVH        OverlayID = "bvh"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID        OverlayID
	Name      string
	Key       int32  // Toggle key, 0 = none
	KeyLabel  string // Shown next to the checkbox
	Category  string
	Exclusive []OverlayID // Switched off when this one is switched on
	On        bool        // Initial state
}

// defaultOverlays in display order.
var defaultOverlays = []OverlayDescriptor{
	{ID: OverlayFog, Name: "Fog of War", Key: rl.KeyF, KeyLabel: "F", Category: "visual", On: true},
	{ID: OverlayNames, Name: "Names", Key: rl.KeyN, KeyLabel: "N", Category: "visual", On: true},
	{ID: OverlayGridLines, Name: "Grid Lines", Key: rl.KeyL, KeyLabel: "L", Category: "visual"},

	{ID: OverlayPlayerView, Name: "Player View", Key: rl.KeyV, KeyLabel: "V", Category: "visibility",
		Exclusive: []OverlayID{OverlayAllViews}, On: true},
	{ID: OverlayAllViews, Name: "All Views", Key: rl.KeyA, KeyLabel: "A", Category: "visibility",
		Exclusive: []OverlayID{OverlayPlayerView}},
	{ID: OverlayRays, Name: "Rays", Key: rl.KeyR, KeyLabel: "R", Category: "visibility"},
	{ID: OverlayFaded, Name: "Faded Hits", Key: rl.KeyH, KeyLabel: "H", Category: "visibility"},

	{ID: OverlayPaths, Name: "Paths", Key: rl.KeyP, KeyLabel: "P", Category: "debug"},
	{ID: OverlayBVH, Name: "BVH Nodes", Key: rl.KeyB, KeyLabel: "B", Category: "debug"},
}

// OverlayRegistry tracks which overlays are on.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]int
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry holding the default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	r := &OverlayRegistry{
		byID:    make(map[OverlayID]int, len(defaultOverlays)),
		enabled: make(map[OverlayID]bool, len(defaultOverlays)),
	}
	for _, desc := range defaultOverlays {
		r.Register(desc)
	}
	return r
}

// Register adds an overlay in its initial state. Re-registering an ID replaces it.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	if i, ok := r.byID[desc.ID]; ok {
		r.descriptors[i] = desc
	} else {
		r.byID[desc.ID] = len(r.descriptors)
		r.descriptors = append(r.descriptors, desc)
	}
	r.SetEnabled(desc.ID, desc.On)
}

// Toggle flips an overlay and returns its new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	on := !r.enabled[id]
	r.SetEnabled(id, on)
	return r.enabled[id]
}

// SetEnabled sets an overlay, switching off its exclusive partners when on.
func (r *OverlayRegistry) SetEnabled(id OverlayID, on bool) {
	i, ok := r.byID[id]
	if !ok {
		return
	}
	r.enabled[id] = on
	if on {
		for _, other := range r.descriptors[i].Exclusive {
			r.enabled[other] = false
		}
	}
}

// IsEnabled reports whether an overlay is on.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// ByCategory returns the overlays of one category in display order.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var out []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			out = append(out, desc)
		}
	}
	return out
}

// Categories returns the categories in first-registered order.
func (r *OverlayRegistry) Categories() []string {
	var cats []string
	for _, desc := range r.descriptors {
		if !slices.Contains(cats, desc.Category) {
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeys toggles every overlay whose key is reported pressed.
func (r *OverlayRegistry) HandleKeys(pressed func(key int32) bool) {
	for _, desc := range r.descriptors {
		if desc.Key != 0 && pressed(desc.Key) {
			r.Toggle(desc.ID)
		}
	}
}
