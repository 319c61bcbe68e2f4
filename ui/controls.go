package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsState is the simulation state shown by the controls panel.
type ControlsState struct {
	Paused bool
	Speed  int // Ticks per update, 1..10
}

// ControlsAction is what the user changed this frame.
type ControlsAction struct {
	TogglePause bool
	ResetCamera bool
	Speed       int
}

// ControlsPanel renders the left-side panel with overlay toggles and
// simulation controls.
type ControlsPanel struct {
	renderer *Renderer
	overlays *OverlayRegistry
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a controls panel that toggles overlays in reg.
func NewControlsPanel(x, y, width int32, reg *OverlayRegistry) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		overlays: reg,
		x:        x,
		y:        y,
		width:    width,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point is over the panel.
func (c *ControlsPanel) Contains(x, y float32) bool {
	return c.visible && x >= float32(c.x) && x < float32(c.x+c.width) && y >= float32(c.y) && y < float32(c.y+c.height())
}

// height returns the panel height for the registered overlays.
func (c *ControlsPanel) height() int32 {
	var rows int32
	for _, cat := range c.overlays.Categories() {
		rows += int32(len(c.overlays.ByCategory(cat))) + 1
	}
	return rows*c.renderer.Theme.LineHeight + c.renderer.Theme.Padding*3 + 110
}

// Draw renders the panel and applies overlay toggles directly to the registry.
func (c *ControlsPanel) Draw(state ControlsState) ControlsAction {
	action := ControlsAction{Speed: state.Speed}
	if !c.visible {
		return action
	}

	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight
	inner := float32(c.width - padding*2)

	r.DrawPanel(c.x, c.y, c.width, c.height())
	overlays := c.overlays
	y := c.y + padding

	rl.DrawText("Overlays", c.x+padding, y, 16, r.Theme.Title)
	y += lineHeight + 4

	for _, category := range overlays.Categories() {
		rl.DrawText(categoryLabel(category), c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.Accent)
		y += lineHeight

		for _, desc := range overlays.ByCategory(category) {
			enabled := overlays.IsEnabled(desc.ID)
			box := rl.Rectangle{X: float32(c.x + padding), Y: float32(y), Width: 12, Height: 12}
			if gui.CheckBox(box, desc.Name, enabled) != enabled {
				overlays.Toggle(desc.ID)
			}
			if desc.KeyLabel != "" {
				keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
				keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
				rl.DrawText(keyText, c.x+c.width-padding-keyWidth, y, r.Theme.FontSize, r.Theme.Muted)
			}
			y += lineHeight
		}
		y += 4
	}

	// Simulation
	y += 4
	rl.DrawText(fmt.Sprintf("Speed: %dx", state.Speed), c.x+padding, y, r.Theme.FontSize, r.Theme.Label)
	y += lineHeight
	speed := gui.SliderBar(
		rl.Rectangle{X: float32(c.x + padding + 10), Y: float32(y), Width: inner - 40, Height: 14},
		"1", "10",
		float32(state.Speed), 1, 10,
	)
	action.Speed = int(speed + 0.5)
	y += lineHeight + 10

	pauseLabel := "Pause"
	if state.Paused {
		pauseLabel = "Resume"
	}
	half := (inner - 10) / 2
	if gui.Button(rl.Rectangle{X: float32(c.x + padding), Y: float32(y), Width: half, Height: 24}, pauseLabel) {
		action.TogglePause = true
	}
	if gui.Button(rl.Rectangle{X: float32(c.x+padding) + half + 10, Y: float32(y), Width: half, Height: 24}, "Reset View") {
		action.ResetCamera = true
	}
	return action
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "visual":
		return "Visual"
	case "visibility":
		return "Visibility"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}
