package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sightline/inspector"
)

// EntityData holds what the entity panel shows for the selection.
type EntityData struct {
	Name       string
	Kind       string
	Components []any // Component pointers, rendered through their inspect tags
	CanSee     bool  // Visible to the player
	InFront    string
}

// EntityPanel renders the selected entity's components.
type EntityPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewEntityPanel creates a new entity panel.
func NewEntityPanel(x, y, width int32) *EntityPanel {
	return &EntityPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *EntityPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the panel and returns its bottom edge.
func (p *EntityPanel) Draw(data EntityData) int32 {
	r := p.renderer
	padding := r.Theme.Padding
	content := p.width - padding*2

	sections := make([][]inspector.Field, 0, len(data.Components))
	lines := int32(4)
	for _, c := range data.Components {
		fields := inspector.ExtractFields(c)
		sections = append(sections, fields)
		lines += int32(len(fields)) + 1
	}
	height := lines*(r.Theme.LineHeight+2) + padding*2
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + padding
	y := p.y + padding
	rl.DrawText(fmt.Sprintf("%s (%s)", data.Name, data.Kind), x, y, 16, r.Theme.Title)
	y += r.Theme.LineHeight + 6

	y = r.DrawBool(x, y, "Seen", data.CanSee)
	if data.InFront != "" {
		y = r.DrawLabelValue(x, y, "In front", data.InFront)
	}
	y += 4

	for _, fields := range sections {
		if len(fields) == 0 {
			continue
		}
		y = r.DrawSectionHeader(x, y, fields[0].Component)
		for _, f := range fields {
			y = r.DrawField(x, y, f, content)
		}
		y += 4
	}
	return y
}
