package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sightline/inspector"
)

// Renderer handles all UI drawing with consistent styling.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawSectionHeader draws a section header and returns the new Y position.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.Accent)
	return y + r.Theme.LineHeight
}

// DrawLabelValue draws a label and value on the same line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.Label)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.Value)
	return y + r.Theme.LineHeight
}

// DrawBar draws value as a fraction of limit.
func (r *Renderer) DrawBar(x, y int32, label string, value, limit float64, width int32) int32 {
	ratio := 0.0
	if limit > 0 {
		ratio = min(max(value/limit, 0), 1)
	}

	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth - 50

	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.Label)
	rl.DrawRectangle(barX, y+2, barWidth, r.Theme.BarHeight, r.Theme.BarBg)
	rl.DrawRectangle(barX, y+2, int32(float64(barWidth)*ratio), r.Theme.BarHeight, r.Theme.BarFill)
	rl.DrawText(fmt.Sprintf("%.1f", value), barX+barWidth+5, y, r.Theme.FontSize, r.Theme.Value)

	return y + r.Theme.LineHeight + 2
}

// DrawBool draws an on/off indicator.
func (r *Renderer) DrawBool(x, y int32, label string, on bool) int32 {
	c := r.Theme.BoolOff
	if on {
		c = r.Theme.BoolOn
	}
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.Label)
	rl.DrawRectangle(x+r.Theme.LabelWidth, y+2, 8, 8, c)
	return y + r.Theme.LineHeight
}

// DrawField renders a reflected component field using its widget hint.
func (r *Renderer) DrawField(x, y int32, f inspector.Field, width int32) int32 {
	switch f.Widget {
	case inspector.WidgetBar:
		if v, ok := inspector.GetFloatValue(f.Value); ok {
			return r.DrawBar(x, y, f.Name, v, inspector.GetMax(f.Options), width)
		}
	case inspector.WidgetBool:
		if b, ok := f.Value.(bool); ok {
			return r.DrawBool(x, y, f.Name, b)
		}
	}
	return r.DrawLabelValue(x, y, f.Name, f.Text())
}
