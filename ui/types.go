// Package ui draws the HUD, overlay controls and entity panel with raylib and raygui.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds colors and metrics shared by every panel.
type Theme struct {
	// Panels
	PanelBg     rl.Color
	PanelBorder rl.Color

	// Text roles
	Title  rl.Color // Panel titles and the level name
	Accent rl.Color // Section headers and run state
	Label  rl.Color
	Value  rl.Color
	Muted  rl.Color // Key hints, cursor readout
	Warn   rl.Color // Phase over a quarter of the tick
	Alert  rl.Color // Phase over half of the tick

	// Widgets
	BarBg   rl.Color
	BarFill rl.Color
	BoolOn  rl.Color
	BoolOff rl.Color

	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the dark debug theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:     rl.Color{R: 18, G: 22, B: 28, A: 235},
		PanelBorder: rl.Color{R: 70, G: 80, B: 92, A: 255},

		Title:  rl.White,
		Accent: rl.Color{R: 255, G: 220, B: 120, A: 255},
		Label:  rl.LightGray,
		Value:  rl.RayWhite,
		Muted:  rl.Gray,
		Warn:   rl.Orange,
		Alert:  rl.Red,

		BarBg:   rl.Color{R: 40, G: 44, B: 50, A: 255},
		BarFill: rl.Color{R: 120, G: 200, B: 255, A: 255},
		BoolOn:  rl.Color{R: 110, G: 210, B: 120, A: 255},
		BoolOff: rl.Color{R: 80, G: 80, B: 80, A: 255},

		Padding:        10,
		LineHeight:     16,
		LabelWidth:     80,
		BarHeight:      12,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

// phaseColor picks the text color for a phase taking pct of the tick.
func (t Theme) phaseColor(pct float64) rl.Color {
	switch {
	case pct > 50:
		return t.Alert
	case pct > 25:
		return t.Warn
	default:
		return t.Label
	}
}
