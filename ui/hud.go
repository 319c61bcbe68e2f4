package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sightline/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Level       string
	Tick        int32
	Speed       int
	FPS         int32
	Paused      bool
	Entities    int
	Movers      int
	IndexHeight int
	FogVisible  int
	FogExplored int
	Vertices    int // Player polygon vertex count
	Casts       int // Rays cast for the player polygon
	Cursor      string
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	theme := h.renderer.Theme
	rl.DrawText(data.Level, 10, 10, 20, theme.Title)

	rl.DrawText(
		fmt.Sprintf("Entities: %d | Movers: %d | BVH height: %d", data.Entities, data.Movers, data.IndexHeight),
		10, 35, 16, theme.Label,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d", data.Tick, data.Speed, data.FPS),
		10, 55, 16, theme.Label,
	)
	rl.DrawText(
		fmt.Sprintf("View: %d vertices, %d casts | Fog: %d visible, %d explored",
			data.Vertices, data.Casts, data.FogVisible, data.FogExplored),
		10, 75, 16, theme.Label,
	)

	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, 10, 95, 16, theme.Accent)

	if data.Cursor != "" {
		rl.DrawText(data.Cursor, 10, 115, 14, theme.Muted)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, h.renderer.Theme.Muted)
}

// phaseOrder is the display order of tick phases.
var phaseOrder = []string{
	telemetry.PhaseBounds,
	telemetry.PhaseIntents,
	telemetry.PhaseMovement,
	telemetry.PhaseVisibility,
	telemetry.PhaseTelemetry,
}

// PerfPanel renders the per-phase tick timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	theme := p.renderer.Theme
	x := p.x
	y := p.y

	rl.DrawText("Tick Phases", x, y, 16, theme.Title)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  TPS: %.0f", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, theme.Accent)
	y += 16

	for _, name := range phaseOrder {
		avg := stats.PhaseAvg[name]
		pct := stats.PhasePct[name]

		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, theme.phaseColor(pct),
		)
		y += 14
	}
}
