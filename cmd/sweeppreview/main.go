// Visibility sweep preview tool - drag the eye around a level and tune the
// sweep with sliders.
//
// Usage: go run ./cmd/sweeppreview [-level path/to/level.yaml]
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"slices"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/camera"
	"github.com/pthm-cable/sightline/components"
	"github.com/pthm-cable/sightline/config"
	"github.com/pthm-cable/sightline/game"
	"github.com/pthm-cable/sightline/level"
	"github.com/pthm-cable/sightline/renderer"
	"github.com/pthm-cable/sightline/systems"
)

const (
	windowWidth  = 1200
	windowHeight = 760
	previewWidth = 820
	panelWidth   = windowWidth - previewWidth - 30
)

// SweepParams are the slider values.
type SweepParams struct {
	BaseSamples     int
	CornerDistance  float32
	AngleEpsilonDeg float32
	MaxDistance     float32
	Rays            bool
}

func paramsFrom(cfg *config.Config) SweepParams {
	return SweepParams{
		BaseSamples:     cfg.Visibility.BaseSamples,
		CornerDistance:  float32(cfg.Visibility.CornerDistance),
		AngleEpsilonDeg: float32(cfg.Visibility.AngleEpsilonDeg),
		MaxDistance:     float32(cfg.Visibility.MaxDistance),
	}
}

func (p SweepParams) visibility(maxSamples int) systems.VisibilityParams {
	return systems.VisibilityParams{
		BaseSamples:    p.BaseSamples,
		CornerDistance: float64(p.CornerDistance),
		AngleEpsilon:   float64(p.AngleEpsilonDeg) * math.Pi / 180,
		MaxDistance:    float64(p.MaxDistance),
		MaxSamples:     maxSamples,
	}
}

func (p SweepParams) yaml() string {
	return fmt.Sprintf(`visibility:
  base_samples: %d
  corner_distance: %.1f
  angle_epsilon_deg: %.3f
  max_distance: %.0f`,
		p.BaseSamples, p.CornerDistance, p.AngleEpsilonDeg, p.MaxDistance)
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	levelPath := flag.String("level", "", "Path to a level YAML file (empty = use config level.path)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()

	path := cfg.Level.Path
	if *levelPath != "" {
		path = *levelPath
	}
	lvl, err := level.Load(path)
	if err != nil {
		log.Fatalf("failed to load level: %v", err)
	}

	// The game only supplies the populated grid and index
	g, err := game.NewGame(cfg, lvl, game.DefaultOptions())
	if err != nil {
		log.Fatalf("failed to build level: %v", err)
	}
	defer g.Unload()

	rl.InitWindow(windowWidth, windowHeight, "Visibility Sweep Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	bounds := g.Grid().Bounds()
	size := bounds.Size()
	cam := camera.New(previewWidth, windowHeight, float32(size.X), float32(size.Y))
	grid := renderer.NewGridRenderer()
	sprites := renderer.NewSpriteRenderer()

	params := paramsFrom(cfg)
	eye := bounds.Center()
	if p, ok := g.Player(); ok {
		if pos, err := g.Position(p); err == nil {
			eye = pos
		}
	}

	var poly systems.VisibilityPolygon
	needsSweep := true

	for !rl.WindowShouldClose() {
		mouse := rl.GetMousePosition()
		if mouse.X < previewWidth && rl.IsMouseButtonDown(rl.MouseButtonLeft) {
			wx, wy := cam.ScreenToWorld(mouse.X, mouse.Y)
			if next := (r2.Vec{X: float64(wx), Y: float64(wy)}); next != eye {
				eye = next
				needsSweep = true
			}
		}
		if wheel := rl.GetMouseWheelMove(); wheel != 0 && mouse.X < previewWidth {
			cam.ZoomAt(mouse.X, mouse.Y, float32(math.Pow(1.1, float64(wheel))))
		}

		if needsSweep {
			vis := systems.NewVisibilityEngine(g.Grid(), g.Index(), params.visibility(cfg.Visibility.MaxSamples))
			poly = vis.ComputeVisibilityPolygon(eye)
			needsSweep = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		// Preview
		rl.BeginScissorMode(0, 0, previewWidth, windowHeight)
		grid.Draw(g.Grid(), cam)
		sprites.Draw(collectSprites(g, poly), cam)
		renderer.DrawVisibility(poly, cam, params.Rays)
		renderer.DrawFaded(poly, cam)
		rl.EndScissorMode()

		// Control panel
		panelX := float32(previewWidth + 15)
		panelY := float32(10)
		rl.DrawRectangle(previewWidth, 0, windowWidth-previewWidth, windowHeight, rl.RayWhite)

		rl.DrawText("Sweep Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		changed := false
		slider := func(label, value string, v, lo, hi float32) float32 {
			rl.DrawText(label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			next := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "", v, lo, hi)
			rl.DrawText(value, int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			panelY += 35
			if next != v {
				changed = true
			}
			return next
		}

		params.BaseSamples = int(slider("Base samples (uniform angles)", fmt.Sprintf("%d", params.BaseSamples),
			float32(params.BaseSamples), 3, 512))
		params.CornerDistance = slider("Corner distance (world units)", fmt.Sprintf("%.1f", params.CornerDistance),
			params.CornerDistance, 0.5, 64)
		params.AngleEpsilonDeg = slider("Angle epsilon (degrees)", fmt.Sprintf("%.3f", params.AngleEpsilonDeg),
			params.AngleEpsilonDeg, 0.005, 2)
		params.MaxDistance = slider("Max distance (world units)", fmt.Sprintf("%.0f", params.MaxDistance),
			params.MaxDistance, 16, 1024)

		params.Rays = gui.CheckBox(rl.Rectangle{X: panelX, Y: panelY, Width: 18, Height: 18}, "Show rays", params.Rays)
		panelY += 30

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = paramsFrom(cfg)
			changed = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset View") {
			cam.Reset()
		}
		panelY += 50

		if changed {
			needsSweep = true
		}

		// Stats
		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
		panelY += 10
		stats := []string{
			fmt.Sprintf("Eye: %.1f, %.1f", eye.X, eye.Y),
			fmt.Sprintf("Vertices: %d", poly.Len()),
			fmt.Sprintf("Casts: %d  Refinements: %d", poly.Casts, poly.Refinements),
			fmt.Sprintf("Area: %.0f", poly.Area()),
			fmt.Sprintf("Faded: %d", len(poly.Faded())),
		}
		for _, line := range stats {
			rl.DrawText(line, int32(panelX), int32(panelY), 16, rl.DarkGray)
			panelY += 20
		}
		panelY += 15

		// Output YAML
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := params.yaml()
		for _, line := range strings.Split(yaml, "\n") {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Drag to move the eye, C copies YAML", int32(panelX), int32(windowHeight-30), 12, rl.Gray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

// collectSprites draws every entity, marking the ones the sweep saw through.
func collectSprites(g *game.Game, poly systems.VisibilityPolygon) []renderer.Sprite {
	faded := poly.Faded()
	var out []renderer.Sprite
	g.EachEntity(func(e ecs.Entity, box systems.AABB, id components.Identity) {
		caps, _ := g.Index().Capabilities(e)
		out = append(out, renderer.Sprite{
			Box:   box,
			Kind:  id.Kind,
			Name:  id.Name,
			Depth: box.Max.Y,
			Faded: slices.Contains(faded, e),
			Ghost: !caps.BlocksMovement,
		})
	})
	return out
}
