package main

import (
	"context"
	"fmt"
	"log/slog"

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
	"github.com/pthm-cable/sightline/ui"
)

const controlsLegend = "Arrows: move | Click: select / move to | Del: remove | Space: pause | </>: speed | Tab: panel | C: follow | Wheel/RMB: zoom/pan | Home: reset"

// app is the raylib front end over a running game.
type app struct {
	g    *game.Game
	loop *game.Loop
	cam  *camera.Camera

	grid    *renderer.GridRenderer
	fog     *renderer.FogRenderer
	sprites *renderer.SpriteRenderer
	buf     []renderer.Sprite

	overlays *ui.OverlayRegistry
	controls *ui.ControlsPanel
	hud      *ui.HUD
	perf     *ui.PerfPanel
	entity   *ui.EntityPanel

	selected     ecs.Entity
	hasSelection bool
	follow       bool

	screenW, screenH int32
}

// runGraphical opens a window and runs the game until it is closed.
func runGraphical(ctx context.Context, cfg *config.Config, lvl *level.Level, opts game.Options, maxTicks int) error {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Sightline - "+lvl.Name)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGame(cfg, lvl, opts)
	if err != nil {
		return err
	}
	defer g.Unload()

	a := newApp(g, int32(cfg.Screen.Width), int32(cfg.Screen.Height))
	defer a.fog.Unload()

	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", g.Tick())
			break
		}

		a.handleInput()
		a.loop.Update()
		if a.follow {
			if p, ok := g.Player(); ok {
				pos, _ := g.Position(p)
				a.cam.Follow(float32(pos.X), float32(pos.Y))
			}
		}
		a.draw()

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			break
		}
	}
	return nil
}

func newApp(g *game.Game, w, h int32) *app {
	bounds := g.Grid().Bounds()
	overlays := ui.NewOverlayRegistry()
	return &app{
		g:        g,
		loop:     game.NewLoop(g),
		cam:      camera.New(float32(w), float32(h), float32(bounds.Max.X), float32(bounds.Max.Y)),
		grid:     renderer.NewGridRenderer(),
		fog:      renderer.NewFogRenderer(),
		sprites:  renderer.NewSpriteRenderer(),
		overlays: overlays,
		controls: ui.NewControlsPanel(10, 140, 220, overlays),
		hud:      ui.NewHUD(),
		perf:     ui.NewPerfPanel(w-260, 10),
		entity:   ui.NewEntityPanel(w-260, 130, 250),
		follow:   true,
		screenW:  w,
		screenH:  h,
	}
}

// handleInput processes keyboard and mouse input.
func (a *app) handleInput() {
	a.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.togglePause()
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		a.g.SetStepsPerUpdate(a.g.StepsPerUpdate() - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		a.g.SetStepsPerUpdate(a.g.StepsPerUpdate() + 1)
	}

	if rl.IsKeyPressed(rl.KeyTab) {
		a.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyC) {
		a.follow = !a.follow
	}
	a.overlays.HandleKeys(rl.IsKeyPressed)
	a.sprites.ShowNames = a.overlays.IsEnabled(ui.OverlayNames)
	a.grid.ShowLines = a.overlays.IsEnabled(ui.OverlayGridLines)

	a.handlePlayerInput()
	a.handleCameraInput()
	a.handleMouse()

	if rl.IsKeyPressed(rl.KeyDelete) && a.hasSelection {
		if err := a.g.Remove(a.selected); err != nil {
			slog.Warn("remove failed", "error", err)
		}
		a.hasSelection = false
	}
}

func (a *app) togglePause() {
	a.g.SetPaused(!a.g.Paused())
	if !a.g.Paused() {
		a.loop.Reset()
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (a *app) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	if w == a.screenW && h == a.screenH {
		return
	}
	a.screenW, a.screenH = w, h
	a.cam.Resize(float32(w), float32(h))
	a.perf.SetPosition(w-260, 10)
	a.entity.SetPosition(w-260, 130)
}

// handlePlayerInput pushes the player along the held arrow keys.
func (a *app) handlePlayerInput() {
	p, ok := a.g.Player()
	if !ok {
		return
	}
	var dir r2.Vec
	if rl.IsKeyDown(rl.KeyRight) {
		dir.X++
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		dir.X--
	}
	if rl.IsKeyDown(rl.KeyDown) {
		dir.Y++
	}
	if rl.IsKeyDown(rl.KeyUp) {
		dir.Y--
	}
	if dir == (r2.Vec{}) {
		return
	}
	if err := a.g.Push(p, dir); err != nil {
		slog.Warn("push failed", "error", err)
	}
}

// handleCameraInput processes camera pan/zoom controls.
func (a *app) handleCameraInput() {
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		if d.X != 0 || d.Y != 0 {
			a.follow = false
			a.cam.Pan(-d.X/a.cam.Zoom, -d.Y/a.cam.Zoom)
		}
	}

	// Zoom toward the cursor
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		m := rl.GetMousePosition()
		a.cam.ZoomAt(m.X, m.Y, 1+wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		a.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		a.cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		a.cam.Reset()
	}
}

// handleMouse selects the entity under the cursor, or sends the player
// there when the click hits nothing.
func (a *app) handleMouse() {
	if !rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		return
	}
	m := rl.GetMousePosition()
	if a.controls.Contains(m.X, m.Y) {
		return
	}
	wx, wy := a.cam.ScreenToWorld(m.X, m.Y)
	p := r2.Vec{X: float64(wx), Y: float64(wy)}

	if e, ok := a.g.SelectAt(p); ok {
		a.selected, a.hasSelection = e, true
		return
	}
	a.hasSelection = false

	player, ok := a.g.Player()
	if !ok {
		return
	}
	if err := a.g.MoveTo(player, p); err != nil {
		slog.Info("move rejected", "target", p, "error", err)
	}
}

// draw renders one frame.
func (a *app) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	grid := a.g.Grid()
	a.grid.Draw(grid, a.cam)

	var player ecs.Entity
	playerView, hasView := systems.VisibilityPolygon{}, false
	if p, ok := a.g.Player(); ok {
		player = p
		playerView, hasView = a.g.ViewOf(p)
	}

	a.drawViews(playerView, hasView)
	a.drawSprites(player, playerView, hasView)

	if a.overlays.IsEnabled(ui.OverlayFog) && hasView {
		a.fog.Update(a.g.Fog(), grid)
		a.fog.Draw(grid, a.cam)
	}
	if a.overlays.IsEnabled(ui.OverlayPaths) {
		a.g.EachMover(func(_ ecs.Entity, m *systems.Mover, in *components.Intent) {
			if in.HasTarget {
				renderer.DrawPath(m.Position, in.Path, in.Next, a.cam)
			}
		})
	}
	if a.overlays.IsEnabled(ui.OverlayBVH) {
		renderer.DrawBVH(a.g.Index(), a.cam)
	}

	m := rl.GetMousePosition()
	wx, wy := a.cam.ScreenToWorld(m.X, m.Y)
	cx, cy := grid.WorldToCell(r2.Vec{X: float64(wx), Y: float64(wy)})
	renderer.DrawCellMarker(grid, cx, cy, a.cam, rl.Fade(rl.White, 0.4))

	a.drawUI(playerView, cx, cy)
	rl.EndDrawing()
}

// drawViews draws the enabled visibility polygons.
func (a *app) drawViews(playerView systems.VisibilityPolygon, hasView bool) {
	rays := a.overlays.IsEnabled(ui.OverlayRays)
	faded := a.overlays.IsEnabled(ui.OverlayFaded)

	switch {
	case a.overlays.IsEnabled(ui.OverlayAllViews):
		a.g.EachMover(func(_ ecs.Entity, m *systems.Mover, _ *components.Intent) {
			if !m.Viewer {
				return
			}
			renderer.DrawVisibility(m.Visibility, a.cam, rays)
			if faded {
				renderer.DrawFaded(m.Visibility, a.cam)
			}
		})
	case a.overlays.IsEnabled(ui.OverlayPlayerView) && hasView:
		renderer.DrawVisibility(playerView, a.cam, rays)
		if faded {
			renderer.DrawFaded(playerView, a.cam)
		}
	}
}

// drawSprites draws every entity box. Entities the player's rays pass
// through are drawn faded.
func (a *app) drawSprites(player ecs.Entity, playerView systems.VisibilityPolygon, hasView bool) {
	seenThrough := make(map[ecs.Entity]bool)
	if hasView {
		for _, e := range playerView.Faded() {
			seenThrough[e] = true
		}
	}

	a.buf = a.buf[:0]
	a.g.EachEntity(func(e ecs.Entity, box systems.AABB, id components.Identity) {
		s := renderer.Sprite{
			Box:      box,
			Kind:     id.Kind,
			Name:     id.Name,
			Depth:    box.Max.Y,
			Selected: a.hasSelection && e == a.selected,
			Faded:    e != player && seenThrough[e],
		}
		if caps, ok := a.g.Index().Capabilities(e); ok {
			s.Ghost = !caps.BlocksMovement
		}
		if id.Kind != components.KindProp {
			s.Facing, _ = a.g.Facing(e)
		}
		a.buf = append(a.buf, s)
	})
	a.sprites.Draw(a.buf, a.cam)
}

// drawUI draws the HUD and panels.
func (a *app) drawUI(playerView systems.VisibilityPolygon, cx, cy int) {
	visible, explored := a.g.Fog().Counts()
	movers := 0
	a.g.EachMover(func(ecs.Entity, *systems.Mover, *components.Intent) { movers++ })

	a.hud.Draw(ui.HUDData{
		Level:       a.g.Level().Name,
		Tick:        a.g.Tick(),
		Speed:       a.g.StepsPerUpdate(),
		FPS:         rl.GetFPS(),
		Paused:      a.g.Paused(),
		Entities:    a.g.Index().Len(),
		Movers:      movers,
		IndexHeight: a.g.Index().Height(),
		FogVisible:  visible,
		FogExplored: explored,
		Vertices:    playerView.Len(),
		Casts:       playerView.Casts,
		Cursor:      fmt.Sprintf("Cell (%d, %d) %s", cx, cy, a.g.Grid().At(cx, cy)),
	})
	a.hud.DrawControls(a.screenH, controlsLegend)

	action := a.controls.Draw(ui.ControlsState{Paused: a.g.Paused(), Speed: a.g.StepsPerUpdate()})
	if action.TogglePause {
		a.togglePause()
	}
	if action.ResetCamera {
		a.cam.Reset()
	}
	a.g.SetStepsPerUpdate(action.Speed)

	if a.controls.IsVisible() {
		a.perf.Draw(a.g.PerfCollector().Stats())
	}
	a.drawEntityPanel()
}

func (a *app) drawEntityPanel() {
	if !a.hasSelection {
		return
	}
	parts, err := a.g.Components(a.selected)
	if err != nil {
		a.hasSelection = false
		return
	}
	id, _ := a.g.Identity(a.selected)
	data := ui.EntityData{
		Name:       id.Name,
		Kind:       id.Kind.String(),
		Components: parts,
	}
	if p, ok := a.g.Player(); ok {
		if p == a.selected {
			data.CanSee = true
		} else {
			data.CanSee, _ = a.g.CanSee(p, a.selected)
		}
	}
	if id.Kind != components.KindProp {
		if t, ok := a.g.TargetInFront(a.selected); ok {
			if tid, err := a.g.Identity(t); err == nil {
				data.InFront = tid.Name
			}
		}
	}
	a.entity.Draw(data)
}
