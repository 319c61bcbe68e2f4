package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/components"
	"github.com/pthm-cable/sightline/game"
	"github.com/pthm-cable/sightline/systems"
)

// Styles by fog state.
var (
	styleVisible  = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleWall     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleExplored = tcell.StyleDefault.Foreground(tcell.ColorGray).Dim(true)
	stylePlayer   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleNPC      = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleProp     = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
)

// statusRows is the number of screen rows above the map.
const statusRows = 1

// view draws the level one character per grid cell, masked by the player's fog.
type view struct {
	screen tcell.Screen
	g      *game.Game

	// Top-left grid cell on screen
	offX, offY int
}

func newView(screen tcell.Screen, g *game.Game) *view {
	return &view{screen: screen, g: g}
}

// draw renders one frame.
func (v *view) draw() {
	v.screen.Clear()
	v.scroll()

	grid := v.g.Grid()
	fog := v.g.Fog()
	_, fogged := v.g.Player()

	w, h := v.screen.Size()
	for sy := statusRows; sy < h; sy++ {
		cy := v.offY + sy - statusRows
		for sx := 0; sx < w; sx++ {
			cx := v.offX + sx
			if !grid.InBounds(cx, cy) {
				continue
			}
			state := systems.FogVisible
			if fogged {
				state = fog.At(cx, cy)
			}
			if r, style, ok := cellGlyph(grid.At(cx, cy), state); ok {
				v.screen.SetContent(sx, sy, r, nil, style)
			}
		}
	}

	v.drawEntities(fogged)
	v.drawStatus()
	v.screen.Show()
}

// drawEntities marks each entity at its centre cell. Movers show only in
// visible cells; props also show in explored cells.
func (v *view) drawEntities(fogged bool) {
	grid := v.g.Grid()
	fog := v.g.Fog()
	player, _ := v.g.Player()

	v.g.EachEntity(func(e ecs.Entity, box systems.AABB, id components.Identity) {
		cx, cy := grid.WorldToCell(box.Center())
		if fogged && e != player {
			state := fog.At(cx, cy)
			if state == systems.FogShroud || (state == systems.FogExplored && id.Kind != components.KindProp) {
				return
			}
		}
		caps, _ := v.g.Index().Capabilities(e)
		r, style := entityGlyph(id, caps, e == player)
		v.set(cx, cy, r, style)
	})
}

func (v *view) drawStatus() {
	w, _ := v.screen.Size()
	visible, explored := v.g.Fog().Counts()
	state := "running"
	if v.g.Paused() {
		state = "paused"
	}
	line := fmt.Sprintf(" %s | tick %d | %s %dx | fog %d/%d | arrows move, click go, p pause, +/- speed, q quit",
		v.g.Level().Name, v.g.Tick(), state, v.g.StepsPerUpdate(), visible, explored)
	if len(line) < w {
		line += strings.Repeat(" ", w-len(line))
	}
	for i, r := range []rune(line) {
		if i >= w {
			break
		}
		v.screen.SetContent(i, 0, r, nil, styleStatus)
	}
}

// set draws r at grid cell (cx, cy) if it is on screen.
func (v *view) set(cx, cy int, r rune, style tcell.Style) {
	sx, sy := cx-v.offX, cy-v.offY+statusRows
	w, h := v.screen.Size()
	if sx < 0 || sy < statusRows || sx >= w || sy >= h {
		return
	}
	v.screen.SetContent(sx, sy, r, nil, style)
}

// scroll keeps the player centred when the level is larger than the screen.
func (v *view) scroll() {
	w, h := v.screen.Size()
	h -= statusRows
	grid := v.g.Grid()

	v.offX, v.offY = 0, 0
	p, ok := v.g.Player()
	if !ok {
		return
	}
	pos, err := v.g.Position(p)
	if err != nil {
		return
	}
	cx, cy := grid.WorldToCell(pos)
	v.offX = scrollAxis(cx, w, grid.Width())
	v.offY = scrollAxis(cy, h, grid.Height())
}

func scrollAxis(c, view, size int) int {
	if size <= view {
		return 0
	}
	return min(max(c-view/2, 0), size-view)
}

// cellToWorld returns the world centre of the grid cell at a screen position.
func (v *view) cellToWorld(sx, sy int) (r2.Vec, bool) {
	cx, cy := v.offX+sx, v.offY+sy-statusRows
	grid := v.g.Grid()
	if sy < statusRows || !grid.InBounds(cx, cy) {
		return r2.Vec{}, false
	}
	return grid.CellCenter(cx, cy), true
}

func cellGlyph(kind systems.CellKind, state systems.FogState) (rune, tcell.Style, bool) {
	if state == systems.FogShroud {
		return 0, tcell.StyleDefault, false
	}
	r := kind.Rune()
	if kind == systems.CellSpawn {
		r = '.'
	}
	if state == systems.FogExplored {
		return r, styleExplored, true
	}
	if kind == systems.CellWall {
		return r, styleWall, true
	}
	return r, styleVisible, true
}

func entityGlyph(id components.Identity, caps systems.Capabilities, isPlayer bool) (rune, tcell.Style) {
	switch {
	case isPlayer:
		return '@', stylePlayer
	case id.Kind == components.KindNPC || id.Kind == components.KindPlayer:
		r := 'N'
		if id.Name != "" {
			r = []rune(strings.ToUpper(id.Name))[0]
		}
		return r, styleNPC
	case !caps.BlocksMovement:
		return '~', styleProp
	case !caps.BlocksVision:
		return '+', styleProp
	default:
		return '=', styleProp
	}
}
