package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/sightline/components"
	"github.com/pthm-cable/sightline/config"
	"github.com/pthm-cable/sightline/game"
	"github.com/pthm-cable/sightline/level"
	"github.com/pthm-cable/sightline/systems"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(s.Fini)
	s.SetSize(w, h)
	return s
}

func TestViewDrawsFog(t *testing.T) {
	// A full-height wall at column 6 splits the room
	rows := []string{
		"############",
		"#.....#....#",
		"#.....#....#",
		"#.....#....#",
		"#.....#....#",
		"############",
	}
	lvl, err := level.Build(level.File{
		Name:     "split",
		CellSize: 16,
		Rows:     rows,
		Entities: []level.Entity{
			{Name: "hero", Kind: level.KindPlayer, X: 40, Y: 40, Width: 8, Height: 8, Viewer: true},
			{Name: "window", Kind: level.KindProp, X: 72, Y: 56, Width: 12, Height: 12,
				Attributes: map[string]string{"Occludes": "false"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g, err := game.NewGame(config.Defaults(), lvl, game.DefaultOptions())
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	defer g.Unload()

	s := newSimScreen(t, 40, 10)
	newView(s, g).draw()

	glyph := func(cx, cy int) rune {
		r, _, _, _ := s.GetContent(cx, cy+statusRows)
		return r
	}

	if r := glyph(2, 2); r != '@' {
		t.Errorf("player cell = %q, want '@'", r)
	}
	if r := glyph(0, 2); r != '#' {
		t.Errorf("wall beside player = %q, want '#'", r)
	}
	if r := glyph(4, 3); r != '+' {
		t.Errorf("window cell = %q, want '+'", r)
	}
	if r := glyph(9, 2); r == '.' || r == '#' {
		t.Errorf("cell behind wall = %q, want shroud", r)
	}
	if r, _, _, _ := s.GetContent(1, 0); r != 's' {
		t.Errorf("status line starts %q, want level name", r)
	}
}

func TestScrollAxis(t *testing.T) {
	tests := []struct {
		name          string
		c, view, size int
		want          int
	}{
		{"fits", 5, 20, 10, 0},
		{"near start", 3, 10, 50, 0},
		{"centred", 25, 10, 50, 20},
		{"near end", 48, 10, 50, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scrollAxis(tt.c, tt.view, tt.size); got != tt.want {
				t.Errorf("scrollAxis(%d, %d, %d) = %d, want %d", tt.c, tt.view, tt.size, got, tt.want)
			}
		})
	}
}

func TestEntityGlyph(t *testing.T) {
	solid := systems.DefaultCapabilities()
	tests := []struct {
		name   string
		id     components.Identity
		caps   systems.Capabilities
		player bool
		want   rune
	}{
		{"player", components.Identity{Name: "hero", Kind: components.KindPlayer}, solid, true, '@'},
		{"npc", components.Identity{Name: "guard", Kind: components.KindNPC}, solid, false, 'G'},
		{"unnamed npc", components.Identity{Kind: components.KindNPC}, solid, false, 'N'},
		{"solid prop", components.Identity{Name: "crate"}, solid, false, '='},
		{"window", components.Identity{Name: "window"}, systems.Capabilities{BlocksMovement: true}, false, '+'},
		{"ghost", components.Identity{Name: "ghost"}, systems.Capabilities{BlocksVision: true}, false, '~'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := entityGlyph(tt.id, tt.caps, tt.player); got != tt.want {
				t.Errorf("entityGlyph = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCellGlyph(t *testing.T) {
	if _, _, ok := cellGlyph(systems.CellFloor, systems.FogShroud); ok {
		t.Error("shrouded cell drawn")
	}
	if r, style, _ := cellGlyph(systems.CellWall, systems.FogExplored); r != '#' || style != styleExplored {
		t.Errorf("explored wall = %q", r)
	}
	if r, _, _ := cellGlyph(systems.CellSpawn, systems.FogVisible); r != '.' {
		t.Errorf("spawn drawn as %q, want floor", r)
	}
}
