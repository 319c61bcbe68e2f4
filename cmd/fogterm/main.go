// Command fogterm plays a level in the terminal, drawing the player's fog of
// war one character per grid cell.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/config"
	"github.com/pthm-cable/sightline/game"
	"github.com/pthm-cable/sightline/level"
)

// holdFor keeps a pushed direction active between terminal key repeats.
const holdFor = 150 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	levelPath := flag.String("level", "", "Path to a level YAML file (empty = use config level.path)")
	logPath := flag.String("log", "", "Write logs to this file (empty = discard)")
	flag.Parse()

	// The terminal belongs to tcell; logs go to a file or nowhere
	handler := slog.DiscardHandler
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		handler = slog.NewJSONHandler(f, nil)
	}
	slog.SetDefault(slog.New(handler))

	if err := run(*configPath, *levelPath); err != nil {
		fmt.Fprintf(os.Stderr, "fogterm: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, levelPath string) error {
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()

	path := cfg.Level.Path
	if levelPath != "" {
		path = levelPath
	}
	lvl, err := level.Load(path)
	if err != nil {
		return fmt.Errorf("loading level: %w", err)
	}

	g, err := game.NewGame(cfg, lvl, game.DefaultOptions())
	if err != nil {
		return err
	}
	defer g.Unload()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	t := &terminal{
		screen: screen,
		g:      g,
		loop:   game.NewLoop(g),
		view:   newView(screen, g),
	}
	t.run()
	return nil
}

// terminal owns the event loop.
type terminal struct {
	screen tcell.Screen
	g      *game.Game
	loop   *game.Loop
	view   *view

	held      r2.Vec
	heldUntil time.Time
}

func (t *terminal) run() {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	t.view.draw()
	for {
		select {
		case ev := <-events:
			if !t.handle(ev) {
				return
			}
		case now := <-ticker.C:
			if now.Before(t.heldUntil) {
				if p, ok := t.g.Player(); ok {
					_ = t.g.Push(p, t.held)
				}
			}
			t.loop.Update()
			t.view.draw()
		}
	}
}

// handle applies one event and reports whether to keep running.
func (t *terminal) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		t.screen.Sync()
	case *tcell.EventKey:
		return t.handleKey(ev)
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 {
			break
		}
		p, ok := t.g.Player()
		if !ok {
			break
		}
		if target, ok := t.view.cellToWorld(ev.Position()); ok {
			if err := t.g.MoveTo(p, target); err != nil {
				slog.Debug("move rejected", "target", target, "error", err)
			}
		}
	}
	return true
}

func (t *terminal) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		t.hold(r2.Vec{Y: -1})
	case tcell.KeyDown:
		t.hold(r2.Vec{Y: 1})
	case tcell.KeyLeft:
		t.hold(r2.Vec{X: -1})
	case tcell.KeyRight:
		t.hold(r2.Vec{X: 1})
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'p', ' ':
			t.g.SetPaused(!t.g.Paused())
			if !t.g.Paused() {
				t.loop.Reset()
			}
		case '+', '=':
			t.g.SetStepsPerUpdate(t.g.StepsPerUpdate() + 1)
		case '-':
			t.g.SetStepsPerUpdate(t.g.StepsPerUpdate() - 1)
		case 's':
			if p, ok := t.g.Player(); ok {
				_ = t.g.Stop(p)
			}
			t.heldUntil = time.Time{}
		}
	}
	return true
}

func (t *terminal) hold(dir r2.Vec) {
	t.held = dir
	t.heldUntil = time.Now().Add(holdFor)
}
