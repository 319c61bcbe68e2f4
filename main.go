package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/sightline/config"
	"github.com/pthm-cable/sightline/game"
	"github.com/pthm-cable/sightline/inspector"
	"github.com/pthm-cable/sightline/level"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	levelPath := flag.String("level", "", "Path to a level YAML file (empty = use config level.path)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	inspectAddr := flag.String("inspect-addr", "", "Serve the websocket inspector on this address (empty = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	path := cfg.Level.Path
	if *levelPath != "" {
		path = *levelPath
	}
	lvl, err := level.Load(path)
	if err != nil {
		slog.Error("failed to load level", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build game options
	opts := game.DefaultOptions()
	opts.LogStats = *logStats
	opts.StatsWindowSec = *statsWindow
	opts.OutputDir = *outputDir
	opts.StepsPerUpdate = *stepsPerUpdate

	addr := cfg.Inspector.Addr
	if *inspectAddr != "" {
		addr = *inspectAddr
	}
	if addr != "" {
		snapshots := make(chan inspector.Snapshot, 1)
		opts.Snapshots = snapshots
		startInspector(ctx, addr, cfg.Inspector.Buffer, snapshots)
	}

	if *headless {
		g, err := game.NewGame(cfg, lvl, opts)
		if err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}
		defer g.Unload()

		slog.Info("starting headless simulation",
			"level", lvl.Name,
			"stats_window", *statsWindow,
			"max_ticks", *maxTicks,
			"steps_per_update", *stepsPerUpdate,
		)
		runHeadless(ctx, g, *maxTicks)
		return
	}

	if err := runGraphical(ctx, cfg, lvl, opts, *maxTicks); err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
}

// runHeadless steps the game as fast as possible until max ticks or a signal.
func runHeadless(ctx context.Context, g *game.Game, maxTicks int) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "tick", g.Tick())
			return
		default:
		}

		g.Update()

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return
		}
	}
}

// startInspector broadcasts game snapshots to websocket clients until ctx is done.
func startInspector(ctx context.Context, addr string, buffer int, snapshots <-chan inspector.Snapshot) {
	hub := inspector.NewHub(buffer)
	go hub.Run(ctx, snapshots)

	srv := inspector.NewServer(hub)
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			slog.Error("inspector stopped", "error", err)
		}
	}()
}
