package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/components"
	"github.com/pthm-cable/sightline/config"
	"github.com/pthm-cable/sightline/inspector"
	"github.com/pthm-cable/sightline/level"
	"github.com/pthm-cable/sightline/systems"
	"github.com/pthm-cable/sightline/telemetry"
)

var (
	// ErrUnknownEntity marks an entity that is not alive in the world.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrNotMover marks an operation that needs a mover on a prop.
	ErrNotMover = errors.New("entity is not a mover")
)

// Game holds the complete engine state: the ECS world, the spatial core
// built over the level grid, and telemetry.
type Game struct {
	cfg   *config.Config
	level *level.Level
	world *ecs.World

	// Entity mappers by role
	propMapper *ecs.Map4[
		components.Position,
		components.Extent,
		components.Identity,
		components.Attributes,
	]
	moverMapper *ecs.Map6[
		components.Position,
		components.Extent,
		components.Identity,
		components.Attributes,
		components.Mover,
		components.Intent,
	]
	viewerMapper *ecs.Map7[
		components.Position,
		components.Extent,
		components.Identity,
		components.Attributes,
		components.Mover,
		components.Intent,
		components.Viewer,
	]

	entityFilter *ecs.Filter4[
		components.Position,
		components.Extent,
		components.Identity,
		components.Attributes,
	]
	moverFilter *ecs.Filter3[
		components.Position,
		components.Mover,
		components.Intent,
	]

	// Individual component mappers for lookups
	posMap    *ecs.Map1[components.Position]
	extMap    *ecs.Map1[components.Extent]
	idMap     *ecs.Map1[components.Identity]
	attrMap   *ecs.Map1[components.Attributes]
	moverMap  *ecs.Map1[components.Mover]
	intentMap *ecs.Map1[components.Intent]

	names   map[string]ecs.Entity
	skipped map[ecs.Entity]systems.AABB // Props left out of the index for invalid bounds

	// Spatial core
	grid    *systems.WalkabilityGrid
	index   *systems.SpatialIndex
	vis     *systems.VisibilityEngine
	planner *systems.PathPlanner
	movers  *systems.MovementController
	fog     *systems.FogOfWar

	player    ecs.Entity
	hasPlayer bool

	// Per-tick scratch
	pending     []pendingStep
	swept       []systems.MoverHandle
	boundsDirty bool

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	snapshots     chan<- inspector.Snapshot

	// State
	tick           int32
	paused         bool
	stepsPerUpdate int
}

// pendingStep is a displacement chosen in the intents phase.
type pendingStep struct {
	entity  ecs.Entity
	handle  systems.MoverHandle
	desired r2.Vec
}

// NewGame builds the spatial core over lvl and spawns its entities.
func NewGame(cfg *config.Config, lvl *level.Level, opts Options) (*Game, error) {
	world := ecs.NewWorld()

	g := &Game{
		cfg:   cfg,
		level: lvl,
		world: world,
		grid:  lvl.Grid,
		names: make(map[string]ecs.Entity, len(lvl.Entities)),

		skipped: make(map[ecs.Entity]systems.AABB),

		propMapper: ecs.NewMap4[
			components.Position,
			components.Extent,
			components.Identity,
			components.Attributes,
		](world),
		moverMapper: ecs.NewMap6[
			components.Position,
			components.Extent,
			components.Identity,
			components.Attributes,
			components.Mover,
			components.Intent,
		](world),
		viewerMapper: ecs.NewMap7[
			components.Position,
			components.Extent,
			components.Identity,
			components.Attributes,
			components.Mover,
			components.Intent,
			components.Viewer,
		](world),
		entityFilter: ecs.NewFilter4[
			components.Position,
			components.Extent,
			components.Identity,
			components.Attributes,
		](world),
		moverFilter: ecs.NewFilter3[
			components.Position,
			components.Mover,
			components.Intent,
		](world),

		posMap:    ecs.NewMap1[components.Position](world),
		extMap:    ecs.NewMap1[components.Extent](world),
		idMap:     ecs.NewMap1[components.Identity](world),
		attrMap:   ecs.NewMap1[components.Attributes](world),
		moverMap:  ecs.NewMap1[components.Mover](world),
		intentMap: ecs.NewMap1[components.Intent](world),

		logStats:       opts.LogStats,
		statsCallback:  opts.StatsCallback,
		snapshots:      opts.Snapshots,
		stepsPerUpdate: max(opts.StepsPerUpdate, 1),
	}

	g.index = systems.NewSpatialIndex(g.resolveAttr)
	g.vis = systems.NewVisibilityEngine(g.grid, g.index, systems.VisibilityParams{
		BaseSamples:    cfg.Visibility.BaseSamples,
		CornerDistance: cfg.Visibility.CornerDistance,
		AngleEpsilon:   cfg.Derived.AngleEpsilon,
		MaxDistance:    cfg.Visibility.MaxDistance,
		MaxSamples:     cfg.Visibility.MaxSamples,
	})
	g.planner = systems.NewPathPlanner(g.grid, systems.PlannerParams{
		MaxExpansions: cfg.Pathfinding.MaxExpansions,
		Smooth:        cfg.Pathfinding.Smooth,
	})
	g.movers = systems.NewMovementController(g.grid, g.index, g.vis, systems.MovementParams{
		HitThreshold: cfg.Movement.HitThreshold,
	})
	g.fog = systems.NewFogOfWar(g.grid)

	windowSec := opts.StatsWindowSec
	if windowSec <= 0 {
		windowSec = cfg.Telemetry.StatsWindow
	}
	g.collector = telemetry.NewCollector(windowSec, cfg.Derived.DT)
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)

	if opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(opts.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(cfg); err != nil {
			om.Close()
			return nil, fmt.Errorf("writing config snapshot: %w", err)
		}
		g.outputManager = om
	}

	for _, e := range lvl.Entities {
		if _, err := g.spawn(e); err != nil {
			g.Unload()
			return nil, fmt.Errorf("spawning %q: %w", e.Name, err)
		}
	}

	// Props and viewers are in the index; give viewers their first polygon
	g.syncBounds()
	g.refreshViewers()
	g.revealFog()

	slog.Info("level loaded",
		"level", lvl.Name,
		"grid", fmt.Sprintf("%dx%d", g.grid.Width(), g.grid.Height()),
		"entities", len(lvl.Entities),
		"baked", len(lvl.Baked),
		"movers", g.movers.Len(),
	)
	return g, nil
}

// resolveAttr reads entity attributes for the spatial index.
func (g *Game) resolveAttr(e ecs.Entity, name string) (string, bool) {
	if !g.world.Alive(e) {
		return "", false
	}
	return g.attrMap.Get(e).Get(name)
}

// Update runs StepsPerUpdate ticks unless paused. Used by headless runs.
func (g *Game) Update() {
	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step()
	}
}

// Unload flushes and closes telemetry output.
func (g *Game) Unload() {
	if g.outputManager != nil {
		if err := g.outputManager.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
		g.outputManager = nil
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 { return g.tick }

// Paused reports whether Update is suspended.
func (g *Game) Paused() bool { return g.paused }

// SetPaused suspends or resumes Update.
func (g *Game) SetPaused(p bool) { g.paused = p }

// StepsPerUpdate returns the ticks run per Update call.
func (g *Game) StepsPerUpdate() int { return g.stepsPerUpdate }

// SetStepsPerUpdate sets the ticks run per Update call, clamped to 1..10.
func (g *Game) SetStepsPerUpdate(n int) { g.stepsPerUpdate = min(max(n, 1), 10) }

// Level returns the loaded level.
func (g *Game) Level() *level.Level { return g.level }

// Grid returns the walkability grid.
func (g *Game) Grid() *systems.WalkabilityGrid { return g.grid }

// Index returns the spatial index. Callers must not modify it.
func (g *Game) Index() *systems.SpatialIndex { return g.index }

// Visibility returns the visibility engine.
func (g *Game) Visibility() *systems.VisibilityEngine { return g.vis }

// Fog returns the player's fog of war.
func (g *Game) Fog() *systems.FogOfWar { return g.fog }

// Collector returns the telemetry collector.
func (g *Game) Collector() *telemetry.Collector { return g.collector }

// PerfCollector returns the frame timing collector.
func (g *Game) PerfCollector() *telemetry.PerfCollector { return g.perfCollector }

// Player returns the player entity.
func (g *Game) Player() (ecs.Entity, bool) {
	if !g.hasPlayer || !g.world.Alive(g.player) {
		return ecs.Entity{}, false
	}
	return g.player, true
}

// Lookup returns the entity spawned under name.
func (g *Game) Lookup(name string) (ecs.Entity, bool) {
	e, ok := g.names[name]
	if !ok || !g.world.Alive(e) {
		return ecs.Entity{}, false
	}
	return e, true
}

// Position returns the box centre of e.
func (g *Game) Position(e ecs.Entity) (r2.Vec, error) {
	if !g.world.Alive(e) {
		return r2.Vec{}, fmt.Errorf("entity %v: %w", e, ErrUnknownEntity)
	}
	return g.posMap.Get(e).Vec(), nil
}

// Bounds returns the world box of e.
func (g *Game) Bounds(e ecs.Entity) (systems.AABB, error) {
	if !g.world.Alive(e) {
		return systems.AABB{}, fmt.Errorf("entity %v: %w", e, ErrUnknownEntity)
	}
	return systems.BoxAround(g.posMap.Get(e).Vec(), g.extMap.Get(e).Vec()), nil
}

// Identity returns the name and kind of e.
func (g *Game) Identity(e ecs.Entity) (components.Identity, error) {
	if !g.world.Alive(e) {
		return components.Identity{}, fmt.Errorf("entity %v: %w", e, ErrUnknownEntity)
	}
	return *g.idMap.Get(e), nil
}

// EachEntity calls fn for every entity with its box and identity.
func (g *Game) EachEntity(fn func(e ecs.Entity, box systems.AABB, id components.Identity)) {
	query := g.entityFilter.Query()
	for query.Next() {
		pos, ext, id, _ := query.Get()
		fn(query.Entity(), systems.BoxAround(pos.Vec(), ext.Vec()), *id)
	}
}

// EachMover calls fn for every mover with its controller state and intent.
func (g *Game) EachMover(fn func(e ecs.Entity, m *systems.Mover, in *components.Intent)) {
	query := g.moverFilter.Query()
	for query.Next() {
		_, mc, in := query.Get()
		m, err := g.movers.Mover(mc.Handle)
		if err != nil {
			continue
		}
		fn(query.Entity(), m, in)
	}
}

// Components returns pointers to the inspectable components of e. Callers
// must treat them as read-only.
func (g *Game) Components(e ecs.Entity) ([]any, error) {
	if !g.world.Alive(e) {
		return nil, fmt.Errorf("entity %v: %w", e, ErrUnknownEntity)
	}
	parts := []any{g.idMap.Get(e), g.posMap.Get(e), g.extMap.Get(e)}
	if g.isMover(e) {
		parts = append(parts, g.moverMap.Get(e), g.intentMap.Get(e))
	}
	return parts, nil
}

// Fields returns the inspectable component fields of e.
func (g *Game) Fields(e ecs.Entity) (map[string]string, error) {
	parts, err := g.Components(e)
	if err != nil {
		return nil, err
	}
	return inspector.FieldMap(parts...), nil
}

// isMover reports whether e was spawned with Mover and Intent components.
func (g *Game) isMover(e ecs.Entity) bool {
	return g.idMap.Get(e).Kind != components.KindProp
}

// moverOf returns the mover components of a live mover.
func (g *Game) moverOf(e ecs.Entity) (*components.Mover, *components.Intent, error) {
	if !g.world.Alive(e) {
		return nil, nil, fmt.Errorf("entity %v: %w", e, ErrUnknownEntity)
	}
	if !g.isMover(e) {
		return nil, nil, fmt.Errorf("entity %v: %w", e, ErrNotMover)
	}
	return g.moverMap.Get(e), g.intentMap.Get(e), nil
}
