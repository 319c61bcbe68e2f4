package main

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sightline/config"
	"github.com/pthm-cable/sightline/game"
	"github.com/pthm-cable/sightline/level"
	"github.com/pthm-cable/sightline/systems"
)

// Reference sweep settings. Dense enough that refinement rarely matters.
const (
	refBaseSamples    = 1024
	refMaxSamples     = 8192
	refCornerDistance = 0.5
	refAngleEpsilon   = 0.005
)

// Result is the outcome of one evaluation.
type Result struct {
	AreaError float64 // Mean relative area error against the reference sweep
	Casts     float64 // Mean rays cast per sweep
	Fitness   float64
}

// FitnessEvaluator sweeps a fixed set of viewpoints with candidate visibility
// settings and scores them against a dense reference sweep.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	level      *level.Level
	castWeight float64

	points   []r2.Vec
	refArea  []float64
	refCasts float64

	mu         sync.Mutex
	last       Result
	bestResult Result
	bestSet    bool
}

// NewFitnessEvaluator samples a viewpoint every stride cells and runs the
// reference sweep once.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, lvl *level.Level, stride int, castWeight float64) (*FitnessEvaluator, error) {
	fe := &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		level:      lvl,
		castWeight: castWeight,
		points:     viewpoints(lvl.Grid, stride),
	}
	if len(fe.points) == 0 {
		return nil, fmt.Errorf("level %q has no walkable viewpoints at stride %d", lvl.Name, stride)
	}

	ref := fe.copyConfig()
	ref.Visibility.BaseSamples = refBaseSamples
	ref.Visibility.MaxSamples = refMaxSamples
	ref.Visibility.CornerDistance = refCornerDistance
	ref.Visibility.AngleEpsilonDeg = refAngleEpsilon
	ref.Derived.AngleEpsilon = refAngleEpsilon * math.Pi / 180

	areas, casts, err := fe.sweep(ref)
	if err != nil {
		return nil, fmt.Errorf("reference sweep: %w", err)
	}
	fe.refArea = areas
	fe.refCasts = mean(casts)
	return fe, nil
}

// Points returns the number of viewpoints per evaluation.
func (fe *FitnessEvaluator) Points() int { return len(fe.points) }

// ReferenceCasts returns the mean casts of the reference sweep.
func (fe *FitnessEvaluator) ReferenceCasts() float64 { return fe.refCasts }

// Last returns the result of the most recent Evaluate call.
func (fe *FitnessEvaluator) Last() Result {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Best returns the lowest-fitness result seen so far.
func (fe *FitnessEvaluator) Best() (Result, bool) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestResult, fe.bestSet
}

// Evaluate computes fitness for raw parameter values (lower = better):
// mean relative area error plus castWeight times casts relative to the reference.
func (fe *FitnessEvaluator) Evaluate(raw []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, raw)

	res := Result{AreaError: math.Inf(1), Fitness: math.Inf(1)}
	areas, casts, err := fe.sweep(cfg)
	if err == nil {
		var errSum float64
		for i, a := range areas {
			ref := fe.refArea[i]
			if ref <= 0 {
				continue
			}
			errSum += math.Abs(a-ref) / ref
		}
		res.AreaError = errSum / float64(len(areas))
		res.Casts = mean(casts)
		res.Fitness = res.AreaError + fe.castWeight*res.Casts/fe.refCasts
	}

	fe.mu.Lock()
	fe.last = res
	if !fe.bestSet || res.Fitness < fe.bestResult.Fitness {
		fe.bestResult = res
		fe.bestSet = true
	}
	fe.mu.Unlock()
	return res.Fitness
}

// sweep builds the level with cfg and computes a polygon at every viewpoint.
// Visibility queries never modify the world, so viewpoints run in parallel.
func (fe *FitnessEvaluator) sweep(cfg *config.Config) (areas, casts []float64, err error) {
	g, err := game.NewGame(cfg, fe.level, game.DefaultOptions())
	if err != nil {
		return nil, nil, err
	}
	defer g.Unload()

	areas = make([]float64, len(fe.points))
	casts = make([]float64, len(fe.points))
	vis := g.Visibility()

	workers := min(runtime.GOMAXPROCS(0), len(fe.points))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(fe.points); i += workers {
				poly := vis.ComputeVisibilityPolygon(fe.points[i])
				areas[i] = poly.Area()
				casts[i] = float64(poly.Casts)
			}
		}(w)
	}
	wg.Wait()
	return areas, casts, nil
}

func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// viewpoints returns the centres of walkable cells on a stride lattice.
func viewpoints(grid *systems.WalkabilityGrid, stride int) []r2.Vec {
	stride = max(stride, 1)
	var pts []r2.Vec
	for cy := stride / 2; cy < grid.Height(); cy += stride {
		for cx := stride / 2; cx < grid.Width(); cx += stride {
			if grid.Walkable(cx, cy) {
				pts = append(pts, grid.CellCenter(cx, cy))
			}
		}
	}
	return pts
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
