// Command tune searches visibility sweep settings with CMA-ES, trading
// polygon accuracy against rays cast per sweep on a given level.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/sightline/config"
	"github.com/pthm-cable/sightline/level"
)

// evalRow is one line of tune_log.csv.
type evalRow struct {
	Eval            int     `csv:"eval"`
	Fitness         float64 `csv:"fitness"`
	AreaError       float64 `csv:"area_error"`
	Casts           float64 `csv:"casts"`
	BaseSamples     float64 `csv:"base_samples"`
	CornerDistance  float64 `csv:"corner_distance"`
	AngleEpsilonDeg float64 `csv:"angle_epsilon_deg"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	levelPath := flag.String("level", "", "Level YAML file (empty = use config level.path)")
	stride := flag.Int("stride", 2, "Sample a viewpoint every N cells")
	castWeight := flag.Float64("cast-weight", 0.05, "Fitness weight of casts relative to the reference sweep")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Every evaluation loads the level; keep its logs out of the progress output
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	path := baseCfg.Level.Path
	if *levelPath != "" {
		path = *levelPath
	}
	lvl, err := level.Load(path)
	if err != nil {
		log.Fatalf("failed to load level: %v", err)
	}

	params := NewParamVector()
	evaluator, err := NewFitnessEvaluator(params, baseCfg, lvl, *stride, *castWeight)
	if err != nil {
		log.Fatalf("failed to build evaluator: %v", err)
	}

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sweeps already run in parallel
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	headerWritten := false

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			evalCount++

			// Log clamped values, which are the ones actually used
			clamped := params.Clamp(raw)
			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			res := evaluator.Last()
			rows := []evalRow{{
				Eval:            evalCount,
				Fitness:         fitness,
				AreaError:       res.AreaError,
				Casts:           res.Casts,
				BaseSamples:     clamped[0],
				CornerDistance:  clamped[1],
				AngleEpsilonDeg: clamped[2],
			}}
			var werr error
			if headerWritten {
				werr = gocsv.MarshalWithoutHeaders(rows, logFile)
			} else {
				werr = gocsv.Marshal(rows, logFile)
				headerWritten = true
			}
			if werr != nil {
				log.Printf("failed to write log row: %v", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			fmt.Printf("Eval %d/%d: error=%.4f casts=%.0f (best=%.4f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, res.AreaError, res.Casts, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	fmt.Printf("Tuning %d parameters on %q: %d viewpoints, reference %.0f casts/sweep, population=%d, max_evals=%d\n",
		dim, lvl.Name, evaluator.Points(), evaluator.ReferenceCasts(), popSize, *maxEvals)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}
	if bestParams == nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	if best, ok := evaluator.Best(); ok {
		fmt.Printf("Best fitness: %.4f (area error %.4f, %.0f casts)\n", best.Fitness, best.AreaError, best.Casts)
	}
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
