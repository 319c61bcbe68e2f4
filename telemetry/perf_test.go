package telemetry

import (
	"testing"
	"time"
)

// runTicks times n ticks where the visibility phase sleeps much longer than bounds.
func runTicks(pc *PerfCollector, n int) {
	for i := 0; i < n; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseBounds)
		time.Sleep(20 * time.Microsecond)
		pc.StartPhase(PhaseVisibility)
		time.Sleep(400 * time.Microsecond)
		pc.EndTick()
	}
}

func TestPerfCollectorPhases(t *testing.T) {
	pc := NewPerfCollector(10)
	runTicks(pc, 5)
	stats := pc.Stats()

	if stats.AvgTickDuration < 400*time.Microsecond {
		t.Errorf("avg tick = %v, want at least 400us", stats.AvgTickDuration)
	}
	if stats.MinTickDuration > stats.AvgTickDuration || stats.MaxTickDuration < stats.AvgTickDuration {
		t.Errorf("min/avg/max out of order: %v %v %v", stats.MinTickDuration, stats.AvgTickDuration, stats.MaxTickDuration)
	}
	if stats.PhasePct[PhaseVisibility] <= stats.PhasePct[PhaseBounds] {
		t.Errorf("visibility %.1f%% should outweigh bounds %.1f%%",
			stats.PhasePct[PhaseVisibility], stats.PhasePct[PhaseBounds])
	}
	if _, ok := stats.PhaseAvg[PhaseMovement]; ok {
		t.Error("untimed movement phase reported")
	}
}

func TestPerfCollectorWindowWraps(t *testing.T) {
	pc := NewPerfCollector(3)
	runTicks(pc, 7)

	if pc.sampleCount != 3 {
		t.Errorf("samples = %d, want window size 3", pc.sampleCount)
	}
	if stats := pc.Stats(); stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	if stats.AvgTickDuration != 0 || stats.FPS != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("phase maps should be non-nil")
	}
}

func TestPerfCollectorFrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)
	pc.RecordFrame()
	time.Sleep(20 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 20*time.Millisecond {
		t.Errorf("frame duration = %v, want at least 20ms", stats.FrameDuration)
	}
	if stats.FPS <= 0 || stats.FPS > 50 {
		t.Errorf("FPS = %v, want in (0, 50]", stats.FPS)
	}
}

func TestPerfStatsLogValueOrdersPhases(t *testing.T) {
	stats := PerfStats{
		PhasePct: map[string]float64{PhaseVisibility: 70, PhaseBounds: 5},
	}
	var keys []string
	for _, a := range stats.LogValue().Group() {
		keys = append(keys, a.Key)
	}
	// Four timing attrs, no fps, then phases in step order
	want := []string{"avg_tick_us", "min_tick_us", "max_tick_us", "ticks_per_sec", "bounds_pct", "visibility_pct"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	stats := PerfStats{
		AvgTickDuration: 2 * time.Millisecond,
		PhasePct: map[string]float64{
			PhaseBounds:     10,
			PhaseVisibility: 60,
		},
	}

	row := stats.ToCSV(120)
	if row.WindowEnd != 120 || row.AvgTickUS != 2000 {
		t.Errorf("ToCSV = %+v, want window_end 120 and avg 2000us", row)
	}
	if row.BoundsPct != 10 || row.VisibilityPct != 60 || row.MovementPct != 0 {
		t.Errorf("phase columns = %v/%v/%v, want 10/60/0", row.BoundsPct, row.VisibilityPct, row.MovementPct)
	}
}
