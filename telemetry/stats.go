package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds engine statistics aggregated over one window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// State at window end
	Entities    int `csv:"entities"`
	Movers      int `csv:"movers"`
	IndexHeight int `csv:"index_height"`
	FogVisible  int `csv:"fog_visible"`
	FogExplored int `csv:"fog_explored"`

	// Visibility sweeps
	Sweeps       int     `csv:"sweeps"`
	Casts        int     `csv:"casts"`
	Refinements  int     `csv:"refinements"`
	VerticesMean float64 `csv:"vertices_mean"`
	VerticesP50  float64 `csv:"vertices_p50"`
	VerticesP90  float64 `csv:"vertices_p90"`
	Faded        int     `csv:"faded"`

	// Path searches
	Searches     int     `csv:"searches"`
	Fallbacks    int     `csv:"fallbacks"`
	Unreachable  int     `csv:"unreachable"`
	ExpandedMean float64 `csv:"expanded_mean"`
	ExpandedP90  float64 `csv:"expanded_p90"`

	// Movement
	Steps   int `csv:"steps"`
	Slides  int `csv:"slides"`
	Stuck   int `csv:"stuck"`
	Escapes int `csv:"escapes"`
	Removed int `csv:"removed"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summarize returns the mean and the 10th, 50th and 90th percentiles of values.
func Summarize(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	return mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("entities", s.Entities),
		slog.Int("movers", s.Movers),
		slog.Int("index_height", s.IndexHeight),
		slog.Int("fog_visible", s.FogVisible),
		slog.Int("fog_explored", s.FogExplored),
		slog.Int("sweeps", s.Sweeps),
		slog.Int("casts", s.Casts),
		slog.Int("refinements", s.Refinements),
		slog.Float64("vertices_mean", s.VerticesMean),
		slog.Float64("vertices_p50", s.VerticesP50),
		slog.Float64("vertices_p90", s.VerticesP90),
		slog.Int("faded", s.Faded),
		slog.Int("searches", s.Searches),
		slog.Int("fallbacks", s.Fallbacks),
		slog.Int("unreachable", s.Unreachable),
		slog.Float64("expanded_mean", s.ExpandedMean),
		slog.Float64("expanded_p90", s.ExpandedP90),
		slog.Int("steps", s.Steps),
		slog.Int("slides", s.Slides),
		slog.Int("stuck", s.Stuck),
		slog.Int("escapes", s.Escapes),
		slog.Int("removed", s.Removed),
	)
}

// LogStats logs the window at Info.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
