package telemetry

import (
	"log/slog"
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	// Vertex counts from ten sweeps
	vertices := []float64{64, 64, 66, 68, 70, 72, 72, 80, 96, 128}
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"no sweeps", nil, 0.5, 0},
		{"one sweep", []float64{64}, 0.9, 64},
		{"below range", vertices, -1, 64},
		{"above range", vertices, 2, 128},
		{"median", vertices, 0.5, 71},
		{"p90 interpolates", vertices, 0.9, 99.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentile(tt.sorted, tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarizeLeavesInputUnsorted(t *testing.T) {
	expanded := []float64{40, 10, 30, 20}
	mean, p10, p50, p90 := Summarize(expanded)

	if mean != 25 {
		t.Errorf("mean = %v, want 25", mean)
	}
	if math.Abs(p10-13) > 1e-9 || p50 != 25 || math.Abs(p90-37) > 1e-9 {
		t.Errorf("percentiles = %v/%v/%v, want 13/25/37", p10, p50, p90)
	}
	if expanded[0] != 40 {
		t.Error("Summarize sorted its input")
	}

	if m, a, b, c := Summarize(nil); m != 0 || a != 0 || b != 0 || c != 0 {
		t.Error("empty window should summarize to zeros")
	}
}

func TestWindowStatsLogValue(t *testing.T) {
	s := WindowStats{WindowEndTick: 300, Sweeps: 5, Casts: 400, Stuck: 1}
	attrs := map[string]slog.Value{}
	for _, a := range s.LogValue().Group() {
		attrs[a.Key] = a.Value
	}

	if got := attrs["window_end"].Int64(); got != 300 {
		t.Errorf("window_end = %d, want 300", got)
	}
	if got := attrs["casts"].Int64(); got != 400 {
		t.Errorf("casts = %d, want 400", got)
	}
	if got := attrs["stuck"].Int64(); got != 1 {
		t.Errorf("stuck = %d, want 1", got)
	}
}
