package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestLoadDefaults verifies the embedded defaults parse and derive.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}

	if cfg.Visibility.BaseSamples != 64 {
		t.Errorf("BaseSamples = %d, want 64", cfg.Visibility.BaseSamples)
	}
	if cfg.Visibility.CornerDistance != 16 {
		t.Errorf("CornerDistance = %v, want 16", cfg.Visibility.CornerDistance)
	}
	if cfg.Movement.HitThreshold != 6 {
		t.Errorf("HitThreshold = %v, want 6", cfg.Movement.HitThreshold)
	}
	if !cfg.Pathfinding.AllowDiagonals || !cfg.Pathfinding.FallbackToClosest {
		t.Error("Expected diagonals and fallback enabled by default")
	}

	wantEps := 0.25 * math.Pi / 180
	if math.Abs(cfg.Derived.AngleEpsilon-wantEps) > 1e-12 {
		t.Errorf("AngleEpsilon = %v, want %v", cfg.Derived.AngleEpsilon, wantEps)
	}
	if math.Abs(cfg.Derived.DT-1.0/60) > 1e-12 {
		t.Errorf("DT = %v, want %v", cfg.Derived.DT, 1.0/60)
	}
}

// TestLoadOverridesMerge verifies a user file only overrides the keys it names.
func TestLoadOverridesMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("visibility:\n  base_samples: 32\npathfinding:\n  allow_diagonals: false\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Visibility.BaseSamples != 32 {
		t.Errorf("BaseSamples = %d, want 32", cfg.Visibility.BaseSamples)
	}
	if cfg.Visibility.CornerDistance != 16 {
		t.Errorf("CornerDistance = %v, want default 16", cfg.Visibility.CornerDistance)
	}
	if cfg.Pathfinding.AllowDiagonals {
		t.Error("AllowDiagonals should be overridden to false")
	}
	if !cfg.Pathfinding.FallbackToClosest {
		t.Error("FallbackToClosest should keep its default")
	}
}

// TestLoadRejectsInvalid verifies validation errors surface from Load.
func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero tick rate", "sim:\n  tick_rate: 0\n"},
		{"too few samples", "visibility:\n  base_samples: 2\n"},
		{"negative threshold", "movement:\n  hit_threshold: -1\n"},
		{"malformed", "visibility: [1, 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Load(%q) succeeded, want error", tt.yaml)
			}
		})
	}
}

// TestWriteYAMLRoundTrip verifies a written config loads back with the same values.
func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Movement.DefaultSpeed = 42

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Movement.DefaultSpeed != 42 {
		t.Errorf("DefaultSpeed = %v, want 42", loaded.Movement.DefaultSpeed)
	}
}

// TestCfgPanicsBeforeInit verifies Cfg guards against use before Init.
func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("Cfg() did not panic before Init")
		}
	}()
	Cfg()
}
