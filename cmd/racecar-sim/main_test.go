package main

import (
	"testing"

	"github.com/banshee-data/racecar-sim/internal/config"
	"github.com/banshee-data/racecar-sim/internal/lidar"
	"github.com/banshee-data/racecar-sim/internal/lidar/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestApplyFlags_OnlySetFlagsOverride(t *testing.T) {
	fileListen := ":9000"
	cfg := &config.Config{HTTPListen: &fileListen}

	*profile = "ydlidar-x4"
	*realism = true
	*listen = ":1234"
	t.Cleanup(func() {
		*profile = ""
		*realism = false
		*listen = ""
	})

	applyFlags(cfg, map[string]bool{"profile": true, "realism": true})

	if got := cfg.GetProfile(); got != "ydlidar-x4" {
		t.Errorf("profile = %q, want ydlidar-x4", got)
	}
	if !cfg.GetRealism() {
		t.Error("realism flag was not applied")
	}
	if got := cfg.GetHTTPListen(); got != ":9000" {
		t.Errorf("listen = %q, want the file value :9000", got)
	}
}

func TestBuildScene_SensorSeesPostNotMarker(t *testing.T) {
	s := buildScene(5)

	// Straight ahead the UI marker at z=1 is ignored and the far wall is hit.
	d, ok := s.QueryRange(r3.Vec{}, r3.Vec{Z: 1}, 10, scene.IgnoreUIMask)
	if !ok || d != 5 {
		t.Errorf("forward query = (%v, %v), want (5, true)", d, ok)
	}
	if d, _ := s.QueryRange(r3.Vec{}, r3.Vec{Z: 1}, 10, lidar.LayerMask(scene.LayerUI)); d != 1 {
		t.Errorf("UI-only query = %v, want 1", d)
	}
}
