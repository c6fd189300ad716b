package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DedupWindowMinutes != 10 {
		t.Fatalf("expected default dedup window, got %d", cfg.DedupWindowMinutes)
	}
	if cfg.DedupWindow() != 10*time.Minute {
		t.Fatalf("unexpected DedupWindow: %v", cfg.DedupWindow())
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentslack.yaml")
	contents := []byte(`
dedup_window_minutes: 5
session_retention_hours: 48
semantic:
  enabled: true
  default_profile: recent
default_channels:
  global:
    - name: announcements
      description: broadcast only
`)
	if err := os.WriteFile(path, contents, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DedupWindowMinutes != 5 {
		t.Fatalf("expected 5, got %d", cfg.DedupWindowMinutes)
	}
	if cfg.SessionRetention() != 48*time.Hour {
		t.Fatalf("unexpected SessionRetention: %v", cfg.SessionRetention())
	}
	if !cfg.Semantic.Enabled || cfg.Semantic.DefaultProfile != "recent" {
		t.Fatalf("unexpected semantic config: %+v", cfg.Semantic)
	}
	if len(cfg.DefaultChannels.Global) != 1 || cfg.DefaultChannels.Global[0].Name != "announcements" {
		t.Fatalf("unexpected default channels: %+v", cfg.DefaultChannels.Global)
	}
}
