package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelplan/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "reelplan")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "reelplan.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Render.DefaultProfile != "720p" {
		t.Fatalf("unexpected default profile: %q", cfg.Render.DefaultProfile)
	}
	if cfg.Jobs.MaxConcurrent != 4 {
		t.Fatalf("expected default max concurrent 4, got %d", cfg.Jobs.MaxConcurrent)
	}
	if got := cfg.Render.ProxyLadder; len(got) != 2 || got[0] != "360p" || got[1] != "480p" {
		t.Fatalf("unexpected proxy ladder: %v", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.RenderDir, cfg.Paths.LockDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathMergesProfiles(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reelplan.toml")

	type profile struct {
		Bitrate string `toml:"bitrate"`
	}
	type payload struct {
		Render struct {
			DefaultProfile string `toml:"default_profile"`
			OverlapMS      int64  `toml:"overlap_ms"`
		} `toml:"render"`
		Profiles map[string]profile `toml:"profiles"`
		Jobs     struct {
			TenantLimits map[string]int `toml:"tenant_limits"`
		} `toml:"jobs"`
	}
	custom := payload{}
	custom.Render.DefaultProfile = "social"
	custom.Render.OverlapMS = 2000
	custom.Profiles = map[string]profile{"social": {Bitrate: "3M"}}
	custom.Jobs.TenantLimits = map[string]int{"acme": 9}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	social, ok := cfg.Profile("social")
	if !ok {
		t.Fatal("expected custom profile")
	}
	if social.Bitrate != "3M" {
		t.Fatalf("unexpected bitrate %q", social.Bitrate)
	}
	if social.Width != 1280 || social.Height != 720 || social.Codec != "libx264" {
		t.Fatalf("expected blank fields inherited from 720p, got %+v", social)
	}
	if cfg.Render.OverlapMS != 2000 {
		t.Fatalf("unexpected overlap %d", cfg.Render.OverlapMS)
	}
	if cfg.MaxConcurrentFor("acme") != 9 {
		t.Fatalf("expected tenant override, got %d", cfg.MaxConcurrentFor("acme"))
	}
	if cfg.MaxConcurrentFor("other") != 4 {
		t.Fatalf("expected default ceiling, got %d", cfg.MaxConcurrentFor("other"))
	}
}

func TestEnvOverridesMaxConcurrent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REELPLAN_MAX_CONCURRENT_JOBS", "7")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Jobs.MaxConcurrent != 7 {
		t.Fatalf("expected env override, got %d", cfg.Jobs.MaxConcurrent)
	}
}

func TestValidateRejectsOverlapLargerThanSegment(t *testing.T) {
	cfg := config.Default()
	cfg.Render.OverlapMS = cfg.Render.SegmentDurationMS
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "overlap_ms") {
		t.Fatalf("expected overlap validation error, got %v", err)
	}
}

func TestValidateRejectsUnknownDefaultProfile(t *testing.T) {
	cfg := config.Default()
	cfg.Render.DefaultProfile = "8k"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown default profile")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
