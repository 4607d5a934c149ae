package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	RenderDir   string `toml:"render_dir"`
	CaptionsDir string `toml:"captions_dir"`
	LockDir     string `toml:"lock_dir"`
	LogDir      string `toml:"log_dir"`
}

// Render contains timeline compilation settings.
type Render struct {
	FFmpegBinary      string   `toml:"ffmpeg_binary"`
	DefaultProfile    string   `toml:"default_profile"`
	SegmentDurationMS int64    `toml:"segment_duration_ms"`
	OverlapMS         int64    `toml:"overlap_ms"`
	AudioFadeMS       int64    `toml:"audio_fade_ms"`
	DuckingFadeMS     int64    `toml:"ducking_fade_ms"`
	DuckingLevelDB    float64  `toml:"ducking_level_db"`
	LoudnessTarget    float64  `toml:"loudness_target"`
	ProxyLadder       []string `toml:"proxy_ladder"`
	OpticalFlow       bool     `toml:"optical_flow"`
	// DefaultTimeout and ChunkTimeout are compile-phase deadlines in seconds.
	// The compiler does not enforce them; callers composing compile and
	// execution phases do.
	DefaultTimeout int `toml:"default_timeout"`
	ChunkTimeout   int `toml:"chunk_timeout"`
}

// Profile describes an output encoding profile.
type Profile struct {
	Width            int      `toml:"width"`
	Height           int      `toml:"height"`
	FPS              float64  `toml:"fps"`
	PixelFormat      string   `toml:"pixel_format"`
	Codec            string   `toml:"codec"`
	Bitrate          string   `toml:"bitrate"`
	Preset           string   `toml:"preset"`
	AudioCodec       string   `toml:"audio_codec"`
	AudioBitrate     string   `toml:"audio_bitrate"`
	HardwareEncoders []string `toml:"hardware_encoders"`
}

// Jobs contains render job admission settings.
type Jobs struct {
	MaxConcurrent int            `toml:"max_concurrent"`
	TenantLimits  map[string]int `toml:"tenant_limits"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelplan.
//
// Configuration sections by subsystem:
//   - Paths: storage, render output, caption cache, and lock directories
//   - Render: compiler defaults (segmenting, ducking, loudness, proxies)
//   - Profiles: named encoding profiles keyed by name (720p, 1080p, ...)
//   - Jobs: admission ceilings per tenant/env scope
//   - Logging: log format and level
type Config struct {
	Paths    Paths              `toml:"paths"`
	Render   Render             `toml:"render"`
	Profiles map[string]Profile `toml:"profiles"`
	Jobs     Jobs               `toml:"jobs"`
	Logging  Logging            `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelplan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelplan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories reelplan writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.RenderDir, c.Paths.CaptionsDir, c.Paths.LockDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location for timeline, media, and job state.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "reelplan.db")
}

// FFmpegBinary returns the ffmpeg executable referenced in compiled plans.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used by dependency checks.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// Profile returns the named encoding profile.
func (c *Config) Profile(name string) (Profile, bool) {
	profile, ok := c.Profiles[strings.TrimSpace(name)]
	return profile, ok
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxConcurrentFor returns the admission ceiling for a tenant.
func (c *Config) MaxConcurrentFor(tenantID string) int {
	if limit, ok := c.Jobs.TenantLimits[strings.TrimSpace(tenantID)]; ok && limit > 0 {
		return limit
	}
	if c.Jobs.MaxConcurrent > 0 {
		return c.Jobs.MaxConcurrent
	}
	return defaultMaxConcurrent
}

// DefaultTimeout returns the whole-render compile-phase deadline.
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Render.DefaultTimeout) * time.Second
}

// ChunkTimeout returns the per-segment compile-phase deadline.
func (c *Config) ChunkTimeout() time.Duration {
	return time.Duration(c.Render.ChunkTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
