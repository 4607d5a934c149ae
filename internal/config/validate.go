package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateProfiles(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRender() error {
	if err := ensurePositiveMap(map[string]int64{
		"render.segment_duration_ms": c.Render.SegmentDurationMS,
		"render.default_timeout":     int64(c.Render.DefaultTimeout),
		"render.chunk_timeout":       int64(c.Render.ChunkTimeout),
	}); err != nil {
		return err
	}
	if c.Render.OverlapMS < 0 {
		return errors.New("render.overlap_ms must be >= 0")
	}
	if c.Render.OverlapMS >= c.Render.SegmentDurationMS {
		return errors.New("render.overlap_ms must be smaller than render.segment_duration_ms")
	}
	if c.Render.AudioFadeMS < 0 || c.Render.DuckingFadeMS < 0 {
		return errors.New("render.audio_fade_ms and render.ducking_fade_ms must be >= 0")
	}
	if c.Render.DuckingLevelDB > 0 {
		return errors.New("render.ducking_level_db must be <= 0")
	}
	if c.Render.LoudnessTarget < -70 || c.Render.LoudnessTarget > -5 {
		return errors.New("render.loudness_target must be between -70 and -5 LUFS")
	}
	if c.Render.ChunkTimeout > c.Render.DefaultTimeout {
		return errors.New("render.chunk_timeout must not exceed render.default_timeout")
	}
	return nil
}

func (c *Config) validateProfiles() error {
	if len(c.Profiles) == 0 {
		return errors.New("at least one [profiles.<name>] entry is required")
	}
	if _, ok := c.Profiles[c.Render.DefaultProfile]; !ok {
		return fmt.Errorf("render.default_profile %q does not name a configured profile", c.Render.DefaultProfile)
	}
	for _, name := range c.ProfileNames() {
		profile := c.Profiles[name]
		if profile.Width%2 != 0 || profile.Height%2 != 0 {
			return fmt.Errorf("profiles.%s: width and height must be even", name)
		}
		if profile.FPS <= 0 || profile.FPS > 240 {
			return fmt.Errorf("profiles.%s.fps must be within (0, 240]", name)
		}
		if strings.TrimSpace(profile.Codec) == "" {
			return fmt.Errorf("profiles.%s.codec must be set", name)
		}
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.MaxConcurrent < 1 {
		return errors.New("jobs.max_concurrent must be >= 1")
	}
	tenants := make([]string, 0, len(c.Jobs.TenantLimits))
	for tenant := range c.Jobs.TenantLimits {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)
	for _, tenant := range tenants {
		if c.Jobs.TenantLimits[tenant] < 1 {
			return fmt.Errorf("jobs.tenant_limits.%s must be >= 1", tenant)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int64) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
