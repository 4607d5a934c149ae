package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeProfiles()
	if err := c.normalizeJobs(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.render_dir", &c.Paths.RenderDir, defaultRenderDir},
		{"paths.captions_dir", &c.Paths.CaptionsDir, defaultCaptionsDir},
		{"paths.lock_dir", &c.Paths.LockDir, defaultLockDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeRender() {
	if value, ok := os.LookupEnv("REELPLAN_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Render.FFmpegBinary = strings.TrimSpace(value)
	}
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.DefaultProfile = strings.TrimSpace(c.Render.DefaultProfile)
	if c.Render.DefaultProfile == "" {
		c.Render.DefaultProfile = defaultProfileName
	}
	ladder := make([]string, 0, len(c.Render.ProxyLadder))
	for _, tier := range c.Render.ProxyLadder {
		if tier = strings.ToLower(strings.TrimSpace(tier)); tier != "" {
			ladder = append(ladder, tier)
		}
	}
	c.Render.ProxyLadder = ladder
}

// normalizeProfiles fills blank profile fields from the built-in profile of
// the same name, or from the default profile for custom names.
func (c *Config) normalizeProfiles() {
	builtin := DefaultProfiles()
	if c.Profiles == nil {
		c.Profiles = builtin
		return
	}
	for name, profile := range c.Profiles {
		base, ok := builtin[name]
		if !ok {
			base = builtin[defaultProfileName]
		}
		if profile.Width <= 0 || profile.Height <= 0 {
			profile.Width, profile.Height = base.Width, base.Height
		}
		if profile.FPS <= 0 {
			profile.FPS = base.FPS
		}
		profile.PixelFormat = fallbackString(profile.PixelFormat, base.PixelFormat)
		profile.Codec = fallbackString(profile.Codec, base.Codec)
		profile.Bitrate = fallbackString(profile.Bitrate, base.Bitrate)
		profile.Preset = fallbackString(profile.Preset, base.Preset)
		profile.AudioCodec = fallbackString(profile.AudioCodec, base.AudioCodec)
		profile.AudioBitrate = fallbackString(profile.AudioBitrate, base.AudioBitrate)
		if profile.HardwareEncoders == nil {
			profile.HardwareEncoders = append([]string(nil), base.HardwareEncoders...)
		}
		c.Profiles[name] = profile
	}
}

func (c *Config) normalizeJobs() error {
	if value, ok := os.LookupEnv("REELPLAN_MAX_CONCURRENT_JOBS"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("REELPLAN_MAX_CONCURRENT_JOBS: %w", err)
		}
		c.Jobs.MaxConcurrent = parsed
	}
	if c.Jobs.MaxConcurrent == 0 {
		c.Jobs.MaxConcurrent = defaultMaxConcurrent
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func fallbackString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
