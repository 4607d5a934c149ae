package config

const (
	defaultDataDir           = "~/.local/share/reelplan"
	defaultRenderDir         = "~/.local/share/reelplan/renders"
	defaultCaptionsDir       = "~/.cache/reelplan/captions"
	defaultLockDir           = "~/.local/share/reelplan/locks"
	defaultLogDir            = "~/.local/share/reelplan/logs"
	defaultFFmpegBinary      = "ffmpeg"
	defaultProfileName       = "720p"
	defaultSegmentDurationMS = 60_000
	defaultOverlapMS         = 1_000
	defaultAudioFadeMS       = 50
	defaultDuckingFadeMS     = 250
	defaultDuckingLevelDB    = -12.0
	defaultLoudnessTarget    = -16.0
	defaultTimeoutSeconds    = 1800
	defaultChunkTimeout      = 600
	defaultMaxConcurrent     = 4
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

var defaultHardwareH264 = []string{"h264_nvenc", "h264_qsv", "h264_videotoolbox", "h264_vaapi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			RenderDir:   defaultRenderDir,
			CaptionsDir: defaultCaptionsDir,
			LockDir:     defaultLockDir,
			LogDir:      defaultLogDir,
		},
		Render: Render{
			FFmpegBinary:      defaultFFmpegBinary,
			DefaultProfile:    defaultProfileName,
			SegmentDurationMS: defaultSegmentDurationMS,
			OverlapMS:         defaultOverlapMS,
			AudioFadeMS:       defaultAudioFadeMS,
			DuckingFadeMS:     defaultDuckingFadeMS,
			DuckingLevelDB:    defaultDuckingLevelDB,
			LoudnessTarget:    defaultLoudnessTarget,
			ProxyLadder:       []string{"360p", "480p"},
			OpticalFlow:       true,
			DefaultTimeout:    defaultTimeoutSeconds,
			ChunkTimeout:      defaultChunkTimeout,
		},
		Profiles: DefaultProfiles(),
		Jobs: Jobs{
			MaxConcurrent: defaultMaxConcurrent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultProfiles returns the built-in encoding profiles.
func DefaultProfiles() map[string]Profile {
	h264 := func(width, height int, bitrate, preset string) Profile {
		hw := make([]string, len(defaultHardwareH264))
		copy(hw, defaultHardwareH264)
		return Profile{
			Width:            width,
			Height:           height,
			FPS:              30,
			PixelFormat:      "yuv420p",
			Codec:            "libx264",
			Bitrate:          bitrate,
			Preset:           preset,
			AudioCodec:       "aac",
			AudioBitrate:     "192k",
			HardwareEncoders: hw,
		}
	}
	return map[string]Profile{
		"360p":  h264(640, 360, "800k", "veryfast"),
		"480p":  h264(854, 480, "1500k", "veryfast"),
		"720p":  h264(1280, 720, "5M", "medium"),
		"1080p": h264(1920, 1080, "8M", "medium"),
		"2160p": {
			Width:            3840,
			Height:           2160,
			FPS:              30,
			PixelFormat:      "yuv420p10le",
			Codec:            "libx265",
			Bitrate:          "35M",
			Preset:           "slow",
			AudioCodec:       "aac",
			AudioBitrate:     "256k",
			HardwareEncoders: []string{"hevc_nvenc", "hevc_qsv", "hevc_videotoolbox", "hevc_vaapi"},
		},
	}
}
