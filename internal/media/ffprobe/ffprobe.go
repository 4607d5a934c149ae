package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"reelplan/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober runs ffprobe against local files.
type Prober struct {
	binary string
	run    Runner
}

// NewProber returns a prober for binary. A nil runner executes the binary
// directly.
func NewProber(binary string, run Runner) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if run == nil {
		run = execRunner
	}
	return &Prober{binary: binary, run: run}
}

// Inspect probes path and decodes the JSON response.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "ffprobe", "inspect", "empty path", nil)
	}
	output, err := p.run(ctx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect",
			fmt.Sprintf("%s: %s", path, strings.TrimSpace(string(output))), err)
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "parse", path, err)
	}
	return result, nil
}

// HasStream reports whether a stream of codecType ("video", "audio") exists.
func (r Result) HasStream(codecType string) bool {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			return true
		}
	}
	return false
}

// DurationMS returns the container duration in milliseconds. It falls back
// to the longest stream duration and returns -1 when nothing parses.
func (r Result) DurationMS() int64 {
	if seconds, ok := parseSeconds(r.Format.Duration); ok {
		return int64(math.Round(seconds * 1000))
	}
	longest := -1.0
	for _, stream := range r.Streams {
		if seconds, ok := parseSeconds(stream.Duration); ok && seconds > longest {
			longest = seconds
		}
	}
	if longest < 0 {
		return -1
	}
	return int64(math.Round(longest * 1000))
}

func parseSeconds(value string) (float64, bool) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0, false
	}
	return parsed, true
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
