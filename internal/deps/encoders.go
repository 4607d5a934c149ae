package deps

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"reelplan/internal/logging"
	"reelplan/internal/services"
)

const probeTimeout = 10 * time.Second

// hardwareSuffixes identifies encoder names backed by a GPU or SoC block.
var hardwareSuffixes = []string{"_nvenc", "_qsv", "_vaapi", "_videotoolbox", "_amf", "_v4l2m2m", "_mf"}

// CommandRunner executes a binary and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// EncoderProbe lists hardware video encoders compiled into the configured
// ffmpeg. Results are cached after the first successful probe.
type EncoderProbe struct {
	binary string
	run    CommandRunner
	logger *slog.Logger

	mu      sync.Mutex
	done    bool
	encoder map[string]struct{}
}

// NewEncoderProbe constructs a probe for the given ffmpeg binary. A nil
// runner executes the binary directly.
func NewEncoderProbe(binary string, run CommandRunner, logger *slog.Logger) *EncoderProbe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if run == nil {
		run = execRunner
	}
	return &EncoderProbe{
		binary: binary,
		run:    run,
		logger: logging.NewComponentLogger(logger, "encoder-probe"),
	}
}

// HardwareEncoders returns the available hardware encoder names. Probe
// failures degrade to an empty set so callers fall back to software codecs.
func (p *EncoderProbe) HardwareEncoders(ctx context.Context) map[string]struct{} {
	if p == nil {
		return map[string]struct{}{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return p.encoder
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := p.run(ctx, p.binary, "-hide_banner", "-encoders")
	if err != nil {
		logging.WarnWithContext(p.logger, "hardware encoder probe failed", "encoder_probe_failed",
			logging.Error(services.Wrap(services.ErrExternalTool, "deps", "probe encoders", p.binary, err)),
			logging.String(logging.FieldErrorHint, "check render.ffmpeg_binary or REELPLAN_FFMPEG"),
			logging.String(logging.FieldImpact, "plans will use software codecs"),
		)
		return map[string]struct{}{}
	}
	p.encoder = ParseHardwareEncoders(out)
	p.done = true
	p.logger.Debug("hardware encoders probed", logging.Int("count", len(p.encoder)))
	return p.encoder
}

// Names returns the cached encoder set sorted for display.
func (p *EncoderProbe) Names(ctx context.Context) []string {
	set := p.HardwareEncoders(ctx)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseHardwareEncoders extracts hardware video encoder names from the output
// of `ffmpeg -encoders`. Rows look like " V....D h264_nvenc  NVIDIA NVENC ...".
func ParseHardwareEncoders(output []byte) map[string]struct{} {
	found := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(output))
	pastHeader := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !pastHeader {
			pastHeader = strings.HasPrefix(line, "------")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "V") {
			continue
		}
		if isHardwareEncoder(fields[1]) {
			found[fields[1]] = struct{}{}
		}
	}
	return found
}

func isHardwareEncoder(name string) bool {
	for _, suffix := range hardwareSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec
}
