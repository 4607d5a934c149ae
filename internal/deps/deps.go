package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"reelplan/internal/config"
)

// Requirement defines an external dependency reelplan relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries a compiled plan is expected to run under.
// The planner never executes them; doctor reports them so operators know a
// plan will be runnable on this host.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg, ffprobe := "ffmpeg", "ffprobe"
	if cfg != nil {
		ffmpeg = cfg.FFmpegBinary()
		ffprobe = cfg.FFprobeBinary()
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Executes compiled render plans"},
		{Name: "FFprobe", Command: ffprobe, Description: "Inspects rendered segments before stitching", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch resolved, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Command = resolved
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
