package segments

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"reelplan/internal/jobs"
	"reelplan/internal/logging"
	"reelplan/internal/media/ffprobe"
)

// DefaultToleranceMS is the drift allowed between a probed segment and its
// recorded window. Encoders pad the last GOP and audio frame.
const DefaultToleranceMS int64 = 100

// Inspector probes a rendered file.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// OutputCheck is the verification result for one segment render.
type OutputCheck struct {
	JobID      string `json:"job_id"`
	Index      int    `json:"segment_index"`
	Path       string `json:"path"`
	ExpectedMS int64  `json:"expected_ms"`
	ProbedMS   int64  `json:"probed_ms"`
	OK         bool   `json:"ok"`
	Detail     string `json:"detail,omitempty"`
}

// ExpectedDurationMS is the length a segment render should have: its window
// widened backwards by the overlap, clamped at zero.
func ExpectedDurationMS(job *jobs.VideoRenderJob) int64 {
	return job.SegmentEndMS - max(0, job.SegmentStartMS-job.OverlapMS)
}

// VerifyOutputs probes each segment job's output and compares it with the
// recorded window. Every job gets a check; one failure does not stop the rest.
func VerifyOutputs(ctx context.Context, segmentJobs []*jobs.VideoRenderJob, inspector Inspector, toleranceMS int64, logger *slog.Logger) []OutputCheck {
	logger = logging.NewComponentLogger(logger, "segment-verify")
	if toleranceMS < 0 {
		toleranceMS = DefaultToleranceMS
	}
	checks := make([]OutputCheck, 0, len(segmentJobs))
	for _, job := range segmentJobs {
		if job == nil {
			continue
		}
		check := OutputCheck{JobID: job.ID, Index: -1, Path: job.OutputPath(), ProbedMS: -1}
		if job.SegmentIndex != nil {
			check.Index = *job.SegmentIndex
		}
		check.ExpectedMS = ExpectedDurationMS(job)
		verifyOne(ctx, &check, inspector, toleranceMS)
		if !check.OK {
			logging.WarnWithContext(logger, "segment output failed verification", "segment_verify_failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Int(logging.FieldSegmentIndex, check.Index),
				logging.String("path", check.Path),
				logging.String(logging.FieldErrorHint, check.Detail),
				logging.String(logging.FieldImpact, "stitching this segment would desynchronise the concat"),
			)
		}
		checks = append(checks, check)
	}
	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Index < checks[j].Index })
	return checks
}

func verifyOne(ctx context.Context, check *OutputCheck, inspector Inspector, toleranceMS int64) {
	if check.Path == "" {
		check.Detail = "job has no recorded output"
		return
	}
	result, err := inspector.Inspect(ctx, check.Path)
	if err != nil {
		check.Detail = err.Error()
		return
	}
	check.ProbedMS = result.DurationMS()
	switch {
	case !result.HasStream("video"):
		check.Detail = "no video stream"
	case !result.HasStream("audio"):
		check.Detail = "no audio stream"
	case check.ProbedMS < 0:
		check.Detail = "duration unavailable"
	case abs(check.ProbedMS-check.ExpectedMS) > toleranceMS:
		check.Detail = fmt.Sprintf("duration %dms differs from expected %dms", check.ProbedMS, check.ExpectedMS)
	default:
		check.OK = true
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
