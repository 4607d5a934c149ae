package segments_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reelplan/internal/jobs"
	"reelplan/internal/logging"
	"reelplan/internal/media/ffprobe"
	"reelplan/internal/plan"
	"reelplan/internal/segments"
)

type fakeInspector map[string]ffprobe.Result

func (f fakeInspector) Inspect(_ context.Context, path string) (ffprobe.Result, error) {
	result, ok := f[path]
	if !ok {
		return ffprobe.Result{}, errors.New("no such file")
	}
	return result, nil
}

func inspected(durationMS string, types ...string) ffprobe.Result {
	result := ffprobe.Result{Format: ffprobe.Format{Duration: durationMS}}
	for i, kind := range types {
		result.Streams = append(result.Streams, ffprobe.Stream{Index: i, CodecType: kind})
	}
	return result
}

func verifyJob(id string, index int, start, end, overlap int64, output string) *jobs.VideoRenderJob {
	idx := index
	job := &jobs.VideoRenderJob{
		ID:             id,
		JobType:        jobs.TypeSegment,
		Status:         jobs.StatusSucceeded,
		SegmentIndex:   &idx,
		SegmentStartMS: start,
		SegmentEndMS:   end,
		OverlapMS:      overlap,
	}
	if output != "" {
		job.PlanSnapshot = &plan.RenderPlan{OutputPath: output}
	}
	return job
}

func TestExpectedDurationIncludesPreRoll(t *testing.T) {
	if got := segments.ExpectedDurationMS(verifyJob("a", 0, 0, 10000, 1000, "")); got != 10000 {
		t.Fatalf("first segment = %d, want 10000", got)
	}
	if got := segments.ExpectedDurationMS(verifyJob("b", 1, 10000, 20000, 1000, "")); got != 11000 {
		t.Fatalf("second segment = %d, want 11000", got)
	}
}

func TestVerifyOutputs(t *testing.T) {
	inspector := fakeInspector{
		"/r/s0.mp4": inspected("10.04", "video", "audio"),
		"/r/s1.mp4": inspected("9.5", "video", "audio"),
		"/r/s2.mp4": inspected("5.0", "video"),
	}
	list := []*jobs.VideoRenderJob{
		verifyJob("j2", 2, 20000, 25000, 1000, "/r/s2.mp4"),
		verifyJob("j0", 0, 0, 10000, 1000, "/r/s0.mp4"),
		verifyJob("j1", 1, 10000, 20000, 1000, "/r/s1.mp4"),
		verifyJob("j3", 3, 25000, 30000, 1000, "/r/missing.mp4"),
		verifyJob("j4", 4, 30000, 35000, 1000, ""),
	}

	checks := segments.VerifyOutputs(context.Background(), list, inspector, segments.DefaultToleranceMS, logging.NewNop())
	if len(checks) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(checks))
	}
	for i, check := range checks {
		if check.Index != i {
			t.Fatalf("checks not ordered by index: %+v", checks)
		}
	}

	if !checks[0].OK || checks[0].ProbedMS != 10040 {
		t.Fatalf("segment 0 should pass within tolerance: %+v", checks[0])
	}
	if checks[1].OK || !strings.Contains(checks[1].Detail, "expected 11000ms") {
		t.Fatalf("segment 1 should fail on duration: %+v", checks[1])
	}
	if checks[2].OK || checks[2].Detail != "no audio stream" {
		t.Fatalf("segment 2 should fail on streams: %+v", checks[2])
	}
	if checks[3].OK || !strings.Contains(checks[3].Detail, "no such file") {
		t.Fatalf("segment 3 should surface the inspection error: %+v", checks[3])
	}
	if checks[4].OK || checks[4].Detail != "job has no recorded output" {
		t.Fatalf("segment 4 should fail without output: %+v", checks[4])
	}
}
