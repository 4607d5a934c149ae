package segments_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reelplan/internal/config"
	"reelplan/internal/jobs"
	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/plan"
	"reelplan/internal/segments"
	"reelplan/internal/services"
	"reelplan/internal/testsupport"
	"reelplan/internal/timeline"
)

func newPlanner(t *testing.T, durationMS int64, clipEndMS int64) (*segments.Planner, *testsupport.Fixture) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithSegmentDuration(10000, 1000))
	store := testsupport.MustOpenStorage(t, cfg)
	f := testsupport.SeedProject(t, store, "p1", durationMS)
	f.AddTrack(timeline.Track{ID: "t1", Kind: timeline.TrackVideo})
	f.AddAsset(media.Asset{ID: "a1", SourceURI: "/media/a1.mp4"})
	f.AddClip(timeline.Clip{ID: "c1", TrackID: "t1", AssetID: "a1", InMS: 0, OutMS: clipEndMS})
	return segments.NewPlanner(store, segments.SettingsFromConfig(cfg), logging.NewNop()), f
}

func TestPlanPartitionsSequence(t *testing.T) {
	planner, _ := newPlanner(t, 25000, 25000)

	segs, err := planner.Plan(context.Background(), plan.RenderRequest{ProjectID: "p1", Profile: "720p"})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := [][2]int64{{0, 10000}, {10000, 20000}, {20000, 25000}}
	if len(segs) != len(want) {
		t.Fatalf("segments = %d, want %d", len(segs), len(want))
	}
	keys := map[string]bool{}
	for i, seg := range segs {
		if seg.StartMS != want[i][0] || seg.EndMS != want[i][1] {
			t.Errorf("segment %d = [%d,%d), want %v", i, seg.StartMS, seg.EndMS, want[i])
		}
		if seg.SegmentIndex != i || seg.OverlapMS != 1000 || seg.SequenceID != "p1-seq" {
			t.Errorf("segment %d bookkeeping wrong: %+v", i, seg)
		}
		if seg.CacheKey == "" || keys[seg.CacheKey] {
			t.Errorf("segment %d cache key missing or repeated", i)
		}
		keys[seg.CacheKey] = true
	}
	if got := segs[0].Meta["window_start_ms"]; got != int64(0) {
		t.Errorf("first window start = %v, want 0", got)
	}
	if got := segs[1].Meta["window_start_ms"]; got != int64(9000) {
		t.Errorf("second window start = %v, want 9000", got)
	}
	if got := segs[1].Meta["window_end_ms"]; got != int64(21000) {
		t.Errorf("second window end = %v, want 21000", got)
	}
}

func TestPlanUsesClipExtentAndRequestOverrides(t *testing.T) {
	planner, _ := newPlanner(t, 1000, 9000)

	segs, err := planner.Plan(context.Background(), plan.RenderRequest{
		ProjectID: "p1", StartMS: 2000, SegmentDurationMS: 3000, OverlapMS: 250,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	if segs[0].StartMS != 2000 || segs[2].EndMS != 9000 || segs[0].OverlapMS != 250 {
		t.Fatalf("unexpected segments: %+v", segs)
	}

	bounded, err := planner.Plan(context.Background(), plan.RenderRequest{ProjectID: "p1", EndMS: 4000, SegmentDurationMS: 3000})
	if err != nil {
		t.Fatalf("Plan bounded: %v", err)
	}
	if len(bounded) != 2 || bounded[1].EndMS != 4000 {
		t.Fatalf("bounded segments: %+v", bounded)
	}
}

func TestPlanOverlapDefaults(t *testing.T) {
	planner, _ := newPlanner(t, 20000, 20000)
	ctx := context.Background()

	cases := []struct {
		name string
		req  plan.RenderRequest
		want int64
	}{
		{name: "zero takes configured default", req: plan.RenderRequest{ProjectID: "p1"}, want: 1000},
		{name: "explicit value", req: plan.RenderRequest{ProjectID: "p1", OverlapMS: 400}, want: 400},
		{name: "disabled", req: plan.RenderRequest{ProjectID: "p1", NoOverlap: true}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segs, err := planner.Plan(ctx, tc.req)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(segs) != 2 || segs[1].OverlapMS != tc.want {
				t.Fatalf("segments = %+v, want overlap %d", segs, tc.want)
			}
			if got := segs[1].Meta["window_start_ms"]; got != 10000-tc.want {
				t.Fatalf("window start = %v, want %d", got, 10000-tc.want)
			}
		})
	}
}

func TestPlanErrors(t *testing.T) {
	planner, _ := newPlanner(t, 5000, 5000)
	ctx := context.Background()

	if _, err := planner.Plan(ctx, plan.RenderRequest{ProjectID: "missing"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := planner.Plan(ctx, plan.RenderRequest{ProjectID: "p1", StartMS: 6000}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error past the end, got %v", err)
	}

	zero := segments.NewPlanner(nil, segments.Settings{}, logging.NewNop())
	if _, err := zero.Plan(ctx, plan.RenderRequest{ProjectID: "p1"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for zero duration, got %v", err)
	}
}

func TestSegmentRequest(t *testing.T) {
	base := plan.RenderRequest{ProjectID: "p1", Profile: "1080p", NormalizeAudio: true, OutputPath: "/out/full.mp4"}
	req := segments.SegmentRequest(base, plan.RenderSegment{StartMS: 10000, EndMS: 20000, OverlapMS: 500, SegmentIndex: 1})
	if req.StartMS != 10000 || req.EndMS != 20000 || req.OverlapMS != 500 {
		t.Fatalf("window not applied: %+v", req)
	}
	if req.SegmentIndex == nil || *req.SegmentIndex != 1 {
		t.Fatalf("segment index = %v", req.SegmentIndex)
	}
	if req.OutputPath != "" || !req.NormalizeAudio || req.Profile != "1080p" {
		t.Fatalf("base fields not carried correctly: %+v", req)
	}
}

func segmentJob(index int, start, end, overlap int64, status jobs.Status) *jobs.VideoRenderJob {
	i := index
	return &jobs.VideoRenderJob{
		ID:             "job-" + string(rune('a'+index)),
		ProjectID:      "p1",
		JobType:        jobs.TypeSegment,
		Status:         status,
		SegmentIndex:   &i,
		SegmentStartMS: start,
		SegmentEndMS:   end,
		OverlapMS:      overlap,
		PlanSnapshot:   &plan.RenderPlan{OutputPath: "/renders/seg" + string(rune('0'+index)) + ".mp4", Profile: "720p"},
		Request:        plan.RenderRequest{ProjectID: "p1", Profile: "720p", NormalizeAudio: true, TargetLoudness: -16},
	}
}

func newStitcher() *segments.Stitcher {
	defaults := config.Default()
	settings := segments.SettingsFromConfig(&defaults)
	settings.RenderDir = "/renders"
	return segments.NewStitcher(settings, logging.NewNop())
}

func TestStitchTotalDurationIgnoresOverlap(t *testing.T) {
	const (
		n       = 4
		d       = int64(10000)
		overlap = int64(1000)
	)
	var input []*jobs.VideoRenderJob
	// Deliberately out of order.
	for _, i := range []int{2, 0, 3, 1} {
		input = append(input, segmentJob(i, int64(i)*d, int64(i+1)*d, overlap, jobs.StatusSucceeded))
	}

	result, err := newStitcher().Stitch(input)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if result.Meta.TotalDurationMS != n*d {
		t.Fatalf("total = %d, want %d", result.Meta.TotalDurationMS, n*d)
	}
	if result.Meta.SegmentCount != n {
		t.Fatalf("segment count = %d", result.Meta.SegmentCount)
	}
	for i, in := range result.Inputs {
		if want := "/renders/seg" + string(rune('0'+i)) + ".mp4"; in != want {
			t.Fatalf("input %d = %s, want %s", i, in, want)
		}
	}

	graphText := strings.Join(append(append([]string{}, result.Filters...), result.AudioFilters...), ";")
	for _, want := range []string{
		"[0:v]trim=start=0:duration=10,setpts=PTS-STARTPTS[s0_v]",
		"[1:v]trim=start=1:duration=10,setpts=PTS-STARTPTS[s1_v]",
		"[3:a]atrim=start=1:duration=10,asetpts=PTS-STARTPTS[s3_a]",
		"concat=n=4:v=1:a=1[vcat][acat]",
		"[acat]loudnorm=I=-16:TP=-1.5:LRA=11:dual_mono=true[aout]",
	} {
		if !strings.Contains(graphText, want) {
			t.Errorf("graph missing %q:\n%s", want, graphText)
		}
	}
	if strings.Count(graphText, "loudnorm") != 1 {
		t.Fatal("loudness normalization should be applied exactly once")
	}
	args := result.Steps[0].CommandArgs
	if args[len(args)-1] != "/renders/p1_720p_stitched.mp4" {
		t.Fatalf("output = %s", args[len(args)-1])
	}
}

func TestStitchFailsFast(t *testing.T) {
	stitcher := newStitcher()

	if _, err := stitcher.Stitch(nil); !errors.Is(err, segments.ErrNoSegmentJobs) {
		t.Fatalf("expected ErrNoSegmentJobs, got %v", err)
	}

	_, err := stitcher.Stitch([]*jobs.VideoRenderJob{
		segmentJob(0, 0, 10000, 1000, jobs.StatusSucceeded),
		segmentJob(1, 10000, 20000, 1000, jobs.StatusRunning),
	})
	var notReady *segments.SegmentNotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected SegmentNotReadyError, got %v", err)
	}
	if notReady.Index != 1 || notReady.Status != jobs.StatusRunning {
		t.Fatalf("unexpected error detail: %+v", notReady)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("not-ready error should classify as validation")
	}

	_, err = stitcher.Stitch([]*jobs.VideoRenderJob{
		segmentJob(0, 0, 10000, 0, jobs.StatusSucceeded),
		segmentJob(0, 0, 10000, 0, jobs.StatusSucceeded),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate index rejection, got %v", err)
	}

	_, err = stitcher.Stitch([]*jobs.VideoRenderJob{
		segmentJob(2, 20000, 30000, 1000, jobs.StatusSucceeded),
		segmentJob(0, 0, 10000, 1000, jobs.StatusSucceeded),
	})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "missing segment 1") {
		t.Fatalf("expected gap rejection, got %v", err)
	}
}

func TestStitchAcceptsContiguousRun(t *testing.T) {
	result, err := newStitcher().Stitch([]*jobs.VideoRenderJob{
		segmentJob(2, 20000, 30000, 1000, jobs.StatusSucceeded),
		segmentJob(1, 10000, 20000, 1000, jobs.StatusSucceeded),
	})
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if result.StartMS != 10000 || result.EndMS != 30000 || result.Meta.TotalDurationMS != 20000 {
		t.Fatalf("unexpected extent: start=%d end=%d total=%d", result.StartMS, result.EndMS, result.Meta.TotalDurationMS)
	}
}
