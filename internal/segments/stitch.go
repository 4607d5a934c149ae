package segments

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"reelplan/internal/filters"
	"reelplan/internal/graph"
	"reelplan/internal/jobs"
	"reelplan/internal/logging"
	"reelplan/internal/plan"
	"reelplan/internal/services"
)

// Stitcher builds the plan that joins rendered segments.
type Stitcher struct {
	settings Settings
	logger   *slog.Logger
}

// NewStitcher constructs a Stitcher.
func NewStitcher(settings Settings, logger *slog.Logger) *Stitcher {
	return &Stitcher{settings: settings, logger: logging.NewComponentLogger(logger, "stitch")}
}

// Stitch composes one plan from succeeded segment jobs. Segments are ordered
// by index and must form a contiguous run; each is trimmed of its leading overlap and cut to its nominal
// duration before a single concat. Durations come from the jobs' recorded
// bookkeeping, not from probing the rendered files.
func (s *Stitcher) Stitch(segmentJobs []*jobs.VideoRenderJob) (plan.RenderPlan, error) {
	if len(segmentJobs) == 0 {
		return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "stitch", "collect segments", "", ErrNoSegmentJobs)
	}
	ordered := make([]*jobs.VideoRenderJob, 0, len(segmentJobs))
	seen := make(map[int]string, len(segmentJobs))
	for _, job := range segmentJobs {
		if job == nil || job.SegmentIndex == nil {
			return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "stitch", "collect segments",
				"job has no segment index", nil)
		}
		if job.Status != jobs.StatusSucceeded {
			return plan.RenderPlan{}, &SegmentNotReadyError{JobID: job.ID, Index: *job.SegmentIndex, Status: job.Status}
		}
		if other, dup := seen[*job.SegmentIndex]; dup {
			return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "stitch", "collect segments",
				fmt.Sprintf("jobs %s and %s both claim segment %d", other, job.ID, *job.SegmentIndex), nil)
		}
		if job.OutputPath() == "" {
			return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "stitch", "collect segments",
				fmt.Sprintf("job %s has no recorded output", job.ID), nil)
		}
		seen[*job.SegmentIndex] = job.ID
		ordered = append(ordered, job)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return *ordered[i].SegmentIndex < *ordered[j].SegmentIndex
	})
	for i, job := range ordered {
		if want := *ordered[0].SegmentIndex + i; *job.SegmentIndex != want {
			return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "stitch", "collect segments",
				fmt.Sprintf("missing segment %d", want), nil)
		}
	}

	first := ordered[0]
	req := first.Request
	profileName := first.PlanSnapshot.Profile
	if profileName == "" {
		profileName = strings.TrimSpace(req.Profile)
	}
	if profileName == "" {
		profileName = s.settings.DefaultProfile
	}
	profile, ok := s.settings.Profiles[profileName]
	if !ok {
		return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "stitch", "resolve profile",
			fmt.Sprintf("unknown render profile %q", profileName), nil)
	}

	b := graph.NewBuilder()
	result := plan.RenderPlan{
		Profile: profileName,
		StartMS: first.SegmentStartMS,
		EndMS:   ordered[len(ordered)-1].SegmentEndMS,
	}
	// audio marks which statements belong in AudioFilters.
	var audio []bool
	chain := func(isAudio bool, inputs []string, filter string, outputs ...string) {
		b.Chain(inputs, filter, outputs...)
		audio = append(audio, isAudio)
	}

	var concatInputs []string
	var total int64
	for i, job := range ordered {
		result.Inputs = append(result.Inputs, job.OutputPath())
		result.InputMeta = append(result.InputMeta, plan.InputMeta{
			Index: i,
			Kind:  plan.InputSegment,
			URI:   job.OutputPath(),
		})

		trimStart := job.SegmentStartMS - max(0, job.SegmentStartMS-job.OverlapMS)
		duration := job.SegmentEndMS - job.SegmentStartMS
		total += duration

		v := b.Named("s" + strconv.Itoa(i) + "_v")
		chain(false, []string{graph.Input(i, "v")},
			fmt.Sprintf("trim=start=%s:duration=%s,setpts=PTS-STARTPTS", secs(trimStart), secs(duration)), v)
		a := b.Named("s" + strconv.Itoa(i) + "_a")
		chain(true, []string{graph.Input(i, "a")},
			fmt.Sprintf("atrim=start=%s:duration=%s,asetpts=PTS-STARTPTS", secs(trimStart), secs(duration)), a)
		concatInputs = append(concatInputs, v, a)
	}

	vcat, acat := b.Named("vcat"), b.Named("acat")
	chain(false, concatInputs, fmt.Sprintf("concat=n=%d:v=1:a=1", len(ordered)), vcat, acat)

	vout := b.Named("vout")
	chain(false, []string{vcat}, "format="+profile.PixelFormat, vout)
	audioFilter := "anull"
	if req.NormalizeAudio {
		target := req.TargetLoudness
		if target == 0 {
			target = s.settings.LoudnessTarget
		}
		audioFilter = filters.Loudnorm(target)
	}
	aout := b.Named("aout")
	chain(true, []string{acat}, audioFilter, aout)

	for i, statement := range b.Statements() {
		if audio[i] {
			result.AudioFilters = append(result.AudioFilters, statement)
		} else {
			result.Filters = append(result.Filters, statement)
		}
	}
	result.OutputPath = s.outputPath(first, profileName)

	args := []string{s.settings.FFmpegBinary, "-hide_banner", "-y"}
	for _, in := range result.Inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", graph.Join(result.Filters, result.AudioFilters),
		"-map", "["+vout+"]",
		"-map", "["+aout+"]",
		"-c:v", profile.Codec,
	)
	if profile.Bitrate != "" {
		args = append(args, "-b:v", profile.Bitrate)
	}
	if profile.Preset != "" {
		args = append(args, "-preset", profile.Preset)
	}
	args = append(args, "-pix_fmt", profile.PixelFormat, "-r", filters.FormatNumber(profile.FPS), "-c:a", profile.AudioCodec)
	if profile.AudioBitrate != "" {
		args = append(args, "-b:a", profile.AudioBitrate)
	}
	args = append(args, "-ac", "2", result.OutputPath)

	result.Steps = []plan.PlanStep{{
		Description: fmt.Sprintf("stitch %d segments of project %s at %s", len(ordered), first.ProjectID, profileName),
		CommandArgs: args,
	}}
	result.Meta = plan.PlanMeta{
		RenderProfile:     profileName,
		EncoderUsed:       profile.Codec,
		WindowStartMS:     result.StartMS,
		WindowEndMS:       result.EndMS,
		TotalDurationMS:   total,
		SegmentCount:      len(ordered),
		Transitions:       []plan.TransitionMeta{},
		Warnings:          []string{},
		DependencyNotices: []plan.DependencyNotice{},
		SlowmoDetails:     []plan.SlowmoDetail{},
		StabiliseDetails:  []plan.StabiliseDetail{},
		DuckingAnalysis:   plan.DuckingAnalysis{SpeechWindows: []plan.SpeechWindow{}, DuckedClips: []string{}},
	}

	s.logger.Info("stitch plan compiled",
		logging.String(logging.FieldProjectID, first.ProjectID),
		logging.Int("segments", len(ordered)),
		logging.Int64("total_duration_ms", total),
	)
	return result, nil
}

func (s *Stitcher) outputPath(first *jobs.VideoRenderJob, profileName string) string {
	if path := strings.TrimSpace(first.Request.OutputPath); path != "" {
		return path
	}
	return filepath.Join(s.settings.RenderDir, first.ProjectID+"_"+profileName+"_stitched.mp4")
}

func secs(ms int64) string {
	return filters.FormatNumber(float64(ms) / 1000)
}
