package segments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reelplan/internal/config"
	"reelplan/internal/jobs"
	"reelplan/internal/logging"
	"reelplan/internal/plan"
	"reelplan/internal/services"
	"reelplan/internal/timeline"
)

// Settings carries the config values segmentation and stitching need.
type Settings struct {
	FFmpegBinary      string
	DefaultProfile    string
	RenderDir         string
	SegmentDurationMS int64
	OverlapMS         int64
	LoudnessTarget    float64
	Profiles          map[string]config.Profile
}

// SettingsFromConfig extracts segment settings from application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpegBinary:      cfg.FFmpegBinary(),
		DefaultProfile:    cfg.Render.DefaultProfile,
		RenderDir:         cfg.Paths.RenderDir,
		SegmentDurationMS: cfg.Render.SegmentDurationMS,
		OverlapMS:         cfg.Render.OverlapMS,
		LoudnessTarget:    cfg.Render.LoudnessTarget,
		Profiles:          cfg.Profiles,
	}
}

// Planner partitions sequences into segments.
type Planner struct {
	timeline timeline.Store
	settings Settings
	logger   *slog.Logger
}

// NewPlanner constructs a Planner.
func NewPlanner(tl timeline.Store, settings Settings, logger *slog.Logger) *Planner {
	return &Planner{
		timeline: tl,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "segments"),
	}
}

// Plan splits [req.StartMS, end) into consecutive windows of the segment
// duration, where end is the sequence extent or req.EndMS when bounded. The
// last segment is truncated. Every segment carries the overlap and the
// cache key of its window.
func (p *Planner) Plan(ctx context.Context, req plan.RenderRequest) ([]plan.RenderSegment, error) {
	if err := req.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "segments", "validate request", "", err)
	}
	segDur := req.SegmentDurationMS
	if segDur <= 0 {
		segDur = p.settings.SegmentDurationMS
	}
	if segDur <= 0 {
		return nil, services.Wrap(services.ErrValidation, "segments", "plan", "segment duration must be positive", nil)
	}
	overlap := req.OverlapMS
	if overlap == 0 && !req.NoOverlap {
		overlap = p.settings.OverlapMS
	}

	project, err := p.timeline.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, lookupError("load project", req.ProjectID, err)
	}
	sequence, extent, err := SequenceExtent(ctx, p.timeline, req.ProjectID)
	if err != nil {
		return nil, err
	}

	end := extent
	if req.Bounded() {
		end = min(end, req.EndMS)
	}
	if end <= req.StartMS {
		return nil, services.Wrap(services.ErrValidation, "segments", "plan",
			fmt.Sprintf("nothing to render between %d and %d ms (sequence ends at %d ms)", req.StartMS, end, extent), nil)
	}

	profile := p.profileName(req)
	var segments []plan.RenderSegment
	for start, index := req.StartMS, 0; start < end; start, index = start+segDur, index+1 {
		segEnd := min(start+segDur, end)
		segReq := req
		segReq.StartMS, segReq.EndMS, segReq.OverlapMS = start, segEnd, overlap
		window := segReq.Window()
		segments = append(segments, plan.RenderSegment{
			ProjectID:    req.ProjectID,
			SequenceID:   sequence.ID,
			StartMS:      start,
			EndMS:        segEnd,
			OverlapMS:    overlap,
			SegmentIndex: index,
			CacheKey:     jobs.CacheKey(segReq, profile, project.UpdatedAt),
			Meta: map[string]any{
				"window_start_ms": window.StartMS,
				"window_end_ms":   window.EndMS,
				"render_profile":  profile,
			},
		})
	}

	p.logger.Info("segments planned",
		logging.String(logging.FieldProjectID, req.ProjectID),
		logging.Int("segments", len(segments)),
		logging.Int64("segment_duration_ms", segDur),
		logging.Int64("overlap_ms", overlap),
	)
	return segments, nil
}

func (p *Planner) profileName(req plan.RenderRequest) string {
	if name := strings.TrimSpace(req.Profile); name != "" {
		return name
	}
	return p.settings.DefaultProfile
}

// SegmentRequest derives the compile request for one segment from the
// request the segments were planned from.
func SegmentRequest(base plan.RenderRequest, seg plan.RenderSegment) plan.RenderRequest {
	req := base
	req.StartMS = seg.StartMS
	req.EndMS = seg.EndMS
	req.OverlapMS = seg.OverlapMS
	index := seg.SegmentIndex
	req.SegmentIndex = &index
	req.OutputPath = ""
	return req
}

// SequenceExtent returns the project's first sequence and its length: the
// nominal duration or the end of the last clip, whichever is later.
func SequenceExtent(ctx context.Context, tl timeline.Store, projectID string) (timeline.Sequence, int64, error) {
	sequences, err := tl.ListSequences(ctx, projectID)
	if err != nil {
		return timeline.Sequence{}, 0, lookupError("list sequences", projectID, err)
	}
	if len(sequences) == 0 {
		return timeline.Sequence{}, 0, services.Wrap(services.ErrNotFound, "segments", "list sequences",
			fmt.Sprintf("project %s has no sequence", projectID), timeline.ErrNotFound)
	}
	sequence := sequences[0]
	extent := sequence.DurationMS

	tracks, err := tl.ListTracks(ctx, sequence.ID)
	if err != nil {
		return sequence, 0, lookupError("list tracks", sequence.ID, err)
	}
	for _, track := range tracks {
		clips, err := tl.ListClips(ctx, track.ID)
		if err != nil {
			return sequence, 0, lookupError("list clips", track.ID, err)
		}
		for _, clip := range clips {
			extent = max(extent, clip.EndMS())
		}
	}
	return sequence, extent, nil
}

func lookupError(operation, id string, err error) error {
	if errors.Is(err, timeline.ErrNotFound) {
		return services.Wrap(services.ErrNotFound, "segments", operation, id, err)
	}
	return services.Wrap(services.ErrTransient, "segments", operation, id, err)
}
