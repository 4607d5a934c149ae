package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelplan/internal/config"
	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/plan"
	"reelplan/internal/services"
	"reelplan/internal/timeline"
)

// EncoderProbe reports hardware encoders available on the execution host.
type EncoderProbe interface {
	HardwareEncoders(ctx context.Context) map[string]struct{}
}

// CaptionConverter turns a caption artifact into an SRT file on disk.
type CaptionConverter interface {
	ConvertToSRT(ctx context.Context, artifactID string) (string, error)
}

// Recorder receives compile outcomes for metrics.
type Recorder interface {
	RecordCompile(ctx context.Context, profile string, warnings int, elapsed time.Duration, err error)
}

// Settings are the render defaults the compiler applies.
type Settings struct {
	FFmpegBinary   string
	DefaultProfile string
	RenderDir      string
	ProxyLadder    []string
	OpticalFlow    bool
	AudioFadeMS    int64
	DuckingFadeMS  int64
	DuckingLevelDB float64
	LoudnessTarget float64
}

// SettingsFromConfig extracts compiler settings from application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpegBinary:   cfg.FFmpegBinary(),
		DefaultProfile: cfg.Render.DefaultProfile,
		RenderDir:      cfg.Paths.RenderDir,
		ProxyLadder:    append([]string(nil), cfg.Render.ProxyLadder...),
		OpticalFlow:    cfg.Render.OpticalFlow,
		AudioFadeMS:    cfg.Render.AudioFadeMS,
		DuckingFadeMS:  cfg.Render.DuckingFadeMS,
		DuckingLevelDB: cfg.Render.DuckingLevelDB,
		LoudnessTarget: cfg.Render.LoudnessTarget,
	}
}

// Compiler lowers timelines into render plans. It holds no per-compile state
// and is safe for concurrent use.
type Compiler struct {
	timeline timeline.Store
	media    media.Store
	captions CaptionConverter
	probe    EncoderProbe
	metrics  Recorder
	logger   *slog.Logger
	profiles map[string]config.Profile
	settings Settings
}

// Option customises a Compiler.
type Option func(*Compiler)

// WithCaptions sets the caption converter used for burned-in captions.
func WithCaptions(converter CaptionConverter) Option {
	return func(c *Compiler) { c.captions = converter }
}

// WithEncoderProbe sets the hardware encoder probe.
func WithEncoderProbe(probe EncoderProbe) Option {
	return func(c *Compiler) { c.probe = probe }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithProfiles replaces the encoding profile table.
func WithProfiles(profiles map[string]config.Profile) Option {
	return func(c *Compiler) { c.profiles = profiles }
}

// WithSettings replaces the render defaults.
func WithSettings(settings Settings) Option {
	return func(c *Compiler) { c.settings = settings }
}

// WithMetrics sets the compile outcome recorder.
func WithMetrics(recorder Recorder) Option {
	return func(c *Compiler) { c.metrics = recorder }
}

// New constructs a Compiler over the given stores. Without options it uses
// the built-in profiles and default render settings.
func New(tl timeline.Store, mediaStore media.Store, opts ...Option) *Compiler {
	defaults := config.Default()
	c := &Compiler{
		timeline: tl,
		media:    mediaStore,
		profiles: defaults.Profiles,
		settings: SettingsFromConfig(&defaults),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logging.NewComponentLogger(c.logger, "compiler")
	return c
}

// Compile lowers the request's project into a RenderPlan.
func (c *Compiler) Compile(ctx context.Context, req plan.RenderRequest) (plan.RenderPlan, error) {
	started := time.Now()
	profileName := c.profileName(req)
	result, err := c.compile(ctx, req, profileName)
	if c.metrics != nil {
		c.metrics.RecordCompile(ctx, profileName, len(result.Meta.Warnings), time.Since(started), err)
	}
	return result, err
}

func (c *Compiler) profileName(req plan.RenderRequest) string {
	if name := strings.TrimSpace(req.Profile); name != "" {
		return name
	}
	return c.settings.DefaultProfile
}

func (c *Compiler) compile(ctx context.Context, req plan.RenderRequest, profileName string) (plan.RenderPlan, error) {
	if err := req.Validate(); err != nil {
		return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "compiler", "validate request", "", err)
	}
	profile, ok := c.profiles[profileName]
	if !ok {
		return plan.RenderPlan{}, services.Wrap(services.ErrValidation, "compiler", "resolve profile",
			fmt.Sprintf("unknown render profile %q", profileName), nil)
	}

	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldProjectID, req.ProjectID))
	snap, err := c.load(ctx, req.ProjectID)
	if err != nil {
		return plan.RenderPlan{}, err
	}

	cc := newCompileContext(req, profileName, profile, logger)
	entries, err := c.collect(ctx, cc, snap)
	if err != nil {
		return plan.RenderPlan{}, err
	}
	cc.DurationMS = outputDuration(cc.Window, snap, entries)

	for _, e := range entries {
		c.resolveSource(ctx, cc, e)
	}
	for _, e := range entries {
		if err := c.lowerClipVideo(ctx, cc, e); err != nil {
			return plan.RenderPlan{}, err
		}
	}
	videoOut, err := c.compose(ctx, cc, snap, entries)
	if err != nil {
		return plan.RenderPlan{}, err
	}
	videoCount := len(cc.graph.Statements())
	audioOut := c.lowerAudio(ctx, cc, snap, entries)

	encoder := c.selectEncoder(ctx, cc)
	statements := cc.graph.Statements()
	result := plan.RenderPlan{
		OutputPath:   c.outputPath(req, profileName),
		Profile:      profileName,
		Filters:      statements[:videoCount],
		AudioFilters: statements[videoCount:],
		StartMS:      req.StartMS,
		EndMS:        req.EndMS,
		OverlapMS:    req.OverlapMS,
	}
	for _, in := range cc.inputs {
		result.Inputs = append(result.Inputs, in.URI)
	}
	result.InputMeta = append([]plan.InputMeta(nil), cc.inputs...)
	result.Steps = []plan.PlanStep{{
		Description: describe(req, profileName, cc),
		CommandArgs: c.commandArgs(cc, result, encoder, videoOut, audioOut),
	}}
	result.Meta = cc.meta(snap.sequence.ID, encoder)

	logger.Info("render plan compiled",
		logging.String("render_profile", profileName),
		logging.Int("clips", len(entries)),
		logging.Int("inputs", len(result.Inputs)),
		logging.Int("warnings", len(result.Meta.Warnings)),
		logging.String("encoder", encoder),
	)
	return result, nil
}

// snapshot is the timeline data one compile reads.
type snapshot struct {
	project     timeline.Project
	sequence    timeline.Sequence
	tracks      []timeline.Track
	clips       map[string][]timeline.Clip
	transitions []timeline.Transition
}

func (c *Compiler) load(ctx context.Context, projectID string) (snapshot, error) {
	var snap snapshot
	project, err := c.timeline.GetProject(ctx, projectID)
	if err != nil {
		return snap, storeError("load project", projectID, err)
	}
	snap.project = project

	sequences, err := c.timeline.ListSequences(ctx, projectID)
	if err != nil {
		return snap, storeError("list sequences", projectID, err)
	}
	if len(sequences) == 0 {
		return snap, services.Wrap(services.ErrNotFound, "compiler", "list sequences",
			fmt.Sprintf("project %s has no sequence", projectID), timeline.ErrNotFound)
	}
	snap.sequence = sequences[0]

	tracks, err := c.timeline.ListTracks(ctx, snap.sequence.ID)
	if err != nil {
		return snap, storeError("list tracks", snap.sequence.ID, err)
	}
	if len(tracks) == 0 {
		return snap, services.Wrap(services.ErrNotFound, "compiler", "list tracks",
			fmt.Sprintf("sequence %s has no tracks", snap.sequence.ID), timeline.ErrNotFound)
	}
	snap.tracks = tracks

	snap.clips = make(map[string][]timeline.Clip, len(tracks))
	for _, track := range tracks {
		clips, err := c.timeline.ListClips(ctx, track.ID)
		if err != nil {
			return snap, storeError("list clips", track.ID, err)
		}
		for _, clip := range clips {
			if err := clip.Validate(); err != nil {
				return snap, services.Wrap(services.ErrValidation, "compiler", "validate clip", "", err)
			}
		}
		snap.clips[track.ID] = clips
	}

	if snap.transitions, err = c.timeline.ListTransitions(ctx, snap.sequence.ID); err != nil {
		return snap, storeError("list transitions", snap.sequence.ID, err)
	}
	return snap, nil
}

func storeError(operation, id string, err error) error {
	if errors.Is(err, timeline.ErrNotFound) || errors.Is(err, media.ErrNotFound) {
		return services.Wrap(services.ErrNotFound, "compiler", operation, id, err)
	}
	return services.Wrap(services.ErrTransient, "compiler", operation, id, err)
}

func describe(req plan.RenderRequest, profile string, cc *CompileContext) string {
	desc := fmt.Sprintf("render project %s at %s", req.ProjectID, profile)
	if req.SegmentIndex != nil {
		desc += fmt.Sprintf(" segment %d", *req.SegmentIndex)
	}
	return desc + fmt.Sprintf(" window %s-%ss", seconds(cc.Window.StartMS), seconds(cc.Window.StartMS+cc.DurationMS))
}
