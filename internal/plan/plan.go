package plan

// Input kinds recorded in InputMeta.
const (
	InputSource      = "source"
	InputProxy       = "proxy"
	InputPlaceholder = "placeholder"
	InputMask        = "mask"
	InputVoice       = "voice_enhanced_audio"
	InputSegment     = "segment"
)

// Dependency notice states.
const (
	DependencyAvailable = "available"
	DependencyMissing   = "missing"
)

// InputMeta describes one `-i` binding of a plan, in input order.
type InputMeta struct {
	Index      int    `json:"index"`
	Kind       string `json:"kind"`
	URI        string `json:"uri"`
	Format     string `json:"format,omitempty"`
	ClipID     string `json:"clip_id,omitempty"`
	AssetID    string `json:"asset_id,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
}

// PlanStep is one executable command.
type PlanStep struct {
	Description string   `json:"description"`
	CommandArgs []string `json:"command_args"`
}

// DependencyNotice records a soft dependency and whether it was satisfied.
type DependencyNotice struct {
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	AssetID        string `json:"asset_id,omitempty"`
	ClipID         string `json:"clip_id,omitempty"`
	ArtifactID     string `json:"artifact_id,omitempty"`
	CacheKey       string `json:"cache_key,omitempty"`
	BackendVersion string `json:"backend_version,omitempty"`
}

// TransitionMeta describes a lowered transition.
type TransitionMeta struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Effect     string `json:"effect"`
	DurationMS int64  `json:"duration_ms"`
	FromClipID string `json:"from_clip_id"`
	ToClipID   string `json:"to_clip_id"`
	Audio      bool   `json:"audio"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// SlowmoDetail records the interpolation chosen for a slowed clip.
type SlowmoDetail struct {
	ClipID      string  `json:"clip_id"`
	Speed       float64 `json:"speed"`
	Tier        string  `json:"tier"`
	Method      string  `json:"method"`
	OpticalFlow bool    `json:"optical_flow"`
}

// StabiliseDetail records the stabilization parameters applied to a clip.
type StabiliseDetail struct {
	ClipID     string  `json:"clip_id"`
	ArtifactID string  `json:"artifact_id"`
	Smoothing  float64 `json:"smoothing"`
	Zoom       float64 `json:"zoom"`
	Crop       string  `json:"crop"`
	Tripod     int     `json:"tripod"`
}

// SpeechWindow is a timeline range occupied by dialogue.
type SpeechWindow struct {
	ClipID  string `json:"clip_id"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// DuckingAnalysis summarises sidechain attenuation decisions.
type DuckingAnalysis struct {
	Enabled       bool           `json:"enabled"`
	FadeMS        int64          `json:"fade_ms"`
	LevelDB       float64        `json:"level_db"`
	SpeechWindows []SpeechWindow `json:"speech_windows"`
	DuckedClips   []string       `json:"ducked_clips"`
}

// PlanMeta is the structured metadata exposed to the execution backend.
type PlanMeta struct {
	RenderProfile     string             `json:"render_profile"`
	EncoderUsed       string             `json:"encoder_used"`
	SequenceID        string             `json:"sequence_id,omitempty"`
	WindowStartMS     int64              `json:"window_start_ms"`
	WindowEndMS       int64              `json:"window_end_ms"`
	TotalDurationMS   int64              `json:"total_duration_ms"`
	Transitions       []TransitionMeta   `json:"transitions"`
	Warnings          []string           `json:"warnings"`
	DependencyNotices []DependencyNotice `json:"dependency_notices"`
	SlowmoDetails     []SlowmoDetail     `json:"slowmo_details"`
	StabiliseDetails  []StabiliseDetail  `json:"stabilise_details"`
	DuckingAnalysis   DuckingAnalysis    `json:"ducking_analysis"`
	SegmentCount      int                `json:"segment_count,omitempty"`
}

// RenderPlan is the compiled, ready-to-execute command description.
type RenderPlan struct {
	Inputs       []string    `json:"inputs"`
	InputMeta    []InputMeta `json:"input_meta"`
	Steps        []PlanStep  `json:"steps"`
	OutputPath   string      `json:"output_path"`
	Profile      string      `json:"profile"`
	Filters      []string    `json:"filters"`
	AudioFilters []string    `json:"audio_filters"`
	StartMS      int64       `json:"start_ms"`
	EndMS        int64       `json:"end_ms"`
	OverlapMS    int64       `json:"overlap_ms"`
	Meta         PlanMeta    `json:"meta"`
}

// HasWarnings reports whether the plan was produced with degraded fidelity.
func (p RenderPlan) HasWarnings() bool {
	return len(p.Meta.Warnings) > 0
}

// RenderSegment is one logical window of a chunked render.
type RenderSegment struct {
	ProjectID    string         `json:"project_id"`
	SequenceID   string         `json:"sequence_id"`
	StartMS      int64          `json:"start_ms"`
	EndMS        int64          `json:"end_ms"`
	OverlapMS    int64          `json:"overlap_ms"`
	SegmentIndex int            `json:"segment_index"`
	CacheKey     string         `json:"cache_key"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// DurationMS is the nominal (logical) length of the segment.
func (s RenderSegment) DurationMS() int64 {
	return s.EndMS - s.StartMS
}

// RenderResult is a planning-only result: no media has been produced.
type RenderResult struct {
	AssetID       string `json:"asset_id"`
	ArtifactID    string `json:"artifact_id"`
	URI           string `json:"uri"`
	RenderProfile string `json:"render_profile"`
	PlanPreview   string `json:"plan_preview"`
}
