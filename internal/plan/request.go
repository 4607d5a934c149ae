package plan

import (
	"errors"
	"fmt"
	"strings"
)

// CaptionOptions requests burned-in captions from a caption artifact.
type CaptionOptions struct {
	ArtifactID string            `json:"artifact_id" yaml:"artifact_id"`
	Style      map[string]string `json:"style,omitempty" yaml:"style,omitempty"`
}

// RenderRequest describes one compile. EndMS of zero leaves the window open
// to the end of the sequence. When planning segments, an OverlapMS of zero
// takes the configured default; NoOverlap forces zero overlap.
type RenderRequest struct {
	ProjectID         string          `json:"project_id"`
	TenantID          string          `json:"tenant_id,omitempty"`
	Env               string          `json:"env,omitempty"`
	Profile           string          `json:"render_profile,omitempty"`
	StartMS           int64           `json:"start_ms"`
	EndMS             int64           `json:"end_ms,omitempty"`
	OverlapMS         int64           `json:"overlap_ms,omitempty"`
	NoOverlap         bool            `json:"no_overlap,omitempty"`
	SegmentDurationMS int64           `json:"segment_duration_ms,omitempty"`
	SegmentIndex      *int            `json:"segment_index,omitempty"`
	UseProxies        bool            `json:"use_proxies,omitempty"`
	NormalizeAudio    bool            `json:"normalize_audio,omitempty"`
	TargetLoudness    float64         `json:"target_loudness,omitempty"`
	Ducking           bool            `json:"ducking,omitempty"`
	Captions          *CaptionOptions `json:"captions,omitempty"`
	OutputPath        string          `json:"output_path,omitempty"`
}

// Bounded reports whether the request closes its window with EndMS.
func (r RenderRequest) Bounded() bool {
	return r.EndMS > 0
}

// Validate checks the request fields that do not depend on stored state.
func (r RenderRequest) Validate() error {
	var problems []string
	if strings.TrimSpace(r.ProjectID) == "" {
		problems = append(problems, "project_id is required")
	}
	if r.StartMS < 0 {
		problems = append(problems, "start_ms must be >= 0")
	}
	if r.OverlapMS < 0 {
		problems = append(problems, "overlap_ms must be >= 0")
	}
	if r.NoOverlap && r.OverlapMS > 0 {
		problems = append(problems, "overlap_ms must be 0 when no_overlap is set")
	}
	if r.Bounded() && r.EndMS <= r.StartMS {
		problems = append(problems, fmt.Sprintf("end_ms %d must exceed start_ms %d", r.EndMS, r.StartMS))
	}
	if r.SegmentDurationMS < 0 {
		problems = append(problems, "segment_duration_ms must be >= 0")
	}
	if r.Captions != nil && strings.TrimSpace(r.Captions.ArtifactID) == "" {
		problems = append(problems, "captions.artifact_id is required when captions are requested")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Window is the widened compile range derived from a request.
type Window struct {
	StartMS int64
	EndMS   int64
	Bounded bool
}

// Window widens [StartMS, EndMS) by the overlap on both sides, clamping the
// start at zero.
func (r RenderRequest) Window() Window {
	w := Window{StartMS: max(0, r.StartMS-r.OverlapMS)}
	if r.Bounded() {
		w.EndMS = r.EndMS + r.OverlapMS
		w.Bounded = true
	}
	return w
}

// Excludes reports whether a clip spanning [start, end) lies wholly outside the window.
func (w Window) Excludes(start, end int64) bool {
	if end <= w.StartMS {
		return true
	}
	return w.Bounded && start >= w.EndMS
}
