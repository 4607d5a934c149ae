package timeline

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNotFound is returned by stores when a requested entity does not exist.
var ErrNotFound = errors.New("timeline entity not found")

// Project is the root of an editing timeline.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sequence is an ordered timeline within a project.
type Sequence struct {
	ID         string
	ProjectID  string
	Name       string
	Order      int
	DurationMS int64
}

// TrackKind distinguishes lanes that carry picture from audio-only lanes.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// AudioRole drives ducking decisions.
type AudioRole string

const (
	RoleGeneric    AudioRole = "generic"
	RoleDialogue   AudioRole = "dialogue"
	RoleMusic      AudioRole = "music"
	RoleBackground AudioRole = "background"
)

// Ducked reports whether clips on a track with this role are attenuated under speech.
func (r AudioRole) Ducked() bool {
	return r == RoleMusic || r == RoleBackground
}

// Track is an ordered lane within a sequence.
type Track struct {
	ID         string
	SequenceID string
	Name       string
	Order      int
	Kind       TrackKind
	AudioRole  AudioRole
}

// CarriesVideo reports whether clips on the track contribute picture.
func (t Track) CarriesVideo() bool {
	return t.Kind != TrackAudio
}

// BlendMode selects how a clip composites over the layers beneath it.
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendAdd      BlendMode = "add"
	BlendScreen   BlendMode = "screen"
	BlendMultiply BlendMode = "multiply"
	BlendOverlay  BlendMode = "overlay"
)

// MutedVolumeDB is the gain at or below which a clip is treated as silent.
const MutedVolumeDB = -96.0

// Clip is a trimmed reference to a media asset placed on a track.
type Clip struct {
	ID             string
	TrackID        string
	AssetID        string
	InMS           int64
	OutMS          int64
	StartMS        int64
	Speed          float64
	VolumeDB       float64
	BlendMode      BlendMode
	Stabilise      bool
	MaskArtifactID string
	Meta           map[string]any
}

// Validate enforces the clip invariants: a positive source range and a
// positive playback rate.
func (c Clip) Validate() error {
	if c.OutMS <= c.InMS {
		return fmt.Errorf("clip %s: out_ms %d must exceed in_ms %d", c.ID, c.OutMS, c.InMS)
	}
	if c.Speed <= 0 || math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) {
		return fmt.Errorf("clip %s: speed must be positive, got %v", c.ID, c.Speed)
	}
	return nil
}

// EffectiveSpeed returns the playback rate, treating zero as 1.0.
func (c Clip) EffectiveSpeed() float64 {
	if c.Speed <= 0 {
		return 1
	}
	return c.Speed
}

// SourceDurationMS is the length of the trimmed source range.
func (c Clip) SourceDurationMS() int64 {
	return c.OutMS - c.InMS
}

// DurationMS is the clip's length on the timeline after speed is applied.
func (c Clip) DurationMS() int64 {
	return int64(math.Round(float64(c.SourceDurationMS()) / c.EffectiveSpeed()))
}

// EndMS is the timeline position at which the clip stops.
func (c Clip) EndMS() int64 {
	return c.StartMS + c.DurationMS()
}

// Muted reports whether the clip's constant gain silences it.
func (c Clip) Muted() bool {
	return c.VolumeDB <= MutedVolumeDB
}

// Blend returns the clip's blend mode, defaulting to normal.
func (c Clip) Blend() BlendMode {
	if c.BlendMode == "" {
		return BlendNormal
	}
	return c.BlendMode
}

// TargetType names the entity a filter stack or automation attaches to.
type TargetType string

const (
	TargetClip     TargetType = "clip"
	TargetTrack    TargetType = "track"
	TargetSequence TargetType = "sequence"
)

// Filter is one declarative effect in a stack.
type Filter struct {
	Type           string
	Params         map[string]any
	Enabled        bool
	MaskArtifactID string
}

// FilterStack is the ordered list of filters attached to one target.
type FilterStack struct {
	ID         string
	TargetType TargetType
	TargetID   string
	Filters    []Filter
}

// Keyframe is a single automation point. Clip automation times are relative
// to the clip's timeline start; track automation times are sequence times.
type Keyframe struct {
	TimeMS int64
	Value  float64
}

// PropertyVolumeDB is the automatable gain property.
const PropertyVolumeDB = "volume_db"

// Automation is a keyframed property on a clip or track.
type Automation struct {
	ID         string
	TargetType TargetType
	TargetID   string
	Property   string
	Keyframes  []Keyframe
}

// Validate enforces time-ordered keyframes.
func (a Automation) Validate() error {
	for i := 1; i < len(a.Keyframes); i++ {
		if a.Keyframes[i].TimeMS < a.Keyframes[i-1].TimeMS {
			return fmt.Errorf("automation %s: keyframe %d at %dms precedes %dms", a.ID, i, a.Keyframes[i].TimeMS, a.Keyframes[i-1].TimeMS)
		}
	}
	return nil
}

// Transition blends two adjacent clips of the same sequence.
type Transition struct {
	ID         string
	SequenceID string
	FromClipID string
	ToClipID   string
	Kind       string
	DurationMS int64
	Meta       map[string]any
}
