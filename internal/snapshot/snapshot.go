// Package snapshot imports timeline and media state from a YAML document
// into the SQLite store, so plans can be compiled from a file without a
// live editing backend.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"reelplan/internal/media"
	"reelplan/internal/services"
	"reelplan/internal/timeline"
)

// Document is the top-level snapshot file.
type Document struct {
	Projects []Project `yaml:"projects"`
	Assets   []Asset   `yaml:"assets"`
}

// Project mirrors timeline.Project plus its sequences.
type Project struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	UpdatedAt time.Time  `yaml:"updated_at"`
	Sequences []Sequence `yaml:"sequences"`
}

// Sequence mirrors timeline.Sequence plus its children.
type Sequence struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	DurationMS  int64        `yaml:"duration_ms"`
	Filters     []Filter     `yaml:"filters"`
	Tracks      []Track      `yaml:"tracks"`
	Transitions []Transition `yaml:"transitions"`
}

// Track mirrors timeline.Track plus its children.
type Track struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	Kind       string       `yaml:"kind"`
	AudioRole  string       `yaml:"audio_role"`
	Filters    []Filter     `yaml:"filters"`
	Automation []Automation `yaml:"automation"`
	Clips      []Clip       `yaml:"clips"`
}

// Clip mirrors timeline.Clip.
type Clip struct {
	ID             string         `yaml:"id"`
	AssetID        string         `yaml:"asset_id"`
	InMS           int64          `yaml:"in_ms"`
	OutMS          int64          `yaml:"out_ms"`
	StartMS        int64          `yaml:"start_ms"`
	Speed          float64        `yaml:"speed"`
	VolumeDB       float64        `yaml:"volume_db"`
	BlendMode      string         `yaml:"blend_mode"`
	Stabilise      bool           `yaml:"stabilise"`
	MaskArtifactID string         `yaml:"mask_artifact_id"`
	Meta           map[string]any `yaml:"meta"`
	Filters        []Filter       `yaml:"filters"`
	Automation     []Automation   `yaml:"automation"`
}

// Filter mirrors timeline.Filter. Enabled defaults to true.
type Filter struct {
	Type           string         `yaml:"type"`
	Params         map[string]any `yaml:"params"`
	Enabled        *bool          `yaml:"enabled"`
	MaskArtifactID string         `yaml:"mask_artifact_id"`
}

// Automation mirrors timeline.Automation.
type Automation struct {
	Property  string     `yaml:"property"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe mirrors timeline.Keyframe.
type Keyframe struct {
	TimeMS int64   `yaml:"time_ms"`
	Value  float64 `yaml:"value"`
}

// Transition mirrors timeline.Transition.
type Transition struct {
	ID         string         `yaml:"id"`
	From       string         `yaml:"from"`
	To         string         `yaml:"to"`
	Kind       string         `yaml:"kind"`
	DurationMS int64          `yaml:"duration_ms"`
	Meta       map[string]any `yaml:"meta"`
}

// Asset mirrors media.Asset plus its derived artifacts.
type Asset struct {
	ID        string         `yaml:"id"`
	SourceURI string         `yaml:"source_uri"`
	Meta      map[string]any `yaml:"meta"`
	Artifacts []Artifact     `yaml:"artifacts"`
}

// Artifact mirrors media.Artifact.
type Artifact struct {
	ID   string         `yaml:"id"`
	Kind string         `yaml:"kind"`
	URI  string         `yaml:"uri"`
	Meta map[string]any `yaml:"meta"`
}

// Writer is the storage surface the importer needs.
type Writer interface {
	PutProject(ctx context.Context, p timeline.Project) error
	PutSequence(ctx context.Context, seq timeline.Sequence) error
	PutTrack(ctx context.Context, track timeline.Track) error
	PutClip(ctx context.Context, clip timeline.Clip) error
	PutFilterStack(ctx context.Context, stack timeline.FilterStack) error
	PutAutomation(ctx context.Context, auto timeline.Automation) error
	PutTransition(ctx context.Context, tr timeline.Transition) error
	PutAsset(ctx context.Context, asset media.Asset) error
	PutArtifact(ctx context.Context, artifact media.Artifact) error
}

// Summary counts what an import wrote.
type Summary struct {
	Projects    int
	Sequences   int
	Tracks      int
	Clips       int
	Transitions int
	Assets      int
	Artifacts   int
}

// Decode parses a snapshot document.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, services.Wrap(services.ErrValidation, "snapshot", "decode", "", err)
	}
	return doc, nil
}

// LoadFile reads and decodes a snapshot file.
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, services.Wrap(services.ErrConfiguration, "snapshot", "open", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Import validates doc and writes it through w. Nothing is written when
// validation fails.
func Import(ctx context.Context, w Writer, doc Document) (Summary, error) {
	batch, err := convert(doc)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrValidation, "snapshot", "validate", "", err)
	}
	if err := batch.write(ctx, w); err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "snapshot", "write", "", err)
	}
	return batch.summary, nil
}

type batch struct {
	projects    []timeline.Project
	sequences   []timeline.Sequence
	tracks      []timeline.Track
	clips       []timeline.Clip
	stacks      []timeline.FilterStack
	automation  []timeline.Automation
	transitions []timeline.Transition
	assets      []media.Asset
	artifacts   []media.Artifact
	summary     Summary
}

func convert(doc Document) (*batch, error) {
	b := &batch{}
	for _, p := range doc.Projects {
		if p.ID == "" {
			return nil, fmt.Errorf("project without id")
		}
		updated := p.UpdatedAt
		if updated.IsZero() {
			updated = time.Unix(0, 0).UTC()
		}
		b.projects = append(b.projects, timeline.Project{ID: p.ID, Name: p.Name, CreatedAt: updated, UpdatedAt: updated})
		for si, seq := range p.Sequences {
			if err := b.addSequence(p.ID, si, seq); err != nil {
				return nil, err
			}
		}
	}
	for _, a := range doc.Assets {
		if a.ID == "" {
			return nil, fmt.Errorf("asset without id")
		}
		b.assets = append(b.assets, media.Asset{ID: a.ID, SourceURI: a.SourceURI, Meta: a.Meta})
		for _, art := range a.Artifacts {
			if art.ID == "" || art.Kind == "" {
				return nil, fmt.Errorf("asset %s: artifact needs id and kind", a.ID)
			}
			b.artifacts = append(b.artifacts, media.Artifact{ID: art.ID, Kind: art.Kind, ParentAssetID: a.ID, URI: art.URI, Meta: art.Meta})
		}
	}
	b.summary = Summary{
		Projects:    len(b.projects),
		Sequences:   len(b.sequences),
		Tracks:      len(b.tracks),
		Clips:       len(b.clips),
		Transitions: len(b.transitions),
		Assets:      len(b.assets),
		Artifacts:   len(b.artifacts),
	}
	return b, nil
}

func (b *batch) addSequence(projectID string, order int, seq Sequence) error {
	if seq.ID == "" {
		return fmt.Errorf("project %s: sequence %d without id", projectID, order)
	}
	b.sequences = append(b.sequences, timeline.Sequence{
		ID: seq.ID, ProjectID: projectID, Name: seq.Name, Order: order, DurationMS: seq.DurationMS,
	})
	b.addStack(timeline.TargetSequence, seq.ID, seq.Filters)

	clipIDs := make(map[string]bool)
	for ti, tr := range seq.Tracks {
		if tr.ID == "" {
			return fmt.Errorf("sequence %s: track %d without id", seq.ID, ti)
		}
		kind := timeline.TrackKind(tr.Kind)
		if kind == "" {
			kind = timeline.TrackVideo
		}
		role := timeline.AudioRole(tr.AudioRole)
		if role == "" {
			role = timeline.RoleGeneric
		}
		b.tracks = append(b.tracks, timeline.Track{
			ID: tr.ID, SequenceID: seq.ID, Name: tr.Name, Order: ti, Kind: kind, AudioRole: role,
		})
		b.addStack(timeline.TargetTrack, tr.ID, tr.Filters)
		if err := b.addAutomation(timeline.TargetTrack, tr.ID, tr.Automation); err != nil {
			return err
		}

		for _, c := range tr.Clips {
			speed := c.Speed
			if speed == 0 {
				speed = 1
			}
			clip := timeline.Clip{
				ID: c.ID, TrackID: tr.ID, AssetID: c.AssetID, InMS: c.InMS, OutMS: c.OutMS, StartMS: c.StartMS,
				Speed: speed, VolumeDB: c.VolumeDB, BlendMode: timeline.BlendMode(c.BlendMode),
				Stabilise: c.Stabilise, MaskArtifactID: c.MaskArtifactID, Meta: c.Meta,
			}
			if c.ID == "" {
				return fmt.Errorf("track %s: clip without id", tr.ID)
			}
			if err := clip.Validate(); err != nil {
				return err
			}
			clipIDs[c.ID] = true
			b.clips = append(b.clips, clip)
			b.addStack(timeline.TargetClip, c.ID, c.Filters)
			if err := b.addAutomation(timeline.TargetClip, c.ID, c.Automation); err != nil {
				return err
			}
		}
	}

	for _, t := range seq.Transitions {
		if !clipIDs[t.From] || !clipIDs[t.To] {
			return fmt.Errorf("transition %s: clips %q and %q must both be on sequence %s", t.ID, t.From, t.To, seq.ID)
		}
		id := t.ID
		if id == "" {
			id = t.From + "-" + t.To
		}
		b.transitions = append(b.transitions, timeline.Transition{
			ID: id, SequenceID: seq.ID, FromClipID: t.From, ToClipID: t.To, Kind: t.Kind, DurationMS: t.DurationMS, Meta: t.Meta,
		})
	}
	return nil
}

func (b *batch) addStack(targetType timeline.TargetType, targetID string, in []Filter) {
	if len(in) == 0 {
		return
	}
	stack := timeline.FilterStack{ID: string(targetType) + "-" + targetID, TargetType: targetType, TargetID: targetID}
	for _, f := range in {
		enabled := f.Enabled == nil || *f.Enabled
		stack.Filters = append(stack.Filters, timeline.Filter{Type: f.Type, Params: f.Params, Enabled: enabled, MaskArtifactID: f.MaskArtifactID})
	}
	b.stacks = append(b.stacks, stack)
}

func (b *batch) addAutomation(targetType timeline.TargetType, targetID string, in []Automation) error {
	for i, a := range in {
		auto := timeline.Automation{
			ID:         fmt.Sprintf("%s-%s-%d", targetType, targetID, i),
			TargetType: targetType,
			TargetID:   targetID,
			Property:   a.Property,
		}
		if auto.Property == "" {
			auto.Property = timeline.PropertyVolumeDB
		}
		for _, kf := range a.Keyframes {
			auto.Keyframes = append(auto.Keyframes, timeline.Keyframe{TimeMS: kf.TimeMS, Value: kf.Value})
		}
		if err := auto.Validate(); err != nil {
			return err
		}
		b.automation = append(b.automation, auto)
	}
	return nil
}

func (b *batch) write(ctx context.Context, w Writer) error {
	for _, p := range b.projects {
		if err := w.PutProject(ctx, p); err != nil {
			return fmt.Errorf("project %s: %w", p.ID, err)
		}
	}
	for _, s := range b.sequences {
		if err := w.PutSequence(ctx, s); err != nil {
			return fmt.Errorf("sequence %s: %w", s.ID, err)
		}
	}
	for _, t := range b.tracks {
		if err := w.PutTrack(ctx, t); err != nil {
			return fmt.Errorf("track %s: %w", t.ID, err)
		}
	}
	for _, c := range b.clips {
		if err := w.PutClip(ctx, c); err != nil {
			return fmt.Errorf("clip %s: %w", c.ID, err)
		}
	}
	for _, s := range b.stacks {
		if err := w.PutFilterStack(ctx, s); err != nil {
			return fmt.Errorf("filter stack %s: %w", s.ID, err)
		}
	}
	for _, a := range b.automation {
		if err := w.PutAutomation(ctx, a); err != nil {
			return fmt.Errorf("automation %s: %w", a.ID, err)
		}
	}
	for _, t := range b.transitions {
		if err := w.PutTransition(ctx, t); err != nil {
			return fmt.Errorf("transition %s: %w", t.ID, err)
		}
	}
	for _, a := range b.assets {
		if err := w.PutAsset(ctx, a); err != nil {
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}
	}
	for _, a := range b.artifacts {
		if err := w.PutArtifact(ctx, a); err != nil {
			return fmt.Errorf("artifact %s: %w", a.ID, err)
		}
	}
	return nil
}
