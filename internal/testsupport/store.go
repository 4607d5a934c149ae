package testsupport

import (
	"context"
	"testing"
	"time"

	"reelplan/internal/config"
	"reelplan/internal/media"
	"reelplan/internal/storage"
	"reelplan/internal/timeline"
)

// MustOpenStorage opens the timeline/media store for tests and registers cleanup.
func MustOpenStorage(t testing.TB, cfg *config.Config) *storage.Store {
	t.Helper()

	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Fixture seeds one project with a single sequence.
type Fixture struct {
	t          testing.TB
	Store      *storage.Store
	ProjectID  string
	SequenceID string
}

// FixtureUpdatedAt is the project revision timestamp fixtures are seeded with.
var FixtureUpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// SeedProject creates a project and its sequence.
func SeedProject(t testing.TB, store *storage.Store, projectID string, durationMS int64) *Fixture {
	t.Helper()

	ctx := context.Background()
	f := &Fixture{t: t, Store: store, ProjectID: projectID, SequenceID: projectID + "-seq"}
	if err := store.PutProject(ctx, timeline.Project{ID: projectID, Name: projectID, UpdatedAt: FixtureUpdatedAt}); err != nil {
		t.Fatalf("PutProject: %v", err)
	}
	if err := store.PutSequence(ctx, timeline.Sequence{ID: f.SequenceID, ProjectID: projectID, DurationMS: durationMS}); err != nil {
		t.Fatalf("PutSequence: %v", err)
	}
	return f
}

// AddTrack appends a track to the fixture sequence.
func (f *Fixture) AddTrack(track timeline.Track) timeline.Track {
	f.t.Helper()
	track.SequenceID = f.SequenceID
	if err := f.Store.PutTrack(context.Background(), track); err != nil {
		f.t.Fatalf("PutTrack: %v", err)
	}
	return track
}

// AddClip stores a clip, defaulting speed to 1.
func (f *Fixture) AddClip(clip timeline.Clip) timeline.Clip {
	f.t.Helper()
	if clip.Speed == 0 {
		clip.Speed = 1
	}
	if err := f.Store.PutClip(context.Background(), clip); err != nil {
		f.t.Fatalf("PutClip: %v", err)
	}
	return clip
}

// AddAsset stores a media asset.
func (f *Fixture) AddAsset(asset media.Asset) {
	f.t.Helper()
	if err := f.Store.PutAsset(context.Background(), asset); err != nil {
		f.t.Fatalf("PutAsset: %v", err)
	}
}

// AddArtifact stores a derived artifact.
func (f *Fixture) AddArtifact(artifact media.Artifact) {
	f.t.Helper()
	if err := f.Store.PutArtifact(context.Background(), artifact); err != nil {
		f.t.Fatalf("PutArtifact: %v", err)
	}
}

// AddFilters attaches a filter stack to a target.
func (f *Fixture) AddFilters(targetType timeline.TargetType, targetID string, filters ...timeline.Filter) {
	f.t.Helper()
	stack := timeline.FilterStack{ID: string(targetType) + "-" + targetID, TargetType: targetType, TargetID: targetID, Filters: filters}
	if err := f.Store.PutFilterStack(context.Background(), stack); err != nil {
		f.t.Fatalf("PutFilterStack: %v", err)
	}
}

// AddAutomation stores an automation lane.
func (f *Fixture) AddAutomation(auto timeline.Automation) {
	f.t.Helper()
	if err := f.Store.PutAutomation(context.Background(), auto); err != nil {
		f.t.Fatalf("PutAutomation: %v", err)
	}
}

// AddTransition stores a transition on the fixture sequence.
func (f *Fixture) AddTransition(tr timeline.Transition) {
	f.t.Helper()
	tr.SequenceID = f.SequenceID
	if err := f.Store.PutTransition(context.Background(), tr); err != nil {
		f.t.Fatalf("PutTransition: %v", err)
	}
}
