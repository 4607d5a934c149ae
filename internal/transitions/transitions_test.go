package transitions

import (
	"testing"

	"reelplan/internal/timeline"
)

func clip(id string, start, length int64) timeline.Clip {
	return timeline.Clip{ID: id, InMS: 0, OutMS: length, StartMS: start, Speed: 1}
}

func TestBuildCrossfade(t *testing.T) {
	from := clip("a", 0, 5000)
	to := clip("b", 4500, 4000)
	p := Build(timeline.Transition{ID: "t1", FromClipID: "a", ToClipID: "b", Kind: "crossfade", DurationMS: 500}, from, to)

	if p.VideoFilter != "xfade=transition=fade:duration=0.5:offset=4.5" {
		t.Fatalf("unexpected video fragment %q", p.VideoFilter)
	}
	if p.AudioFilter != "acrossfade=d=0.5:c1=tri:c2=tri" {
		t.Fatalf("unexpected audio fragment %q", p.AudioFilter)
	}
	if p.Metadata.Kind != "crossfade" || p.Metadata.DurationMS != 500 || p.Metadata.Fallback {
		t.Fatalf("unexpected metadata %+v", p.Metadata)
	}
}

func TestBuildUnknownKindFallsBack(t *testing.T) {
	p := Build(timeline.Transition{Kind: "star_wipe", DurationMS: 250}, clip("a", 0, 1000), clip("b", 1000, 1000))
	if p.Effect != "fade" || !p.Metadata.Fallback || p.Metadata.Kind != "fade" {
		t.Fatalf("expected fade fallback, got %+v", p.Metadata)
	}
}

func TestBuildClampsDuration(t *testing.T) {
	p := Build(timeline.Transition{Kind: "wipe_left", DurationMS: 10_000}, clip("a", 0, 2000), clip("b", 2000, 800))
	if p.DurationMS != 800 {
		t.Fatalf("expected duration clamped to shorter clip, got %d", p.DurationMS)
	}
	if p.VideoFilter != "xfade=transition=wipeleft:duration=0.8:offset=1.2" {
		t.Fatalf("unexpected fragment %q", p.VideoFilter)
	}

	def := Build(timeline.Transition{Kind: "dissolve"}, clip("a", 0, 2000), clip("b", 2000, 2000))
	if def.DurationMS != DefaultDurationMS {
		t.Fatalf("expected default duration, got %d", def.DurationMS)
	}
}

func TestBuildWithoutAudio(t *testing.T) {
	muted := clip("b", 1000, 1000)
	muted.VolumeDB = -120
	p := Build(timeline.Transition{Kind: "fade"}, clip("a", 0, 1000), muted)
	if p.HasAudio() || p.Metadata.Audio {
		t.Fatal("expected no audio fragment when a clip is muted")
	}

	q := Build(timeline.Transition{Kind: "fade", Meta: map[string]any{"audio": false}}, clip("a", 0, 1000), clip("b", 1000, 1000))
	if q.HasAudio() {
		t.Fatal("expected audio=false meta to suppress acrossfade")
	}
	if q.Metadata.Kind == "" || q.Metadata.DurationMS == 0 {
		t.Fatal("metadata must always record kind and duration")
	}
}

func TestBuildPlansSkipsMissingClips(t *testing.T) {
	clips := map[string]timeline.Clip{"a": clip("a", 0, 1000), "b": clip("b", 1000, 1000)}
	items := []timeline.Transition{
		{ID: "t1", FromClipID: "a", ToClipID: "b", Kind: "fade"},
		{ID: "t2", FromClipID: "b", ToClipID: "gone", Kind: "fade"},
	}
	plans := BuildPlans(items, clips)
	if len(plans) != 1 || plans[0].Transition.ID != "t1" {
		t.Fatalf("unexpected plans %+v", plans)
	}
}
