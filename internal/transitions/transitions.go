// Package transitions lowers timeline transitions into xfade/acrossfade
// fragments. Fragments carry no pad labels; the compiler binds them to the
// outputs of the clips they join.
package transitions

import (
	"strings"

	"reelplan/internal/filters"
	"reelplan/internal/media"
	"reelplan/internal/plan"
	"reelplan/internal/timeline"
)

// DefaultDurationMS applies when a transition has no positive duration.
const DefaultDurationMS = 500

// effects maps transition kinds to xfade transition names.
var effects = map[string]string{
	"crossfade":   "fade",
	"fade":        "fade",
	"dissolve":    "dissolve",
	"fade_black":  "fadeblack",
	"fade_white":  "fadewhite",
	"wipe_left":   "wipeleft",
	"wipe_right":  "wiperight",
	"slide_left":  "slideleft",
	"slide_right": "slideright",
	"circle_open": "circleopen",
}

// Plan is the lowered form of one transition.
type Plan struct {
	Transition  timeline.Transition
	Effect      string
	DurationMS  int64
	VideoFilter string
	AudioFilter string
	Metadata    plan.TransitionMeta
}

// HasAudio reports whether the transition crossfades audio.
func (p Plan) HasAudio() bool {
	return p.AudioFilter != ""
}

// VideoFilterAt renders the xfade fragment for a given offset into the
// outgoing stream. The compiler uses it when transitions chain and the
// outgoing stream is itself a previous transition's output.
func (p Plan) VideoFilterAt(offsetMS int64) string {
	return "xfade=transition=" + p.Effect +
		":duration=" + seconds(p.DurationMS) +
		":offset=" + seconds(max(0, offsetMS))
}

// BuildPlans lowers each transition whose clips are both present in clips.
// Transitions referencing clips outside the lookup are skipped; the planner
// never alters clip timing.
func BuildPlans(items []timeline.Transition, clips map[string]timeline.Clip) []Plan {
	plans := make([]Plan, 0, len(items))
	for _, tr := range items {
		from, okFrom := clips[tr.FromClipID]
		to, okTo := clips[tr.ToClipID]
		if !okFrom || !okTo {
			continue
		}
		plans = append(plans, Build(tr, from, to))
	}
	return plans
}

// Build lowers a single transition between two clips.
func Build(tr timeline.Transition, from, to timeline.Clip) Plan {
	kind := strings.ToLower(strings.TrimSpace(tr.Kind))
	effect, ok := effects[kind]
	fallback := !ok
	if fallback {
		kind = "fade"
		effect = effects[kind]
	}

	duration := tr.DurationMS
	if duration <= 0 {
		duration = DefaultDurationMS
	}
	duration = min(duration, from.DurationMS(), to.DurationMS())
	duration = max(duration, 1)

	p := Plan{
		Transition: tr,
		Effect:     effect,
		DurationMS: duration,
	}
	p.VideoFilter = p.VideoFilterAt(from.DurationMS() - duration)

	audio := media.MetaBool(tr.Meta, "audio", true) && !from.Muted() && !to.Muted()
	if audio {
		p.AudioFilter = "acrossfade=d=" + seconds(duration) + ":c1=tri:c2=tri"
	}

	p.Metadata = plan.TransitionMeta{
		ID:         tr.ID,
		Kind:       kind,
		Effect:     effect,
		DurationMS: duration,
		FromClipID: tr.FromClipID,
		ToClipID:   tr.ToClipID,
		Audio:      audio,
		Fallback:   fallback,
	}
	return p
}

func seconds(ms int64) string {
	return filters.FormatNumber(float64(ms) / 1000)
}
