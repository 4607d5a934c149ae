package compiler

import (
	"context"
	"fmt"
	"strings"

	"reelplan/internal/filters"
	"reelplan/internal/logging"
	"reelplan/internal/plan"
	"reelplan/internal/timeline"
	"reelplan/internal/transitions"
)

// transitionLink binds a lowered transition to the entries it joins.
type transitionLink struct {
	plan transitions.Plan
	from *clipEntry
	to   *clipEntry
}

// layer is a run of clips joined by transitions, placed as one stream.
type layer struct {
	first      *clipEntry
	last       *clipEntry
	label      string
	startMS    int64
	durationMS int64
}

// blendModes maps clip blend modes to ffmpeg blend all_mode values.
var blendModes = map[timeline.BlendMode]string{
	timeline.BlendAdd:      "addition",
	timeline.BlendScreen:   "screen",
	timeline.BlendMultiply: "multiply",
	timeline.BlendOverlay:  "overlay",
}

// compose joins transitions, folds every layer over a black canvas in track
// order, applies global filters and captions, and returns the final video
// label.
func (c *Compiler) compose(ctx context.Context, cc *CompileContext, snap snapshot, entries []*clipEntry) (string, error) {
	c.linkTransitions(cc, snap, entries)
	layers := c.videoLayers(cc, entries)

	g := cc.graph
	p := cc.Profile
	canvas := cc.nextGlobal("canvas")
	g.Source(fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s,format=%s",
		p.Width, p.Height, filters.FormatNumber(p.FPS), seconds(max(cc.DurationMS, 1)), p.PixelFormat), canvas)
	cur := canvas

	for n, l := range layers {
		placed := g.Clip(l.first.index, "place")
		g.Chain([]string{l.label}, fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", seconds(l.startMS)), placed)

		out := g.Clip(l.first.index, "comp")
		mode := l.first.clip.Blend()
		if n == 0 || mode == timeline.BlendNormal {
			g.Chain([]string{cur, placed}, "overlay=0:0:eof_action=pass", out)
		} else {
			cc.Decision("blend_mode", string(mode), "clip blend mode", logging.String(logging.FieldClipID, l.first.clip.ID))
			g.Chain([]string{cur, placed}, "blend=all_mode="+blendModes[mode]+":eof_action=pass", out)
		}
		cur = out
	}

	var err error
	if cur, err = c.applyGlobalFilters(ctx, cc, snap, cur); err != nil {
		return "", err
	}
	cur = c.applyCaptions(ctx, cc, cur)

	vout := g.Named("vout")
	g.Chain([]string{cur}, "format="+p.PixelFormat, vout)
	return vout, nil
}

// linkTransitions lowers the sequence transitions whose clips both survived
// windowing and records their metadata.
func (c *Compiler) linkTransitions(cc *CompileContext, snap snapshot, entries []*clipEntry) {
	byID := make(map[string]*clipEntry, len(entries))
	lookup := make(map[string]timeline.Clip, len(entries))
	for _, e := range entries {
		byID[e.clip.ID] = e
		lookup[e.clip.ID] = e.clip
	}
	for _, tp := range transitions.BuildPlans(snap.transitions, lookup) {
		link := transitionLink{plan: tp, from: byID[tp.Transition.FromClipID], to: byID[tp.Transition.ToClipID]}
		if tp.Metadata.Fallback {
			cc.Warn(warnCode("transition_kind_unknown", tp.Transition.ID), "unknown transition kind; using fade",
				logging.String("transition_id", tp.Transition.ID),
				logging.String("kind", tp.Transition.Kind),
			)
		}
		cc.links = append(cc.links, link)
		cc.transitions = append(cc.transitions, tp.Metadata)
	}
}

// videoLayers starts one layer per clip with video and merges layers joined
// by a transition with xfade. A transition only joins the tail clip of one
// layer to the head clip of another.
func (c *Compiler) videoLayers(cc *CompileContext, entries []*clipEntry) []*layer {
	var layers []*layer
	owner := make(map[*clipEntry]*layer)
	for _, e := range entries {
		if !e.hasVideo {
			continue
		}
		l := &layer{first: e, last: e, label: e.video, startMS: e.offsetMS(cc.Window), durationMS: e.clip.DurationMS()}
		layers = append(layers, l)
		owner[e] = l
	}

	for _, link := range cc.links {
		a, b := owner[link.from], owner[link.to]
		if a == nil || b == nil || a == b || a.last != link.from || b.first != link.to {
			cc.Decision("transition_video", "skipped", "clips are not adjacent layer ends",
				logging.String("transition_id", link.plan.Transition.ID))
			continue
		}
		offset := a.durationMS - link.plan.DurationMS
		out := cc.graph.Clip(link.from.index, "xfade")
		cc.graph.Chain([]string{a.label, b.label}, link.plan.VideoFilterAt(offset), out)

		a.label = out
		a.last = b.last
		a.durationMS = max(offset, 0) + b.durationMS
		for e, l := range owner {
			if l == b {
				owner[e] = a
			}
		}
	}

	merged := layers[:0]
	for _, l := range layers {
		if owner[l.first] == l {
			merged = append(merged, l)
		}
	}
	return merged
}

// applyGlobalFilters lowers track filter stacks in track order, then the
// sequence stack. Global filters apply to the whole frame.
func (c *Compiler) applyGlobalFilters(ctx context.Context, cc *CompileContext, snap snapshot, cur string) (string, error) {
	type target struct {
		kind timeline.TargetType
		id   string
	}
	targets := make([]target, 0, len(snap.tracks)+1)
	for _, track := range snap.tracks {
		targets = append(targets, target{timeline.TargetTrack, track.ID})
	}
	targets = append(targets, target{timeline.TargetSequence, snap.sequence.ID})

	for _, t := range targets {
		stack, err := c.timeline.GetFilterStack(ctx, t.kind, t.id)
		if err != nil {
			return "", storeError("load "+string(t.kind)+" filters", t.id, err)
		}
		for j, f := range stack.Filters {
			if !f.Enabled {
				continue
			}
			expr, kind, ok, err := c.lowerFilter(ctx, cc, f, t.id, j)
			if err != nil {
				return "", err
			}
			if !ok {
				continue
			}
			if kind.Region() != filters.RegionNone || f.MaskArtifactID != "" {
				cc.Warn(fmt.Sprintf("global_filter_unmasked_%s_%s_filter_%d", t.kind, t.id, j), "masks are not applied to global filters",
					logging.String("target_type", string(t.kind)),
					logging.String("target_id", t.id),
				)
			}
			out := cc.nextGlobal("fx")
			cc.graph.Chain([]string{cur}, expr, out)
			cur = out
		}
	}
	return cur, nil
}

// captionStyleKeys lists supported style keys in output order with their
// ASS field names.
var captionStyleKeys = []struct{ key, ass string }{
	{"font_name", "FontName"},
	{"font_size", "Fontsize"},
	{"primary_color", "PrimaryColour"},
	{"outline_color", "OutlineColour"},
	{"back_color", "BackColour"},
	{"bold", "Bold"},
	{"italic", "Italic"},
	{"outline", "Outline"},
	{"shadow", "Shadow"},
	{"alignment", "Alignment"},
	{"margin_v", "MarginV"},
}

// captionStyle renders the force_style value; unknown keys are ignored.
func captionStyle(style map[string]string) string {
	var parts []string
	for _, k := range captionStyleKeys {
		if v := strings.TrimSpace(style[k.key]); v != "" {
			parts = append(parts, k.ass+"="+filters.EscapeValue(v))
		}
	}
	return strings.Join(parts, ",")
}

// applyCaptions burns in captions when requested. Any failure to produce a
// subtitle file is a soft degradation.
func (c *Compiler) applyCaptions(ctx context.Context, cc *CompileContext, cur string) string {
	opts := cc.Request.Captions
	if opts == nil {
		return cur
	}
	notice := plan.DependencyNotice{Kind: "captions", ArtifactID: opts.ArtifactID, Status: plan.DependencyMissing}
	if c.captions == nil {
		cc.Warn(warnCode("captions_unavailable", opts.ArtifactID), "captions requested but no caption converter configured",
			logging.String("artifact_id", opts.ArtifactID))
		cc.Notice(notice)
		return cur
	}
	path, err := c.captions.ConvertToSRT(ctx, opts.ArtifactID)
	if err != nil {
		cc.Warn(warnCode("captions_unavailable", opts.ArtifactID), "caption conversion failed; rendering without captions",
			logging.String("artifact_id", opts.ArtifactID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the caption artifact format"),
		)
		cc.Notice(notice)
		return cur
	}
	notice.Status = plan.DependencyAvailable
	cc.Notice(notice)

	expr := "subtitles=filename='" + filters.EscapeValue(path) + "'"
	if style := captionStyle(opts.Style); style != "" {
		expr += ":force_style='" + style + "'"
	}
	// Cues are timed on the sequence; the graph starts at the window start.
	if start := cc.Window.StartMS; start > 0 {
		expr = "setpts=PTS+" + seconds(start) + "/TB," + expr + ",setpts=PTS-STARTPTS"
	}
	out := cc.nextGlobal("captions")
	cc.graph.Chain([]string{cur}, expr, out)
	return out
}
