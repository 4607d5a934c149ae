package compiler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"reelplan/internal/filters"
	"reelplan/internal/graph"
	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/plan"
	"reelplan/internal/timeline"
)

// audioStream is a processed clip or crossfaded run of clips, not yet delayed.
type audioStream struct {
	first   *clipEntry
	last    *clipEntry
	label   string
	startMS int64
	lenMS   int64
}

// lowerAudio builds every clip's audio chain, applies transition crossfades,
// mixes the result and returns the final audio label.
func (c *Compiler) lowerAudio(ctx context.Context, cc *CompileContext, snap snapshot, entries []*clipEntry) string {
	speech := c.speechWindows(cc, entries)

	var streams []*audioStream
	owner := make(map[*clipEntry]*audioStream)
	for _, e := range entries {
		if !e.hasAudio {
			continue
		}
		label := c.lowerClipAudio(ctx, cc, e, speech)
		s := &audioStream{first: e, last: e, label: label, startMS: e.offsetMS(cc.Window), lenMS: e.clip.DurationMS()}
		streams = append(streams, s)
		owner[e] = s
	}

	for _, link := range cc.links {
		a, b := owner[link.from], owner[link.to]
		if !link.plan.HasAudio() || a == nil || b == nil || a == b || a.last != link.from || b.first != link.to {
			continue
		}
		out := cc.graph.Clip(link.from.index, "acrossfade")
		cc.graph.Chain([]string{a.label, b.label}, link.plan.AudioFilter, out)
		a.label = out
		a.last = b.last
		a.lenMS += b.lenMS - link.plan.DurationMS
		for e, s := range owner {
			if s == b {
				owner[e] = a
			}
		}
	}

	var mixInputs []string
	for _, s := range streams {
		if owner[s.first] != s {
			continue
		}
		if s.startMS <= 0 {
			mixInputs = append(mixInputs, s.label)
			continue
		}
		delayed := cc.graph.Clip(s.first.index, "adelay")
		cc.graph.Chain([]string{s.label}, fmt.Sprintf("adelay=delays=%d:all=1", s.startMS), delayed)
		mixInputs = append(mixInputs, delayed)
	}

	return c.mixAudio(cc, mixInputs)
}

// lowerClipAudio trims, retimes and gains one clip and returns its label.
// Windowing has already moved the trim-in point for clips starting before
// the window, so their delay is zero.
func (c *Compiler) lowerClipAudio(ctx context.Context, cc *CompileContext, e *clipEntry, speech []plan.SpeechWindow) string {
	in := c.audioInput(cc, e)
	stages := []string{
		fmt.Sprintf("atrim=start=%s:end=%s", seconds(e.clip.InMS), seconds(e.clip.OutMS)),
		"asetpts=PTS-STARTPTS",
	}
	if speed := e.clip.EffectiveSpeed(); speed != 1 {
		stages = append(stages, atempoChain(speed)...)
	}
	if e.clip.VolumeDB != 0 {
		stages = append(stages, "volume="+filters.FormatNumber(e.clip.VolumeDB)+"dB")
	}
	if expr := c.volumeAutomation(ctx, cc, e); expr != "" {
		stages = append(stages, "volume='pow(10,("+expr+")/20)':eval=frame")
	}
	if expr := c.duckingExpr(cc, e, speech); expr != "" {
		stages = append(stages, "volume='"+expr+"':eval=frame")
	}

	out := cc.graph.Clip(e.index, "a")
	cc.graph.Chain([]string{graph.Input(in, "a")}, strings.Join(stages, ","), out)
	return out
}

// audioInput returns the input index carrying the clip's audio. Dialogue
// clips read a voice-enhanced rendition when one exists.
func (c *Compiler) audioInput(cc *CompileContext, e *clipEntry) int {
	if e.track.AudioRole != timeline.RoleDialogue {
		return e.input
	}
	artifact, ok := media.FindKind(e.artifacts, media.KindVoiceEnhanced)
	if !ok || artifact.URI == "" {
		cc.Decision("dialogue_audio", "original", "no voice enhanced artifact", logging.String(logging.FieldClipID, e.clip.ID))
		return e.input
	}
	cc.Decision("dialogue_audio", "voice_enhanced", "voice enhanced artifact available",
		logging.String(logging.FieldClipID, e.clip.ID),
		logging.String("artifact_id", artifact.ID),
	)
	return cc.AddInput(plan.InputMeta{
		Kind:       plan.InputVoice,
		URI:        artifact.URI,
		ClipID:     e.clip.ID,
		AssetID:    e.clip.AssetID,
		ArtifactID: artifact.ID,
	})
}

// atempoChain splits a speed factor into atempo stages within [0.5, 2].
func atempoChain(speed float64) []string {
	var out []string
	for speed > 2 {
		out = append(out, "atempo=2")
		speed /= 2
	}
	for speed < 0.5 {
		out = append(out, "atempo=0.5")
		speed /= 0.5
	}
	if math.Abs(speed-1) > 1e-9 {
		out = append(out, "atempo="+filters.FormatNumber(speed))
	}
	return out
}

// volumeAutomation builds a dB expression over the clip's local time t from
// clip and track volume automation. Both apply when present and add in dB.
func (c *Compiler) volumeAutomation(ctx context.Context, cc *CompileContext, e *clipEntry) string {
	var exprs []string

	// Clip keyframes are relative to the clip's original timeline start; the
	// windowed clip may start later.
	clipShift := e.clip.StartMS - e.original.StartMS
	if expr := c.automationExpr(ctx, cc, timeline.TargetClip, e.clip.ID, clipShift); expr != "" {
		exprs = append(exprs, expr)
	}
	if expr := c.automationExpr(ctx, cc, timeline.TargetTrack, e.track.ID, e.clip.StartMS); expr != "" {
		exprs = append(exprs, expr)
	}
	return strings.Join(exprs, "+")
}

func (c *Compiler) automationExpr(ctx context.Context, cc *CompileContext, targetType timeline.TargetType, targetID string, shiftMS int64) string {
	automations, err := c.timeline.ListAutomation(ctx, targetType, targetID)
	if err != nil {
		cc.Warn(warnCode("automation_unavailable", string(targetType), targetID), "automation could not be loaded; ignoring",
			logging.String("target_id", targetID),
			logging.Error(err),
		)
		return ""
	}
	for _, a := range automations {
		if a.Property != timeline.PropertyVolumeDB || len(a.Keyframes) == 0 {
			continue
		}
		if err := a.Validate(); err != nil {
			cc.Warn(warnCode("automation_invalid", a.ID), "automation keyframes out of order; ignoring",
				logging.String("automation_id", a.ID),
				logging.Error(err),
			)
			continue
		}
		return rampExpr(a.Keyframes, shiftMS)
	}
	return ""
}

// rampExpr renders keyframes as nested linear ramps in t (seconds). Values
// hold flat before the first and after the last keyframe.
func rampExpr(keyframes []timeline.Keyframe, shiftMS int64) string {
	at := func(k timeline.Keyframe) string { return seconds(k.TimeMS - shiftMS) }
	val := func(k timeline.Keyframe) string { return filters.FormatNumber(k.Value) }

	last := keyframes[len(keyframes)-1]
	expr := val(last)
	for i := len(keyframes) - 2; i >= 0; i-- {
		a, b := keyframes[i], keyframes[i+1]
		if b.TimeMS == a.TimeMS {
			continue
		}
		ramp := fmt.Sprintf("%s+(%s)*(t-%s)/%s",
			val(a), filters.FormatNumber(b.Value-a.Value), at(a), seconds(b.TimeMS-a.TimeMS))
		expr = fmt.Sprintf("if(between(t,%s,%s),%s,%s)", at(a), at(b), ramp, expr)
	}
	first := keyframes[0]
	return fmt.Sprintf("if(lt(t,%s),%s,%s)", at(first), val(first), expr)
}

// speechWindows collects the window-relative ranges of audible dialogue
// clips and records the ducking analysis.
func (c *Compiler) speechWindows(cc *CompileContext, entries []*clipEntry) []plan.SpeechWindow {
	cc.ducking = plan.DuckingAnalysis{
		Enabled:       cc.Request.Ducking,
		FadeMS:        c.settings.DuckingFadeMS,
		LevelDB:       c.settings.DuckingLevelDB,
		SpeechWindows: []plan.SpeechWindow{},
		DuckedClips:   []string{},
	}
	if !cc.Request.Ducking {
		return nil
	}
	var windows []plan.SpeechWindow
	for _, e := range entries {
		if e.track.AudioRole != timeline.RoleDialogue || !e.hasAudio {
			continue
		}
		windows = append(windows, plan.SpeechWindow{ClipID: e.clip.ID, StartMS: e.clip.StartMS, EndMS: e.clip.EndMS()})
	}
	if len(windows) > 0 {
		cc.ducking.SpeechWindows = windows
	}
	return windows
}

// duckingExpr returns a gain expression that dips a music or background clip
// under every overlapping speech window, or "" when nothing overlaps.
func (c *Compiler) duckingExpr(cc *CompileContext, e *clipEntry, speech []plan.SpeechWindow) string {
	if !cc.Request.Ducking || !e.track.AudioRole.Ducked() {
		return ""
	}
	fade := max(c.settings.DuckingFadeMS, 1)
	level := filters.FormatNumber(math.Pow(10, c.settings.DuckingLevelDB/20))
	f := seconds(fade)

	expr := ""
	for _, w := range speech {
		if w.EndMS+fade <= e.clip.StartMS || w.StartMS-fade >= e.clip.EndMS() {
			continue
		}
		a := seconds(w.StartMS - e.clip.StartMS)
		b := seconds(w.EndMS - e.clip.StartMS)
		env := fmt.Sprintf("if(lt(t,%[1]s-%[3]s),1,if(lt(t,%[1]s),1-(1-%[4]s)*(t-(%[1]s-%[3]s))/%[3]s,if(lt(t,%[2]s),%[4]s,if(lt(t,%[2]s+%[3]s),%[4]s+(1-%[4]s)*(t-%[2]s)/%[3]s,1))))",
			a, b, f, level)
		if expr == "" {
			expr = "min(1," + env + ")"
		} else {
			expr = "min(" + expr + "," + env + ")"
		}
	}
	if expr == "" {
		cc.Decision("ducking", "skipped", "no overlapping speech", logging.String(logging.FieldClipID, e.clip.ID))
		return ""
	}
	cc.Decision("ducking", "ducked", "speech overlaps "+string(e.track.AudioRole)+" clip", logging.String(logging.FieldClipID, e.clip.ID))
	cc.ducking.DuckedClips = append(cc.ducking.DuckedClips, e.clip.ID)
	return expr
}

// mixAudio mixes the delayed streams, applies the edge fades and optional
// loudness normalization, and writes [aout].
func (c *Compiler) mixAudio(cc *CompileContext, inputs []string) string {
	g := cc.graph
	duration := max(cc.DurationMS, 1)

	mixed := cc.nextGlobal("amix")
	switch len(inputs) {
	case 0:
		g.Source("anullsrc=channel_layout=stereo:sample_rate=48000,atrim=duration="+seconds(duration), mixed)
	case 1:
		g.Chain(inputs, "anull", mixed)
	default:
		g.Chain(inputs, fmt.Sprintf("amix=inputs=%d:normalize=0:duration=longest", len(inputs)), mixed)
	}

	fade := min(c.settings.AudioFadeMS, duration/2)
	stages := []string{}
	if fade > 0 {
		stages = append(stages,
			"afade=t=in:st=0:d="+seconds(fade),
			"afade=t=out:st="+seconds(duration-fade)+":d="+seconds(fade),
		)
	}
	if cc.Request.NormalizeAudio {
		stages = append(stages, filters.Loudnorm(c.loudnessTarget(cc.Request)))
	}
	if len(stages) == 0 {
		stages = append(stages, "anull")
	}

	aout := g.Named("aout")
	g.Chain([]string{mixed}, strings.Join(stages, ","), aout)
	return aout
}

func (c *Compiler) loudnessTarget(req plan.RenderRequest) float64 {
	if req.TargetLoudness != 0 {
		return req.TargetLoudness
	}
	return c.settings.LoudnessTarget
}
