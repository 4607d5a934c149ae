package compiler

import (
	"context"
	"errors"
	"math"

	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/plan"
	"reelplan/internal/timeline"
)

// clipEntry is one clip that survived window exclusion, plus everything the
// lowering stages learn about it.
type clipEntry struct {
	index     int
	clip      timeline.Clip
	original  timeline.Clip
	track     timeline.Track
	asset     media.Asset
	assetOK   bool
	artifacts []media.Artifact

	source   resolvedSource
	input    int
	video    string
	hasVideo bool
	hasAudio bool
}

func (c *Compiler) collect(ctx context.Context, cc *CompileContext, snap snapshot) ([]*clipEntry, error) {
	var entries []*clipEntry
	for _, track := range snap.tracks {
		for _, clip := range snap.clips[track.ID] {
			if cc.Window.Excludes(clip.StartMS, clip.EndMS()) {
				cc.Decision("clip_window", "excluded", "clip outside compile window", logging.String(logging.FieldClipID, clip.ID))
				continue
			}
			e := &clipEntry{
				index:    len(entries),
				clip:     windowClip(clip, cc.Window),
				original: clip,
				track:    track,
				input:    -1,
			}
			asset, err := c.media.GetAsset(ctx, clip.AssetID)
			switch {
			case err == nil:
				e.asset, e.assetOK = asset, true
			case errors.Is(err, media.ErrNotFound):
			default:
				return nil, storeError("load asset", clip.AssetID, err)
			}
			if e.artifacts, err = c.media.ListArtifacts(ctx, clip.AssetID); err != nil {
				return nil, storeError("list artifacts", clip.AssetID, err)
			}
			e.hasVideo = track.CarriesVideo() && (!e.assetOK || e.asset.HasVideo())
			e.hasAudio = e.assetOK && e.asset.HasAudio() && !clip.Muted()
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// windowClip trims a clip to the compile window, moving its source in/out
// points so the remaining part keeps its original timeline position.
func windowClip(clip timeline.Clip, w plan.Window) timeline.Clip {
	out := clip
	speed := clip.EffectiveSpeed()
	if clip.StartMS < w.StartMS {
		cut := w.StartMS - clip.StartMS
		out.InMS += int64(math.Round(float64(cut) * speed))
		out.StartMS = w.StartMS
	}
	if w.Bounded && clip.EndMS() > w.EndMS {
		cut := clip.EndMS() - w.EndMS
		out.OutMS -= int64(math.Round(float64(cut) * speed))
	}
	if out.OutMS <= out.InMS {
		out.OutMS = out.InMS + 1
	}
	return out
}

// outputDuration is the length of the rendered window: the widened window
// clipped to the sequence extent.
func outputDuration(w plan.Window, snap snapshot, entries []*clipEntry) int64 {
	end := snap.sequence.DurationMS
	for _, clips := range snap.clips {
		for _, clip := range clips {
			end = max(end, clip.EndMS())
		}
	}
	if w.Bounded {
		end = min(end, w.EndMS)
		if end <= w.StartMS {
			end = w.EndMS
		}
	}
	return max(0, end-w.StartMS)
}

// offsetMS is the clip's position relative to the window start.
func (e *clipEntry) offsetMS(w plan.Window) int64 {
	return e.clip.StartMS - w.StartMS
}
