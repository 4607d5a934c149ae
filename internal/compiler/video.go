package compiler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"reelplan/internal/filters"
	"reelplan/internal/graph"
	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/plan"
	"reelplan/internal/timeline"
)

// Stabilization defaults; clip meta "stabilise" overrides any of them.
const (
	defaultStabiliseSmoothing = 0.1
	defaultStabiliseZoom      = 0.0
	defaultStabiliseCrop      = "black"
	defaultStabiliseTripod    = 0
)

// Slow-motion quality tiers.
const (
	slowmoHigh   = "high"
	slowmoMedium = "medium"
	slowmoFast   = "fast"
)

// lowerClipVideo builds the clip's video chain and stores its zero-based,
// profile-conformed output label on the entry.
func (c *Compiler) lowerClipVideo(ctx context.Context, cc *CompileContext, e *clipEntry) error {
	if !e.hasVideo {
		return nil
	}
	g := cc.graph
	i := e.index

	src := g.Clip(i, "src")
	if e.source.Kind == plan.InputPlaceholder {
		g.Chain([]string{graph.Input(e.input, "v")}, "setpts=PTS-STARTPTS", src)
	} else {
		g.Chain([]string{graph.Input(e.input, "v")}, trimExpr(e.clip), src)
	}
	cur := src

	cur = c.applyClipMask(ctx, cc, e, cur)
	cur = c.applyStabilise(cc, e, cur)
	cur = c.applySpeed(cc, e, cur)

	var err error
	if cur, err = c.applyFilterStack(ctx, cc, e, cur); err != nil {
		return err
	}

	out := g.Clip(i, "v")
	g.Chain([]string{cur}, conformExpr(cc), out)
	e.video = out
	return nil
}

func trimExpr(clip timeline.Clip) string {
	return fmt.Sprintf("trim=start=%s:end=%s,setpts=PTS-STARTPTS", seconds(clip.InMS), seconds(clip.OutMS))
}

func conformExpr(cc *CompileContext) string {
	p := cc.Profile
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%s,format=%s",
		p.Width, p.Height, p.Width, p.Height, filters.FormatNumber(p.FPS), p.PixelFormat)
}

// applyClipMask alpha-merges the clip's own mask before any other processing.
func (c *Compiler) applyClipMask(ctx context.Context, cc *CompileContext, e *clipEntry, cur string) string {
	if e.clip.MaskArtifactID == "" {
		return cur
	}
	artifact, ok := c.lookupArtifact(ctx, cc, e.clip.MaskArtifactID)
	if !ok {
		cc.Warn(warnCode("mask_artifact_missing_clip", e.clip.ID), "clip mask artifact not found; rendering unmasked",
			logging.String(logging.FieldClipID, e.clip.ID),
			logging.String("artifact_id", e.clip.MaskArtifactID),
		)
		return cur
	}
	g := cc.graph
	in := cc.AddInput(plan.InputMeta{Kind: plan.InputMask, URI: artifact.URI, ClipID: e.clip.ID, AssetID: e.clip.AssetID, ArtifactID: artifact.ID})
	maskIn := g.Clip(e.index, "mask_in")
	g.Chain([]string{graph.Input(in, "v")}, trimExpr(e.clip)+",format=gray", maskIn)
	out := g.Clip(e.index, "mask")
	g.Chain([]string{cur, maskIn}, "alphamerge", out)
	return out
}

func (c *Compiler) applyStabilise(cc *CompileContext, e *clipEntry, cur string) string {
	if !e.clip.Stabilise {
		return cur
	}
	artifact, ok := media.FindKind(e.artifacts, media.KindStabiliseTransform)
	if !ok {
		cc.Warn(warnCode("stabilise_transform_missing_clip", e.clip.ID), "stabilization requested without a transform artifact; skipping",
			logging.String(logging.FieldClipID, e.clip.ID),
			logging.String(logging.FieldErrorHint, "run stabilization analysis for the asset"),
			logging.String(logging.FieldImpact, "clip renders unstabilised"),
		)
		return cur
	}

	detail := plan.StabiliseDetail{
		ClipID:     e.clip.ID,
		ArtifactID: artifact.ID,
		Smoothing:  defaultStabiliseSmoothing,
		Zoom:       defaultStabiliseZoom,
		Crop:       defaultStabiliseCrop,
		Tripod:     defaultStabiliseTripod,
	}
	if overrides, ok := e.clip.Meta["stabilise"].(map[string]any); ok {
		if v, ok := numberParam(overrides["smoothing"]); ok {
			detail.Smoothing = v
		}
		if v, ok := numberParam(overrides["zoom"]); ok {
			detail.Zoom = v
		}
		if v := media.MetaString(overrides, "crop"); v == "keep" || v == "black" {
			detail.Crop = v
		}
		if v, ok := numberParam(overrides["tripod"]); ok && v != 0 {
			detail.Tripod = 1
		}
	}
	cc.stabilise = append(cc.stabilise, detail)

	out := cc.graph.Clip(e.index, "stab")
	cc.graph.Chain([]string{cur}, fmt.Sprintf("vidstab_transform=input='%s':smoothing=%s:zoom=%s:crop=%s:tripod=%d",
		filters.EscapeValue(artifact.URI), filters.FormatNumber(detail.Smoothing), filters.FormatNumber(detail.Zoom),
		detail.Crop, detail.Tripod), out)
	return out
}

// applySpeed rescales timestamps and, for slow motion, adds frame
// interpolation at the clip's quality tier.
func (c *Compiler) applySpeed(cc *CompileContext, e *clipEntry, cur string) string {
	speed := e.clip.EffectiveSpeed()
	if speed == 1 {
		return cur
	}
	g := cc.graph
	out := g.Clip(e.index, "speed")
	g.Chain([]string{cur}, "setpts=PTS/"+filters.FormatNumber(speed), out)
	cur = out
	if speed > 1 {
		return cur
	}

	tier := slowmoTier(e.clip.Meta)
	visualMeta, hasVisualMeta := media.FindKind(e.artifacts, media.KindVisualMeta)
	cc.Notice(dependencyNotice(media.KindVisualMeta, e, visualMeta, hasVisualMeta))
	opticalFlow := c.settings.OpticalFlow && hasVisualMeta && media.MetaBool(visualMeta.Meta, "optical_flow", true)

	fps := filters.FormatNumber(cc.Profile.FPS)
	var expr, method string
	switch {
	case !opticalFlow:
		expr, method = "minterpolate=fps="+fps+":mi_mode=blend", "blend"
		cc.Warn(warnCode("slowmo_optical_flow_unavailable_clip", e.clip.ID, tier), "optical flow unavailable; using blend interpolation",
			logging.String(logging.FieldClipID, e.clip.ID),
			logging.String("tier", tier),
			logging.String(logging.FieldImpact, "slow motion may ghost"),
		)
	case tier == slowmoHigh:
		expr, method = "minterpolate=fps="+fps+":mi_mode=mci:mc_mode=aobmc:me_mode=bidir:vsbmc=1", "minterpolate_mci_aobmc"
	case tier == slowmoFast:
		expr, method = "framerate=fps="+fps+":interp_start=0:interp_end=255:scene=100", "framerate"
	default:
		expr, method = "minterpolate=fps="+fps+":mi_mode=mci:mc_mode=obmc:me_mode=bilat", "minterpolate_mci_obmc"
	}
	cc.DecisionAmong("slowmo_interpolation", method, "tier "+tier, []string{slowmoHigh, slowmoMedium, slowmoFast},
		logging.String(logging.FieldClipID, e.clip.ID),
		logging.Float64("speed", speed),
		logging.Bool("optical_flow", opticalFlow),
	)
	cc.slowmo = append(cc.slowmo, plan.SlowmoDetail{
		ClipID:      e.clip.ID,
		Speed:       speed,
		Tier:        tier,
		Method:      method,
		OpticalFlow: opticalFlow,
	})

	interp := g.Clip(e.index, "slowmo")
	g.Chain([]string{cur}, expr, interp)
	return interp
}

// retimeExpr follows a mask through the clip's speed change so it stays
// aligned with frames that went through applySpeed.
func retimeExpr(cc *CompileContext, e *clipEntry) string {
	speed := e.clip.EffectiveSpeed()
	if speed == 1 {
		return ""
	}
	expr := ",setpts=PTS/" + filters.FormatNumber(speed)
	if speed < 1 {
		expr += ",fps=" + filters.FormatNumber(cc.Profile.FPS)
	}
	return expr
}

// slowmoTier reads "slowmo_quality" or "slowmo.quality" from clip meta.
func slowmoTier(meta map[string]any) string {
	tier := media.MetaString(meta, "slowmo_quality")
	if tier == "" {
		if nested, ok := meta["slowmo"].(map[string]any); ok {
			tier = media.MetaString(nested, "quality")
		}
	}
	switch tier = strings.ToLower(tier); tier {
	case slowmoHigh, slowmoMedium, slowmoFast:
		return tier
	default:
		return slowmoMedium
	}
}

// applyFilterStack lowers the clip's own filters in order. Region filters
// and filters carrying a mask run through a split/alphamerge/overlay
// sub-chain so only the masked area changes.
func (c *Compiler) applyFilterStack(ctx context.Context, cc *CompileContext, e *clipEntry, cur string) (string, error) {
	stack, err := c.timeline.GetFilterStack(ctx, timeline.TargetClip, e.clip.ID)
	if err != nil {
		return "", storeError("load clip filters", e.clip.ID, err)
	}
	g := cc.graph
	for j, f := range stack.Filters {
		if !f.Enabled {
			continue
		}
		expr, kind, ok, err := c.lowerFilter(ctx, cc, f, e.clip.ID, j)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}

		mask, masked := c.filterMask(ctx, cc, e, f, kind, j)
		if !masked {
			out := g.ClipFilter(e.index, j, "fx")
			g.Chain([]string{cur}, expr, out)
			cur = out
			continue
		}

		in := cc.AddInput(plan.InputMeta{Kind: plan.InputMask, URI: mask.URI, ClipID: e.clip.ID, AssetID: e.clip.AssetID, ArtifactID: mask.ID})
		base := g.ClipFilter(e.index, j, "base")
		fxIn := g.ClipFilter(e.index, j, "fxin")
		g.Chain([]string{cur}, "split=2", base, fxIn)
		fx := g.ClipFilter(e.index, j, "fx")
		g.Chain([]string{fxIn}, expr, fx)
		maskLabel := g.ClipFilter(e.index, j, "mask")
		g.Chain([]string{graph.Input(in, "v")}, trimExpr(e.clip)+retimeExpr(cc, e)+",format=gray", maskLabel)
		merged := g.ClipFilter(e.index, j, "fxm")
		g.Chain([]string{fx, maskLabel}, "alphamerge", merged)
		out := g.ClipFilter(e.index, j, "out")
		g.Chain([]string{base, merged}, "overlay=0:0:format=auto", out)
		cur = out
	}
	return cur, nil
}

// lowerFilter resolves and lowers one filter. ok is false when the filter is
// skipped as a soft degradation.
func (c *Compiler) lowerFilter(ctx context.Context, cc *CompileContext, f timeline.Filter, owner string, j int) (string, filters.Kind, bool, error) {
	kind, known := filters.ParseKind(f.Type)
	if !known {
		return "", 0, false, &filters.UnsupportedFilterError{Type: f.Type}
	}
	params := f.Params
	if kind == filters.KindLUT {
		artifactID := media.MetaString(f.Params, "lut_artifact_id")
		artifact, ok := c.lookupArtifact(ctx, cc, artifactID)
		if !ok || artifact.URI == "" {
			cc.Warn(fmt.Sprintf("lut_artifact_missing_clip_%s_filter_%d", owner, j), "lut artifact not found; skipping filter",
				logging.String(logging.FieldClipID, owner),
				logging.String("artifact_id", artifactID),
			)
			return "", kind, false, nil
		}
		params = map[string]any{"path": artifact.URI}
	}
	expr, err := filters.LowerKind(kind, params)
	if err != nil {
		return "", kind, false, err
	}
	return expr, kind, true, nil
}

// filterMask resolves the mask for a filter: the filter's own mask artifact
// first, then a region_mask artifact of the asset matching the filter's region.
func (c *Compiler) filterMask(ctx context.Context, cc *CompileContext, e *clipEntry, f timeline.Filter, kind filters.Kind, j int) (media.Artifact, bool) {
	region := kind.Region()
	if region != filters.RegionNone {
		summary, ok := media.FindKind(e.artifacts, media.KindRegionSummary)
		cc.Notice(dependencyNotice(media.KindRegionSummary, e, summary, ok))
	}
	if f.MaskArtifactID != "" {
		if artifact, ok := c.lookupArtifact(ctx, cc, f.MaskArtifactID); ok {
			return artifact, true
		}
	}
	if region == filters.RegionNone {
		if f.MaskArtifactID != "" {
			cc.Warn(fmt.Sprintf("mask_artifact_missing_clip_%s_filter_%d", e.clip.ID, j), "filter mask artifact not found; applying globally",
				logging.String(logging.FieldClipID, e.clip.ID))
		}
		return media.Artifact{}, false
	}
	for _, artifact := range e.artifacts {
		if artifact.Kind == media.KindRegionMask && media.MetaString(artifact.Meta, "region") == string(region) {
			cc.Decision("region_mask", "masked", "region mask "+string(region)+" available",
				logging.String(logging.FieldClipID, e.clip.ID))
			return artifact, true
		}
	}
	cc.Warn(fmt.Sprintf("region_mask_missing_clip_%s_filter_%d", e.clip.ID, j), "region mask unavailable; applying filter to the whole frame",
		logging.String(logging.FieldClipID, e.clip.ID),
		logging.String("region", string(region)),
		logging.String(logging.FieldImpact, "effect is not confined to the "+string(region)),
	)
	return media.Artifact{}, false
}

// lookupArtifact fetches an artifact by id, treating any failure as absent.
func (c *Compiler) lookupArtifact(ctx context.Context, cc *CompileContext, id string) (media.Artifact, bool) {
	if strings.TrimSpace(id) == "" {
		return media.Artifact{}, false
	}
	artifact, err := c.media.GetArtifact(ctx, id)
	if err != nil {
		if !errors.Is(err, media.ErrNotFound) {
			cc.logger.Debug("artifact lookup failed", logging.String("artifact_id", id), logging.Error(err))
		}
		return media.Artifact{}, false
	}
	return artifact, true
}

func dependencyNotice(kind string, e *clipEntry, artifact media.Artifact, ok bool) plan.DependencyNotice {
	n := plan.DependencyNotice{Kind: kind, AssetID: e.clip.AssetID, ClipID: e.clip.ID, Status: plan.DependencyMissing}
	if ok {
		n.Status = plan.DependencyAvailable
		n.ArtifactID = artifact.ID
		n.CacheKey = artifact.CacheKey()
		n.BackendVersion = artifact.BackendVersion()
	}
	return n
}

func numberParam(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
