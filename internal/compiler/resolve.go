package compiler

import (
	"context"
	"fmt"

	"reelplan/internal/filters"
	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/plan"
)

// resolvedSource is the media an input binding reads for one clip.
type resolvedSource struct {
	Kind       string
	URI        string
	Format     string
	ArtifactID string
}

// sourceStrategy tries to resolve a clip's source. Strategies run in order
// and the first that reports ok wins.
type sourceStrategy func(cc *CompileContext, e *clipEntry) (resolvedSource, bool)

func (c *Compiler) sourceStrategies(cc *CompileContext) []sourceStrategy {
	var out []sourceStrategy
	if cc.Request.UseProxies {
		out = append(out, c.proxySource)
	}
	return append(out, originalSource, placeholderSource)
}

func (c *Compiler) resolveSource(_ context.Context, cc *CompileContext, e *clipEntry) {
	for _, strategy := range c.sourceStrategies(cc) {
		if src, ok := strategy(cc, e); ok {
			e.source = src
			break
		}
	}
	e.input = cc.AddInput(plan.InputMeta{
		Kind:       e.source.Kind,
		URI:        e.source.URI,
		Format:     e.source.Format,
		ClipID:     e.clip.ID,
		AssetID:    e.clip.AssetID,
		ArtifactID: e.source.ArtifactID,
	})
}

// proxySource picks the smallest proxy tier present, following the ladder order.
func (c *Compiler) proxySource(cc *CompileContext, e *clipEntry) (resolvedSource, bool) {
	for _, tier := range c.settings.ProxyLadder {
		if artifact, ok := media.FindKind(e.artifacts, media.ProxyKind(tier)); ok && artifact.URI != "" {
			cc.Decision("source_resolution", "proxy", "proxy tier "+tier+" available",
				logging.String(logging.FieldClipID, e.clip.ID),
				logging.String("artifact_id", artifact.ID),
			)
			return resolvedSource{Kind: plan.InputProxy, URI: artifact.URI, ArtifactID: artifact.ID}, true
		}
	}
	cc.Warn(warnCode("proxy_missing_clip", e.clip.ID), "no proxy rendition for clip; using original",
		logging.String(logging.FieldClipID, e.clip.ID),
		logging.String(logging.FieldErrorHint, "generate proxies for the asset"),
		logging.String(logging.FieldImpact, "render reads full-resolution source"),
	)
	return resolvedSource{}, false
}

func originalSource(cc *CompileContext, e *clipEntry) (resolvedSource, bool) {
	if !e.assetOK || e.asset.SourceURI == "" {
		return resolvedSource{}, false
	}
	cc.Decision("source_resolution", "original", "asset source available", logging.String(logging.FieldClipID, e.clip.ID))
	return resolvedSource{Kind: plan.InputSource, URI: e.asset.SourceURI}, true
}

// placeholderSource substitutes a black lavfi source the length of the clip.
// Placeholder clips contribute no audio.
func placeholderSource(cc *CompileContext, e *clipEntry) (resolvedSource, bool) {
	cc.Warn(warnCode("asset_unresolved_clip", e.clip.ID), "clip asset could not be resolved; rendering placeholder",
		logging.String(logging.FieldClipID, e.clip.ID),
		logging.String("asset_id", e.clip.AssetID),
		logging.String(logging.FieldErrorHint, "re-import the asset or relink the clip"),
		logging.String(logging.FieldImpact, "clip renders as black without audio"),
	)
	e.hasAudio = false
	p := cc.Profile
	uri := fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s", p.Width, p.Height, filters.FormatNumber(p.FPS), seconds(e.clip.DurationMS()))
	return resolvedSource{Kind: plan.InputPlaceholder, URI: uri, Format: "lavfi"}, true
}

func seconds(ms int64) string {
	return filters.FormatNumber(float64(ms) / 1000)
}
