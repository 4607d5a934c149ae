// Package media models source assets and the derived artifacts computed from
// them (proxies, stabilization transforms, masks, enhanced audio, analysis
// summaries). The compiler reads them through Store.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an asset or artifact does not exist.
var ErrNotFound = errors.New("media entity not found")

// Derived artifact kinds the planner understands.
const (
	KindStabiliseTransform = "video_stabilise_transform"
	KindVisualMeta         = "visual_meta"
	KindRegionSummary      = "video_region_summary"
	KindRegionMask         = "region_mask"
	KindMask               = "mask"
	KindVoiceEnhanced      = "voice_enhanced_audio"
	KindCaptions           = "captions"
	KindLUT                = "lut"
	proxyKindPrefix        = "proxy_"
)

// ProxyKind returns the artifact kind for a proxy rendition tier such as "360p".
func ProxyKind(tier string) string {
	return proxyKindPrefix + strings.ToLower(strings.TrimSpace(tier))
}

// Asset is an original media file.
type Asset struct {
	ID        string
	SourceURI string
	Meta      map[string]any
}

// HasAudio reports whether the asset carries an audio stream. Assets default
// to having audio unless meta says otherwise.
func (a Asset) HasAudio() bool {
	return metaBool(a.Meta, "has_audio", true)
}

// HasVideo reports whether the asset carries a picture stream.
func (a Asset) HasVideo() bool {
	return metaBool(a.Meta, "has_video", true)
}

// Artifact is a previously computed byproduct of an asset.
type Artifact struct {
	ID            string
	Kind          string
	ParentAssetID string
	URI           string
	Meta          map[string]any
}

// CacheKey reports the artifact's freshness key, if recorded.
func (a Artifact) CacheKey() string {
	return MetaString(a.Meta, "cache_key")
}

// BackendVersion reports the producer version, if recorded.
func (a Artifact) BackendVersion() string {
	return MetaString(a.Meta, "backend_version")
}

// Store is the read interface the compiler consumes.
type Store interface {
	GetAsset(ctx context.Context, id string) (Asset, error)
	GetArtifact(ctx context.Context, id string) (Artifact, error)
	ListArtifacts(ctx context.Context, assetID string) ([]Artifact, error)
}

// FindKind returns the first artifact of the given kind.
func FindKind(artifacts []Artifact, kind string) (Artifact, bool) {
	for _, artifact := range artifacts {
		if artifact.Kind == kind {
			return artifact, true
		}
	}
	return Artifact{}, false
}

// MetaString reads a string-ish value from a free-form meta map.
func MetaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func metaBool(meta map[string]any, key string, fallback bool) bool {
	if meta == nil {
		return fallback
	}
	switch v := meta[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return fallback
}

// MetaBool reads a boolean flag from a meta map.
func MetaBool(meta map[string]any, key string, fallback bool) bool {
	return metaBool(meta, key, fallback)
}
