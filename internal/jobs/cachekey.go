package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"reelplan/internal/plan"
)

// cacheKeyInput is the exact set of fields a render's cache key covers.
// Segment index is excluded: two requests with the same window share a key.
type cacheKeyInput struct {
	ProjectID      string  `json:"project_id"`
	RenderProfile  string  `json:"render_profile"`
	NormalizeAudio bool    `json:"normalize_audio"`
	TargetLoudness float64 `json:"target_loudness"`
	UpdatedAt      string  `json:"updated_at"`
	StartMS        int64   `json:"start_ms"`
	EndMS          int64   `json:"end_ms"`
	OverlapMS      int64   `json:"overlap_ms"`
}

// CacheKey fingerprints a request at a project revision. profile is the
// resolved profile name so requests relying on the default share keys with
// requests naming it explicitly.
func CacheKey(req plan.RenderRequest, profile string, projectUpdatedAt time.Time) string {
	payload, _ := json.Marshal(cacheKeyInput{
		ProjectID:      req.ProjectID,
		RenderProfile:  profile,
		NormalizeAudio: req.NormalizeAudio,
		TargetLoudness: req.TargetLoudness,
		UpdatedAt:      projectUpdatedAt.UTC().Format(time.RFC3339Nano),
		StartMS:        req.StartMS,
		EndMS:          req.EndMS,
		OverlapMS:      req.OverlapMS,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
