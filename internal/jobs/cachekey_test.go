package jobs_test

import (
	"testing"
	"time"

	"reelplan/internal/jobs"
	"reelplan/internal/plan"
)

func TestCacheKey(t *testing.T) {
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	base := plan.RenderRequest{ProjectID: "p1", StartMS: 0, EndMS: 10000, OverlapMS: 500}
	key := jobs.CacheKey(base, "720p", updated)
	if len(key) != 64 {
		t.Fatalf("key length = %d, want 64 hex chars", len(key))
	}

	index := 3
	withIndex := base
	withIndex.SegmentIndex = &index
	if got := jobs.CacheKey(withIndex, "720p", updated); got != key {
		t.Fatal("segment index should not affect the cache key")
	}
	if got := jobs.CacheKey(base, "720p", updated.In(time.FixedZone("x", 3600))); got != key {
		t.Fatal("equal instants in different zones should share a key")
	}

	tests := []struct {
		name    string
		req     plan.RenderRequest
		profile string
		updated time.Time
	}{
		{"profile", base, "1080p", updated},
		{"revision", base, "720p", updated.Add(time.Second)},
		{"window", plan.RenderRequest{ProjectID: "p1", StartMS: 10000, EndMS: 20000, OverlapMS: 500}, "720p", updated},
		{"loudness", plan.RenderRequest{ProjectID: "p1", EndMS: 10000, OverlapMS: 500, NormalizeAudio: true}, "720p", updated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if jobs.CacheKey(tt.req, tt.profile, tt.updated) == key {
				t.Fatal("expected a different key")
			}
		})
	}
}
