package jobs

import (
	"fmt"
	"strings"
	"time"

	"reelplan/internal/plan"
)

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusQueued, StatusRunning, StatusSucceeded, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown job status %q", value)
	}
}

// Active reports whether the status counts against admission.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusRunning
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// JobType distinguishes whole renders, segment renders and stitches.
type JobType string

const (
	TypeRender  JobType = "video_render"
	TypeSegment JobType = "video_render_segment"
	TypeStitch  JobType = "video_stitch"
)

// VideoRenderJob is one admitted render.
type VideoRenderJob struct {
	ID             string             `json:"id"`
	TenantID       string             `json:"tenant_id"`
	Env            string             `json:"env"`
	ProjectID      string             `json:"project_id"`
	JobType        JobType            `json:"job_type"`
	Status         Status             `json:"status"`
	PlanSnapshot   *plan.RenderPlan   `json:"plan_snapshot,omitempty"`
	RenderCacheKey string             `json:"render_cache_key"`
	SegmentIndex   *int               `json:"segment_index,omitempty"`
	SegmentStartMS int64              `json:"segment_start_ms"`
	SegmentEndMS   int64              `json:"segment_end_ms"`
	OverlapMS      int64              `json:"overlap_ms"`
	Request        plan.RenderRequest `json:"request_payload"`
	Error          string             `json:"error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// OutputPath is the file the job's plan writes, if it has a plan.
func (j *VideoRenderJob) OutputPath() string {
	if j == nil || j.PlanSnapshot == nil {
		return ""
	}
	return j.PlanSnapshot.OutputPath
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	TenantID  string
	Env       string
	ProjectID string
	Statuses  []Status
	Limit     int
}
