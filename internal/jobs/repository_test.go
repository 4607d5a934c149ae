package jobs_test

import (
	"context"
	"testing"

	"reelplan/internal/jobs"
	"reelplan/internal/plan"
	"reelplan/internal/testsupport"
)

func newRepository(t *testing.T) *jobs.SQLiteRepository {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStorage(t, cfg)
	return testsupport.MustOpenJobs(t, store)
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	index := 2
	job := &jobs.VideoRenderJob{
		TenantID:       "acme",
		Env:            "prod",
		ProjectID:      "p1",
		JobType:        jobs.TypeSegment,
		RenderCacheKey: "key-1",
		SegmentIndex:   &index,
		SegmentStartMS: 20000,
		SegmentEndMS:   30000,
		OverlapMS:      500,
		PlanSnapshot:   &plan.RenderPlan{OutputPath: "/renders/p1_720p_seg002.mp4", Profile: "720p"},
		Request:        plan.RenderRequest{ProjectID: "p1", StartMS: 20000, EndMS: 30000, OverlapMS: 500},
	}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected job")
	}
	if got.Status != jobs.StatusQueued {
		t.Fatalf("status = %q, want queued", got.Status)
	}
	if got.SegmentIndex == nil || *got.SegmentIndex != 2 {
		t.Fatalf("segment index = %v, want 2", got.SegmentIndex)
	}
	if got.OutputPath() != "/renders/p1_720p_seg002.mp4" {
		t.Fatalf("output path = %q", got.OutputPath())
	}
	if got.Request.EndMS != 30000 || got.Request.OverlapMS != 500 {
		t.Fatalf("request payload not restored: %+v", got.Request)
	}

	missing, err := repo.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestRepositoryCacheKeyIgnoresTerminalJobs(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	job := &jobs.VideoRenderJob{TenantID: "acme", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender, RenderCacheKey: "k"}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	found, err := repo.FindByCacheKey(ctx, "acme", "prod", jobs.TypeRender, "k")
	if err != nil || found == nil || found.ID != job.ID {
		t.Fatalf("FindByCacheKey = %v, %v", found, err)
	}
	if other, _ := repo.FindByCacheKey(ctx, "acme", "staging", jobs.TypeRender, "k"); other != nil {
		t.Fatal("cache key lookup leaked across env")
	}

	if err := repo.UpdateStatus(ctx, job.ID, jobs.StatusSucceeded, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	found, err = repo.FindByCacheKey(ctx, "acme", "prod", jobs.TypeRender, "k")
	if err != nil || found != nil {
		t.Fatalf("terminal job should not match: %v, %v", found, err)
	}
}

func TestRepositoryListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	for _, scope := range []struct{ tenant, env string }{{"acme", "prod"}, {"acme", "prod"}, {"acme", "dev"}, {"beta", "prod"}} {
		job := &jobs.VideoRenderJob{TenantID: scope.tenant, Env: scope.env, ProjectID: "p1", JobType: jobs.TypeRender}
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	count, err := repo.CountActive(ctx, "acme", "prod")
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if count != 2 {
		t.Fatalf("active = %d, want 2", count)
	}

	listed, err := repo.List(ctx, jobs.Filter{TenantID: "acme"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("listed %d jobs, want 3", len(listed))
	}

	if err := repo.UpdateStatus(ctx, listed[0].ID, jobs.StatusFailed, "encoder crashed"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	failed, err := repo.List(ctx, jobs.Filter{Statuses: []jobs.Status{jobs.StatusFailed}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "encoder crashed" {
		t.Fatalf("unexpected failed jobs: %+v", failed)
	}
}
