package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelplan/internal/jobs"
	"reelplan/internal/services"
	"reelplan/internal/testsupport"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) RecordAdmission(_ context.Context, _, _, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func TestAdmitRejectsAtCapacity(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(1))
	repo := testsupport.MustOpenJobs(t, testsupport.MustOpenStorage(t, cfg))
	recorder := &outcomeRecorder{}
	admission := jobs.NewAdmission(repo, cfg, jobs.WithAdmissionRecorder(recorder))

	first := &jobs.VideoRenderJob{TenantID: "acme", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender, RenderCacheKey: "a"}
	if _, existing, err := admission.Admit(ctx, first); err != nil || existing {
		t.Fatalf("Admit first = %v, %v", existing, err)
	}

	second := &jobs.VideoRenderJob{TenantID: "acme", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender, RenderCacheKey: "b"}
	_, _, err := admission.Admit(ctx, second)
	var capErr *jobs.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capErr.Active != 1 || capErr.Max != 1 {
		t.Fatalf("unexpected capacity error: %+v", capErr)
	}
	if !errors.Is(err, services.ErrCapacity) || !services.Retryable(err) {
		t.Fatalf("capacity error should classify as retryable capacity: %v", err)
	}

	// Other scopes are unaffected.
	other := &jobs.VideoRenderJob{TenantID: "acme", Env: "dev", ProjectID: "p1", JobType: jobs.TypeRender}
	if _, _, err := admission.Admit(ctx, other); err != nil {
		t.Fatalf("Admit other env: %v", err)
	}

	// Terminal jobs free capacity.
	if err := repo.UpdateStatus(ctx, first.ID, jobs.StatusSucceeded, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := admission.AssertCapacity(ctx, "acme", "prod"); err != nil {
		t.Fatalf("AssertCapacity after completion: %v", err)
	}

	want := []string{jobs.OutcomeAdmitted, jobs.OutcomeRejected, jobs.OutcomeAdmitted}
	if len(recorder.outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", recorder.outcomes, want)
	}
	for i := range want {
		if recorder.outcomes[i] != want[i] {
			t.Fatalf("outcomes = %v, want %v", recorder.outcomes, want)
		}
	}
}

func TestAdmitDeduplicatesByCacheKey(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(1))
	repo := testsupport.MustOpenJobs(t, testsupport.MustOpenStorage(t, cfg))
	admission := jobs.NewAdmission(repo, cfg)

	first := &jobs.VideoRenderJob{TenantID: "acme", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender, RenderCacheKey: "same"}
	if _, _, err := admission.Admit(ctx, first); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	// At capacity, but an equivalent job exists so it is returned instead.
	dup := &jobs.VideoRenderJob{TenantID: "acme", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender, RenderCacheKey: "same"}
	got, existing, err := admission.Admit(ctx, dup)
	if err != nil {
		t.Fatalf("Admit duplicate: %v", err)
	}
	if !existing || got.ID != first.ID {
		t.Fatalf("expected existing job %s, got %s (existing=%v)", first.ID, got.ID, existing)
	}
}

func TestAdmitTenantLimitOverride(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(1), testsupport.WithTenantLimit("big", 3))
	repo := testsupport.MustOpenJobs(t, testsupport.MustOpenStorage(t, cfg))
	admission := jobs.NewAdmission(repo, cfg)

	for i := 0; i < 3; i++ {
		job := &jobs.VideoRenderJob{TenantID: "big", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender}
		if _, _, err := admission.Admit(ctx, job); err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
	}
	fourth := &jobs.VideoRenderJob{TenantID: "big", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender}
	if _, _, err := admission.Admit(ctx, fourth); !errors.Is(err, services.ErrCapacity) {
		t.Fatalf("expected capacity error for fourth job, got %v", err)
	}
}

func TestAdmitSerializesConcurrentRequests(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrent(2))
	repo := testsupport.MustOpenJobs(t, testsupport.MustOpenStorage(t, cfg))
	admission := jobs.NewAdmission(repo, cfg)

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := &jobs.VideoRenderJob{TenantID: "acme", Env: "prod", ProjectID: "p1", JobType: jobs.TypeRender}
			_, _, err := admission.Admit(ctx, job)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, services.ErrCapacity):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitted != 2 || rejected != attempts-2 {
		t.Fatalf("admitted=%d rejected=%d, want 2 and %d", admitted, rejected, attempts-2)
	}
	active, err := repo.CountActive(ctx, "acme", "prod")
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if active != 2 {
		t.Fatalf("active = %d, want 2", active)
	}
}
