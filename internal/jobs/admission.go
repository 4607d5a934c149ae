package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"reelplan/internal/config"
	"reelplan/internal/logging"
	"reelplan/internal/services"
)

// Admission outcomes reported to the recorder.
const (
	OutcomeAdmitted     = "admitted"
	OutcomeDeduplicated = "deduplicated"
	OutcomeRejected     = "rejected"
)

const lockRetryDelay = 25 * time.Millisecond

// AdmissionRecorder receives admission outcomes for metrics.
type AdmissionRecorder interface {
	RecordAdmission(ctx context.Context, tenantID, env, outcome string)
}

// Admission creates jobs while enforcing per-scope concurrency ceilings and
// cache-key deduplication.
type Admission struct {
	repo     Repository
	limitFor func(tenantID string) int
	lockDir  string
	logger   *slog.Logger
	recorder AdmissionRecorder

	mu     sync.Mutex
	scopes map[string]*sync.Mutex
}

// AdmissionOption customises an Admission.
type AdmissionOption func(*Admission)

// WithAdmissionLogger sets the logger.
func WithAdmissionLogger(logger *slog.Logger) AdmissionOption {
	return func(a *Admission) { a.logger = logger }
}

// WithAdmissionRecorder sets the outcome recorder.
func WithAdmissionRecorder(recorder AdmissionRecorder) AdmissionOption {
	return func(a *Admission) { a.recorder = recorder }
}

// NewAdmission builds an Admission using the ceilings and lock directory from cfg.
func NewAdmission(repo Repository, cfg *config.Config, opts ...AdmissionOption) *Admission {
	a := &Admission{
		repo:     repo,
		limitFor: cfg.MaxConcurrentFor,
		lockDir:  cfg.Paths.LockDir,
		scopes:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.logger = logging.NewComponentLogger(a.logger, "admission")
	return a
}

// AssertCapacity fails with a CapacityError when the scope is at its ceiling.
// It takes no lock; Admit repeats the check under the scope lock.
func (a *Admission) AssertCapacity(ctx context.Context, tenantID, env string) error {
	active, err := a.repo.CountActive(ctx, tenantID, env)
	if err != nil {
		return services.Wrap(services.ErrTransient, "admission", "count active jobs", "", err)
	}
	if limit := a.limitFor(tenantID); active >= limit {
		return &CapacityError{TenantID: tenantID, Env: env, Active: active, Max: limit}
	}
	return nil
}

// Admit persists job unless an equivalent non-terminal job already exists,
// in which case that job is returned with existing set.
func (a *Admission) Admit(ctx context.Context, job *VideoRenderJob) (*VideoRenderJob, bool, error) {
	if job == nil {
		return nil, false, services.Wrap(services.ErrValidation, "admission", "admit", "job is required", nil)
	}
	release, err := a.lockScope(ctx, job.TenantID, job.Env)
	if err != nil {
		return nil, false, err
	}
	defer release()

	logger := a.logger.With(
		logging.String(logging.FieldTenant, job.TenantID),
		logging.String(logging.FieldEnv, job.Env),
		logging.String(logging.FieldProjectID, job.ProjectID),
	)

	if job.RenderCacheKey != "" {
		existing, err := a.repo.FindByCacheKey(ctx, job.TenantID, job.Env, job.JobType, job.RenderCacheKey)
		if err != nil {
			return nil, false, services.Wrap(services.ErrTransient, "admission", "find by cache key", "", err)
		}
		if existing != nil {
			logger.Info("render job deduplicated",
				logging.String(logging.FieldJobID, existing.ID),
				logging.String(logging.FieldDecisionType, "admission"),
				logging.String("decision_result", OutcomeDeduplicated),
			)
			a.record(ctx, job, OutcomeDeduplicated)
			return existing, true, nil
		}
	}

	if err := a.AssertCapacity(ctx, job.TenantID, job.Env); err != nil {
		logging.WarnWithContext(logger, "render job rejected", "admission_rejected",
			logging.String(logging.FieldErrorHint, "wait for active jobs to finish or raise jobs.max_concurrent"),
			logging.String(logging.FieldImpact, "job was not queued"),
			logging.Error(err),
		)
		a.record(ctx, job, OutcomeRejected)
		return nil, false, err
	}

	if err := a.repo.Create(ctx, job); err != nil {
		return nil, false, err
	}
	logger.Info("render job admitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("job_type", string(job.JobType)),
	)
	a.record(ctx, job, OutcomeAdmitted)
	return job, false, nil
}

func (a *Admission) record(ctx context.Context, job *VideoRenderJob, outcome string) {
	if a.recorder != nil {
		a.recorder.RecordAdmission(ctx, job.TenantID, job.Env, outcome)
	}
}

// lockScope serializes admission for a tenant/env scope within this process
// and, when a lock directory is configured, across processes.
func (a *Admission) lockScope(ctx context.Context, tenantID, env string) (func(), error) {
	key := scopeKey(tenantID, env)
	a.mu.Lock()
	scope, ok := a.scopes[key]
	if !ok {
		scope = &sync.Mutex{}
		a.scopes[key] = scope
	}
	a.mu.Unlock()
	scope.Lock()

	if strings.TrimSpace(a.lockDir) == "" {
		return scope.Unlock, nil
	}
	if err := os.MkdirAll(a.lockDir, 0o755); err != nil {
		scope.Unlock()
		return nil, services.Wrap(services.ErrConfiguration, "admission", "create lock dir", a.lockDir, err)
	}
	fileLock := flock.New(filepath.Join(a.lockDir, "admission-"+key+".lock"))
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		scope.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "admission", "acquire scope lock", key, err)
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			a.logger.Warn("release admission lock failed", logging.Error(err))
		}
		scope.Unlock()
	}, nil
}

func scopeKey(tenantID, env string) string {
	return fmt.Sprintf("%s-%s", sanitizeScope(tenantID), sanitizeScope(env))
}

func sanitizeScope(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, value)
}
