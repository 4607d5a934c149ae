package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelplan/internal/config"
	"reelplan/internal/plan"
	"reelplan/internal/services"
	"reelplan/internal/storage"
)

//go:embed schema.sql
var schemaDDL string

// Repository persists render jobs.
type Repository interface {
	Create(ctx context.Context, job *VideoRenderJob) error
	Get(ctx context.Context, id string) (*VideoRenderJob, error)
	List(ctx context.Context, filter Filter) ([]*VideoRenderJob, error)
	FindByCacheKey(ctx context.Context, tenantID, env string, jobType JobType, cacheKey string) (*VideoRenderJob, error)
	UpdateStatus(ctx context.Context, id string, status Status, errMsg string) error
	CountActive(ctx context.Context, tenantID, env string) (int, error)
}

// SQLiteRepository stores jobs in the render_jobs table of the reelplan database.
type SQLiteRepository struct {
	db     *sql.DB
	ownsDB bool
	now    func() time.Time
}

const jobColumns = `id, tenant_id, env, project_id, job_type, status, plan_json, render_cache_key,
    segment_index, segment_start_ms, segment_end_ms, overlap_ms, request_json, error, created_at, updated_at`

// Open opens the configured database and ensures the jobs table exists.
func Open(cfg *config.Config) (*SQLiteRepository, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	db, err := storage.OpenDB(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	repo, err := NewSQLiteRepository(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	repo.ownsDB = true
	return repo, nil
}

// NewSQLiteRepository wraps an open handle, creating the jobs table if needed.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("create jobs schema: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close closes the handle when the repository opened it.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil || !r.ownsDB {
		return nil
	}
	return r.db.Close()
}

// Create assigns an id and timestamps when missing and inserts the job.
func (r *SQLiteRepository) Create(ctx context.Context, job *VideoRenderJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = StatusQueued
	}
	now := r.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	planJSON, err := encodePlan(job.PlanSnapshot)
	if err != nil {
		return fmt.Errorf("encode plan for job %s: %w", job.ID, err)
	}
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("encode request for job %s: %w", job.ID, err)
	}
	var segment any
	if job.SegmentIndex != nil {
		segment = *job.SegmentIndex
	}

	err = storage.RetryOnBusy(ctx, func() error {
		_, execErr := r.db.ExecContext(ctx,
			`INSERT INTO render_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, job.TenantID, job.Env, job.ProjectID, string(job.JobType), string(job.Status), planJSON,
			job.RenderCacheKey, segment, job.SegmentStartMS, job.SegmentEndMS, job.OverlapMS, string(requestJSON),
			nullableString(job.Error), job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "jobs", "create job", job.ID, err)
	}
	return nil
}

// Get returns the job or nil when it does not exist.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*VideoRenderJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM render_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs matching filter, oldest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]*VideoRenderJob, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.TenantID != "" {
		clauses = append(clauses, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.Env != "" {
		clauses = append(clauses, "env = ?")
		args = append(args, filter.Env)
	}
	if filter.ProjectID != "" {
		clauses = append(clauses, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + jobColumns + ` FROM render_jobs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*VideoRenderJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// FindByCacheKey returns the newest non-terminal job with the key in the
// scope, or nil.
func (r *SQLiteRepository) FindByCacheKey(ctx context.Context, tenantID, env string, jobType JobType, cacheKey string) (*VideoRenderJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM render_jobs
         WHERE tenant_id = ? AND env = ? AND job_type = ? AND render_cache_key = ? AND status IN (?, ?)
         ORDER BY created_at DESC, id LIMIT 1`,
		tenantID, env, string(jobType), cacheKey, string(StatusQueued), string(StatusRunning))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job by cache key: %w", err)
	}
	return job, nil
}

// UpdateStatus moves a job to status, recording errMsg for failures.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status Status, errMsg string) error {
	var affected int64
	err := storage.RetryOnBusy(ctx, func() error {
		res, execErr := r.db.ExecContext(ctx,
			`UPDATE render_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), nullableString(errMsg), r.now().UTC().Format(time.RFC3339Nano), id)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "jobs", "update status", id, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "jobs", "update status", "job "+id+" not found", nil)
	}
	return nil
}

// CountActive counts queued and running jobs in a tenant/env scope.
func (r *SQLiteRepository) CountActive(ctx context.Context, tenantID, env string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM render_jobs WHERE tenant_id = ? AND env = ? AND status IN (?, ?)`,
		tenantID, env, string(StatusQueued), string(StatusRunning)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*VideoRenderJob, error) {
	var (
		job         VideoRenderJob
		jobType     string
		status      string
		planJSON    sql.NullString
		segment     sql.NullInt64
		requestJSON string
		errMsg      sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := scanner.Scan(
		&job.ID, &job.TenantID, &job.Env, &job.ProjectID, &jobType, &status, &planJSON, &job.RenderCacheKey,
		&segment, &job.SegmentStartMS, &job.SegmentEndMS, &job.OverlapMS, &requestJSON, &errMsg, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	job.JobType = JobType(jobType)
	job.Status = Status(status)
	job.Error = errMsg.String
	if segment.Valid {
		index := int(segment.Int64)
		job.SegmentIndex = &index
	}
	if planJSON.Valid && planJSON.String != "" {
		var snapshot plan.RenderPlan
		if err := json.Unmarshal([]byte(planJSON.String), &snapshot); err != nil {
			return nil, fmt.Errorf("decode plan for job %s: %w", job.ID, err)
		}
		job.PlanSnapshot = &snapshot
	}
	if err := json.Unmarshal([]byte(requestJSON), &job.Request); err != nil {
		return nil, fmt.Errorf("decode request for job %s: %w", job.ID, err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &job, nil
}

func encodePlan(p *plan.RenderPlan) (any, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
