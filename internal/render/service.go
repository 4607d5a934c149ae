package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelplan/internal/config"
	"reelplan/internal/jobs"
	"reelplan/internal/logging"
	"reelplan/internal/media/ffprobe"
	"reelplan/internal/plan"
	"reelplan/internal/segments"
	"reelplan/internal/services"
	"reelplan/internal/timeline"
)

// Compiler lowers a request into a plan.
type Compiler interface {
	Compile(ctx context.Context, req plan.RenderRequest) (plan.RenderPlan, error)
}

// Admitter creates jobs under admission control.
type Admitter interface {
	Admit(ctx context.Context, job *jobs.VideoRenderJob) (*jobs.VideoRenderJob, bool, error)
}

// Service plans renders and submits render jobs.
type Service struct {
	compiler  Compiler
	timeline  timeline.Store
	repo      jobs.Repository
	admission Admitter
	planner   *segments.Planner
	stitcher  *segments.Stitcher
	prober    segments.Inspector
	logger    *slog.Logger

	defaultProfile string
	defaultTimeout time.Duration
	chunkTimeout   time.Duration
	newID          func() string
}

// Option configures a Service.
type Option func(*Service)

// WithInspector replaces the ffprobe-backed segment inspector.
func WithInspector(inspector segments.Inspector) Option {
	return func(s *Service) {
		if inspector != nil {
			s.prober = inspector
		}
	}
}

// NewService wires the render service from its collaborators.
func NewService(cfg *config.Config, tl timeline.Store, comp Compiler, repo jobs.Repository, admission Admitter, logger *slog.Logger, opts ...Option) *Service {
	logger = logging.NewComponentLogger(logger, "render")
	settings := segments.SettingsFromConfig(cfg)
	s := &Service{
		compiler:       comp,
		timeline:       tl,
		repo:           repo,
		admission:      admission,
		planner:        segments.NewPlanner(tl, settings, logger),
		stitcher:       segments.NewStitcher(settings, logger),
		prober:         ffprobe.NewProber(cfg.FFprobeBinary(), nil),
		logger:         logger,
		defaultProfile: cfg.Render.DefaultProfile,
		defaultTimeout: cfg.DefaultTimeout(),
		chunkTimeout:   cfg.ChunkTimeout(),
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan compiles req and describes the output it would produce. Nothing is
// rendered or persisted.
func (s *Service) Plan(ctx context.Context, req plan.RenderRequest) (plan.RenderResult, plan.RenderPlan, error) {
	compiled, err := s.compile(ctx, req, s.defaultTimeout)
	if err != nil {
		return plan.RenderResult{}, plan.RenderPlan{}, err
	}
	result := plan.RenderResult{
		AssetID:       s.newID(),
		ArtifactID:    s.newID(),
		URI:           compiled.OutputPath,
		RenderProfile: compiled.Profile,
		PlanPreview:   Preview(compiled),
	}
	return result, compiled, nil
}

// PlanSegments partitions the request's range without compiling anything.
func (s *Service) PlanSegments(ctx context.Context, req plan.RenderRequest) ([]plan.RenderSegment, error) {
	return s.planner.Plan(ctx, req)
}

// Submit compiles req and admits it as one whole-render job. When an
// equivalent job is already queued or running it is returned with existing
// set and nothing new is created.
func (s *Service) Submit(ctx context.Context, req plan.RenderRequest) (*jobs.VideoRenderJob, bool, error) {
	tenant, env := scope(ctx, req)
	updatedAt, err := s.projectRevision(ctx, req.ProjectID)
	if err != nil {
		return nil, false, err
	}
	compiled, err := s.compile(ctx, req, s.defaultTimeout)
	if err != nil {
		return nil, false, err
	}
	job := &jobs.VideoRenderJob{
		TenantID:       tenant,
		Env:            env,
		ProjectID:      req.ProjectID,
		JobType:        jobs.TypeRender,
		PlanSnapshot:   &compiled,
		RenderCacheKey: jobs.CacheKey(req, compiled.Profile, updatedAt),
		SegmentStartMS: req.StartMS,
		SegmentEndMS:   req.EndMS,
		OverlapMS:      req.OverlapMS,
		Request:        req,
	}
	return s.admission.Admit(ctx, job)
}

// SubmitSegments plans segments for req, compiles each against its widened
// window, and admits one job per segment. Segments whose equivalent job is
// already active reuse it. Admission stops at the first refusal; jobs
// admitted before it remain queued.
func (s *Service) SubmitSegments(ctx context.Context, req plan.RenderRequest) ([]*jobs.VideoRenderJob, error) {
	tenant, env := scope(ctx, req)
	segs, err := s.planner.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldProjectID, req.ProjectID))

	out := make([]*jobs.VideoRenderJob, 0, len(segs))
	for _, seg := range segs {
		segReq := segments.SegmentRequest(req, seg)
		segReq.TenantID, segReq.Env = tenant, env
		compiled, err := s.compile(ctx, segReq, s.chunkTimeout)
		if err != nil {
			return out, fmt.Errorf("segment %d: %w", seg.SegmentIndex, err)
		}
		compiled.Meta.SegmentCount = len(segs)
		index := seg.SegmentIndex
		job, existing, err := s.admission.Admit(ctx, &jobs.VideoRenderJob{
			TenantID:       tenant,
			Env:            env,
			ProjectID:      req.ProjectID,
			JobType:        jobs.TypeSegment,
			PlanSnapshot:   &compiled,
			RenderCacheKey: seg.CacheKey,
			SegmentIndex:   &index,
			SegmentStartMS: seg.StartMS,
			SegmentEndMS:   seg.EndMS,
			OverlapMS:      seg.OverlapMS,
			Request:        segReq,
		})
		if err != nil {
			return out, fmt.Errorf("segment %d: %w", seg.SegmentIndex, err)
		}
		logger.Debug("segment job ready",
			logging.Int(logging.FieldSegmentIndex, index),
			logging.String(logging.FieldJobID, job.ID),
			logging.Bool("existing", existing),
		)
		out = append(out, job)
	}
	return out, nil
}

// Stitch loads the named segment jobs and builds the plan joining them.
func (s *Service) Stitch(ctx context.Context, jobIDs []string) (plan.RenderPlan, error) {
	loaded, err := s.loadJobs(ctx, jobIDs)
	if err != nil {
		return plan.RenderPlan{}, err
	}
	return s.stitcher.Stitch(loaded)
}

// VerifySegments probes the rendered output of each named segment job.
func (s *Service) VerifySegments(ctx context.Context, jobIDs []string) ([]segments.OutputCheck, error) {
	loaded, err := s.loadJobs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}
	return segments.VerifyOutputs(ctx, loaded, s.prober, segments.DefaultToleranceMS, s.logger), nil
}

func (s *Service) loadJobs(ctx context.Context, jobIDs []string) ([]*jobs.VideoRenderJob, error) {
	loaded := make([]*jobs.VideoRenderJob, 0, len(jobIDs))
	for _, id := range jobIDs {
		job, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "render", "load segment job", id, err)
		}
		if job == nil {
			return nil, services.Wrap(services.ErrNotFound, "render", "load segment job",
				fmt.Sprintf("job %s not found", id), nil)
		}
		loaded = append(loaded, job)
	}
	return loaded, nil
}

// compile applies the compile-phase deadline and stamps tenant/env on the
// context for logging.
func (s *Service) compile(ctx context.Context, req plan.RenderRequest, timeout time.Duration) (plan.RenderPlan, error) {
	tenant, env := scope(ctx, req)
	ctx = services.WithEnv(services.WithTenant(ctx, tenant), env)
	if req.Profile == "" {
		req.Profile = s.defaultProfile
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.compiler.Compile(ctx, req)
}

func (s *Service) projectRevision(ctx context.Context, projectID string) (time.Time, error) {
	project, err := s.timeline.GetProject(ctx, projectID)
	if err != nil {
		marker := services.ErrTransient
		if isNotFound(err) {
			marker = services.ErrNotFound
		}
		return time.Time{}, services.Wrap(marker, "render", "load project", projectID, err)
	}
	return project.UpdatedAt, nil
}

// Default scope values for requests that name neither tenant nor env.
const (
	DefaultTenant = "default"
	DefaultEnv    = "default"
)

// scope resolves tenant and env from the request, then the context, then defaults.
func scope(ctx context.Context, req plan.RenderRequest) (string, string) {
	tenant := strings.TrimSpace(req.TenantID)
	if tenant == "" {
		tenant, _ = services.TenantFromContext(ctx)
	}
	if tenant == "" {
		tenant = DefaultTenant
	}
	env := strings.TrimSpace(req.Env)
	if env == "" {
		env, _ = services.EnvFromContext(ctx)
	}
	if env == "" {
		env = DefaultEnv
	}
	return tenant, env
}
