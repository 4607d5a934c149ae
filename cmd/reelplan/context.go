package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelplan/internal/captions"
	"reelplan/internal/compiler"
	"reelplan/internal/config"
	"reelplan/internal/deps"
	"reelplan/internal/jobs"
	"reelplan/internal/logging"
	"reelplan/internal/observability"
	"reelplan/internal/render"
	"reelplan/internal/snapshot"
	"reelplan/internal/storage"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	store     *storage.Store
	collector *observability.Collector
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to the command's stderr. When that is the process stderr the
// configured log file is appended as well.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cmd.ErrOrStderr() == os.Stderr {
		return logging.NewFromConfig(cfg)
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
}

func (c *commandContext) openStore() (*storage.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.store = store
	return store, nil
}

func (c *commandContext) openJobs(ctx context.Context) (*jobs.SQLiteRepository, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return jobs.NewSQLiteRepository(ctx, store.DB())
}

// importSnapshot loads a snapshot file into the store when path is set.
func (c *commandContext) importSnapshot(ctx context.Context, path string, logger *slog.Logger) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	store, err := c.openStore()
	if err != nil {
		return err
	}
	doc, err := snapshot.LoadFile(path)
	if err != nil {
		return err
	}
	summary, err := snapshot.Import(ctx, store, doc)
	if err != nil {
		return err
	}
	logger.Info("snapshot imported",
		logging.String("path", path),
		logging.Int("projects", summary.Projects),
		logging.Int("clips", summary.Clips),
		logging.Int("assets", summary.Assets),
	)
	return nil
}

// metrics returns the process-wide compile and admission recorder.
func (c *commandContext) metrics() (*observability.Metrics, error) {
	if c.collector == nil {
		c.collector = observability.NewCollector()
	}
	return observability.NewMetrics(c.collector.Provider)
}

type serviceBundle struct {
	service *render.Service
	repo    *jobs.SQLiteRepository
}

// buildService wires the compiler, job store and admission for one command.
func (c *commandContext) buildService(ctx context.Context, logger *slog.Logger) (*serviceBundle, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	repo, err := c.openJobs(ctx)
	if err != nil {
		return nil, err
	}
	metrics, err := c.metrics()
	if err != nil {
		return nil, err
	}

	comp := compiler.New(store, store,
		compiler.WithLogger(logger),
		compiler.WithSettings(compiler.SettingsFromConfig(cfg)),
		compiler.WithProfiles(cfg.Profiles),
		compiler.WithCaptions(captions.NewService(store, cfg.Paths.CaptionsDir, logger)),
		compiler.WithEncoderProbe(deps.NewEncoderProbe(cfg.FFmpegBinary(), nil, logger)),
		compiler.WithMetrics(metrics),
	)
	admission := jobs.NewAdmission(repo, cfg,
		jobs.WithAdmissionLogger(logger),
		jobs.WithAdmissionRecorder(metrics),
	)
	return &serviceBundle{
		service: render.NewService(cfg, store, comp, repo, admission, logger),
		repo:    repo,
	}, nil
}

func (c *commandContext) close() error {
	var errs []error
	if c.collector != nil {
		errs = append(errs, c.collector.Shutdown(context.Background()))
		c.collector = nil
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// printMetrics writes the collected otel readings to stderr.
func (c *commandContext) printMetrics(cmd *cobra.Command, enabled bool) error {
	if !enabled || c.collector == nil {
		return nil
	}
	readings, err := c.collector.Collect(cmd.Context())
	if err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	rows := make([][]string, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, []string{r.Name, r.Attributes, fmt.Sprint(r.Value), fmt.Sprint(r.Count)})
	}
	fmt.Fprintln(cmd.ErrOrStderr(), renderTable([]string{"Metric", "Attributes", "Value", "Count"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
	return nil
}
