package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelplan/internal/jobs"
	"reelplan/internal/services"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and update admitted render jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var filter jobs.Filter
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range statuses {
				status, err := jobs.ParseStatus(raw)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			repo, err := ctx.openJobs(cmd.Context())
			if err != nil {
				return err
			}
			list, err := repo.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					job.ID,
					job.TenantID + "/" + job.Env,
					job.ProjectID,
					string(job.JobType),
					formatIndex(job.SegmentIndex),
					string(job.Status),
					humanize.Time(job.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Scope", "Project", "Type", "Seg", "Status", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.TenantID, "tenant", "", "Filter by tenant")
	cmd.Flags().StringVar(&filter.Env, "env", "", "Filter by environment")
	cmd.Flags().StringVar(&filter.ProjectID, "project", "", "Filter by project")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (queued, running, succeeded, failed)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of jobs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := ctx.openJobs(cmd.Context())
			if err != nil {
				return err
			}
			job, err := repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return services.Wrap(services.ErrNotFound, "cli", "show job", fmt.Sprintf("job %s not found", args[0]), nil)
			}
			if jsonOutput {
				return writeJSON(cmd, job)
			}
			w := newStatusWriter(cmd.OutOrStdout())
			w.section("Job " + job.ID)
			w.line("Status", jobStatusKind(job.Status), string(job.Status))
			w.info("Type", string(job.JobType))
			w.info("Scope", job.TenantID+"/"+job.Env)
			w.info("Project", job.ProjectID)
			if job.SegmentIndex != nil {
				w.info("Segment", fmt.Sprintf("#%d %s to %s (overlap %s)", *job.SegmentIndex,
					formatMS(job.SegmentStartMS), formatMS(job.SegmentEndMS), formatMS(job.OverlapMS)))
			}
			w.info("Cache key", job.RenderCacheKey)
			w.info("Output", job.OutputPath())
			w.info("Created", humanize.Time(job.CreatedAt))
			if strings.TrimSpace(job.Error) != "" {
				w.line("Error", statusError, job.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the job as JSON")
	return cmd
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	var errMsg string

	cmd := &cobra.Command{
		Use:   "status <job-id> <status>",
		Short: "Record a job's lifecycle transition",
		Long: `Record a job's lifecycle transition.

Executors report progress through this command: running when a render starts,
then succeeded or failed. Terminal jobs release their admission slot.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := jobs.ParseStatus(args[1])
			if err != nil {
				return err
			}
			repo, err := ctx.openJobs(cmd.Context())
			if err != nil {
				return err
			}
			if err := repo.UpdateStatus(cmd.Context(), args[0], status, strings.TrimSpace(errMsg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s marked %s\n", args[0], status)
			return nil
		},
	}
	cmd.Flags().StringVar(&errMsg, "error", "", "Failure detail recorded with the status")
	return cmd
}
