package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelplan/internal/plan"
)

type planOutput struct {
	Result plan.RenderResult `json:"result"`
	Plan   plan.RenderPlan   `json:"plan"`
}

type submitOutput struct {
	JobID    string `json:"job_id"`
	Existing bool   `json:"existing"`
	Status   string `json:"status"`
	CacheKey string `json:"render_cache_key"`
	Output   string `json:"output_path"`
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags requestFlags
	var jsonOutput bool
	var submit bool
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compile a project into an ffmpeg render plan",
		Long: `Compile a project's primary sequence into an ffmpeg filter graph.

The plan is printed, never executed. With --submit the plan is admitted as a
render job, subject to the tenant's concurrency ceiling.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			if err := ctx.importSnapshot(cmd.Context(), flags.snapshot, logger); err != nil {
				return err
			}
			bundle, err := ctx.buildService(cmd.Context(), logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if submit {
				job, existing, err := bundle.service.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				result := submitOutput{
					JobID:    job.ID,
					Existing: existing,
					Status:   string(job.Status),
					CacheKey: job.RenderCacheKey,
					Output:   job.OutputPath(),
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				verb := "Admitted"
				if existing {
					verb = "Reused"
				}
				fmt.Fprintf(out, "%s job %s (%s)\n", verb, result.JobID, result.Status)
				fmt.Fprintf(out, "Output: %s\n", result.Output)
				return ctx.printMetrics(cmd, showMetrics)
			}

			result, compiled, err := bundle.service.Plan(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, planOutput{Result: result, Plan: compiled})
			}
			printPlan(out, result, compiled)
			return ctx.printMetrics(cmd, showMetrics)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result and plan as JSON")
	cmd.Flags().BoolVar(&submit, "submit", false, "Admit the plan as a render job")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print compile and admission metrics after planning")
	return cmd
}

func printPlan(out io.Writer, result plan.RenderResult, p plan.RenderPlan) {
	w := newStatusWriter(out)
	w.section("Render plan")
	meta := p.Meta
	w.info("Profile", p.Profile)
	w.info("Encoder", meta.EncoderUsed)
	w.info("Window", formatWindow(p.StartMS, p.EndMS, meta.TotalDurationMS))
	w.info("Output", p.OutputPath)
	if result.ArtifactID != "" {
		w.info("Artifact", result.ArtifactID)
	}
	if len(meta.Transitions) > 0 {
		w.info("Transitions", fmt.Sprint(len(meta.Transitions)))
	}
	if meta.DuckingAnalysis.Enabled {
		w.info("Ducking", fmt.Sprintf("%d speech windows, %d clips ducked",
			len(meta.DuckingAnalysis.SpeechWindows), len(meta.DuckingAnalysis.DuckedClips)))
	}
	for _, notice := range meta.DependencyNotices {
		kind, msg := noticeStatus(notice)
		w.line(notice.Kind, kind, msg)
	}
	for _, warning := range meta.Warnings {
		w.line("Warning", statusWarn, warning)
	}

	if len(p.InputMeta) > 0 {
		rows := make([][]string, 0, len(p.InputMeta))
		for _, in := range p.InputMeta {
			rows = append(rows, []string{fmt.Sprint(in.Index), in.Kind, firstNonEmpty(in.ClipID, in.ArtifactID, "-"), in.URI})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"#", "Kind", "Clip", "URI"}, rows, []columnAlignment{alignRight}))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, result.PlanPreview)
}

func formatWindow(startMS, endMS, totalMS int64) string {
	end := "end"
	if endMS > 0 {
		end = humanize.Comma(endMS) + "ms"
	}
	return fmt.Sprintf("%sms to %s (%s)", humanize.Comma(startMS), end, formatMS(totalMS))
}

// formatMS renders a millisecond duration as seconds with one decimal.
func formatMS(ms int64) string {
	return humanize.FtoaWithDigits(float64(ms)/1000, 1) + "s"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
