package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelplan/internal/plan"
	"reelplan/internal/render"
)

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	var flags requestFlags
	var jsonOutput bool
	var submit bool

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Partition a long sequence into overlapping render segments",
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
				jobs, err := bundle.service.SubmitSegments(cmd.Context(), req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, jobs)
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						formatIndex(job.SegmentIndex),
						job.ID,
						string(job.Status),
						formatMS(job.SegmentStartMS),
						formatMS(job.SegmentEndMS),
						job.OutputPath(),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Job", "Status", "Start", "End", "Output"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			}

			segs, err := bundle.service.PlanSegments(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, segs)
			}
			fmt.Fprintln(out, renderSegments(segs))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Int64Var(&flags.segmentMS, "segment-ms", 0, "Segment length (defaults to render.segment_duration_ms)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output segments or jobs as JSON")
	cmd.Flags().BoolVar(&submit, "submit", false, "Compile and admit one render job per segment")

	cmd.AddCommand(newStitchCommand(ctx))
	cmd.AddCommand(newVerifyCommand(ctx))
	return cmd
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <job-id>...",
		Short: "Probe rendered segment outputs against their recorded windows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			bundle, err := ctx.buildService(cmd.Context(), logger)
			if err != nil {
				return err
			}
			checks, err := bundle.service.VerifySegments(cmd.Context(), args)
			if err != nil {
				return err
			}
			failed := 0
			for _, check := range checks {
				if !check.OK {
					failed++
				}
			}
			if jsonOutput {
				if err := writeJSON(cmd, checks); err != nil {
					return err
				}
			} else {
				w := newStatusWriter(cmd.OutOrStdout())
				for _, check := range checks {
					kind, msg := verificationStatus(check)
					w.line(fmt.Sprintf("Segment %d", check.Index), kind, msg)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d segment(s) failed verification", failed, len(checks))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output verification results as JSON")
	return cmd
}

func newStitchCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stitch <job-id>...",
		Short: "Plan the concatenation of finished segment renders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			bundle, err := ctx.buildService(cmd.Context(), logger)
			if err != nil {
				return err
			}
			stitched, err := bundle.service.Stitch(cmd.Context(), args)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stitched)
			}
			out := cmd.OutOrStdout()
			w := newStatusWriter(out)
			w.section("Stitch plan")
			w.info("Segments", fmt.Sprint(stitched.Meta.SegmentCount))
			w.info("Duration", formatMS(stitched.Meta.TotalDurationMS))
			w.info("Output", stitched.OutputPath)
			fmt.Fprintln(out)
			fmt.Fprintln(out, render.Preview(stitched))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the stitch plan as JSON")
	return cmd
}

func renderSegments(segs []plan.RenderSegment) string {
	rows := make([][]string, 0, len(segs))
	var total int64
	for _, seg := range segs {
		total += seg.EndMS - seg.StartMS
		rows = append(rows, []string{
			fmt.Sprint(seg.SegmentIndex),
			formatMS(seg.StartMS),
			formatMS(seg.EndMS),
			formatMS(seg.OverlapMS),
			shortKey(seg.CacheKey),
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "Overlap", "Cache key"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
		fmt.Sprintf("%d", len(segs)), "", formatMS(total),
	)
}

func formatIndex(index *int) string {
	if index == nil {
		return "-"
	}
	return fmt.Sprint(*index)
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
