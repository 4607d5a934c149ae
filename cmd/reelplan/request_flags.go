package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelplan/internal/plan"
)

// requestFlags carries the render request options shared by plan and
// segments.
type requestFlags struct {
	snapshot       string
	project        string
	profile        string
	tenant         string
	env            string
	startMS        int64
	endMS          int64
	overlapMS      int64
	noOverlap      bool
	segmentMS      int64
	proxies        bool
	normalizeAudio bool
	loudness       float64
	ducking        bool
	captions       string
	captionStyle   []string
	output         string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.snapshot, "snapshot", "", "Import a timeline snapshot (YAML) before planning")
	flags.StringVarP(&f.project, "project", "p", "", "Project ID to render")
	flags.StringVar(&f.profile, "profile", "", "Render profile (defaults to render.default_profile)")
	flags.StringVar(&f.tenant, "tenant", "", "Tenant scope for job admission")
	flags.StringVar(&f.env, "env", "", "Environment scope for job admission")
	flags.Int64Var(&f.startMS, "start-ms", 0, "Window start on the sequence timeline")
	flags.Int64Var(&f.endMS, "end-ms", 0, "Window end on the sequence timeline (0 renders to the end)")
	flags.Int64Var(&f.overlapMS, "overlap-ms", 0, "Pre-roll overlap before the window start")
	flags.BoolVar(&f.noOverlap, "no-overlap", false, "Plan segments without overlap instead of the configured default")
	flags.BoolVar(&f.proxies, "proxies", false, "Prefer proxy media when available")
	flags.BoolVar(&f.normalizeAudio, "normalize-audio", false, "Apply loudness normalisation to the mix")
	flags.Float64Var(&f.loudness, "loudness", 0, "Integrated loudness target in LUFS")
	flags.BoolVar(&f.ducking, "ducking", false, "Duck music under dialogue")
	flags.StringVar(&f.captions, "captions", "", "Caption artifact ID to burn in")
	flags.StringSliceVar(&f.captionStyle, "caption-style", nil, "Caption style overrides as key=value")
	flags.StringVarP(&f.output, "output", "o", "", "Override the output path")
}

func (f *requestFlags) request() (plan.RenderRequest, error) {
	project := strings.TrimSpace(f.project)
	if project == "" {
		return plan.RenderRequest{}, fmt.Errorf("--project is required")
	}
	req := plan.RenderRequest{
		ProjectID:         project,
		TenantID:          strings.TrimSpace(f.tenant),
		Env:               strings.TrimSpace(f.env),
		Profile:           strings.TrimSpace(f.profile),
		StartMS:           f.startMS,
		EndMS:             f.endMS,
		OverlapMS:         f.overlapMS,
		NoOverlap:         f.noOverlap,
		SegmentDurationMS: f.segmentMS,
		UseProxies:        f.proxies,
		NormalizeAudio:    f.normalizeAudio,
		TargetLoudness:    f.loudness,
		Ducking:           f.ducking,
		OutputPath:        strings.TrimSpace(f.output),
	}
	if id := strings.TrimSpace(f.captions); id != "" {
		style, err := parseStyle(f.captionStyle)
		if err != nil {
			return plan.RenderRequest{}, err
		}
		req.Captions = &plan.CaptionOptions{ArtifactID: id, Style: style}
	}
	return req, nil
}

func parseStyle(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	style := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid caption style %q (expected key=value)", raw)
		}
		style[key] = strings.TrimSpace(value)
	}
	return style, nil
}
