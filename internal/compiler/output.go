package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"reelplan/internal/filters"
	"reelplan/internal/graph"
	"reelplan/internal/logging"
	"reelplan/internal/plan"
)

// selectEncoder prefers the profile's first hardware encoder the probe
// reports, falling back to the profile's software codec.
func (c *Compiler) selectEncoder(ctx context.Context, cc *CompileContext) string {
	software := cc.Profile.Codec
	options := append(append([]string(nil), cc.Profile.HardwareEncoders...), software)
	profile := logging.String("render_profile", cc.ProfileName)
	if c.probe == nil || len(cc.Profile.HardwareEncoders) == 0 {
		cc.DecisionAmong("encoder_selection", software, "no hardware probe", options, profile)
		return software
	}
	available := c.probe.HardwareEncoders(ctx)
	for _, candidate := range cc.Profile.HardwareEncoders {
		if _, ok := available[candidate]; ok {
			cc.DecisionAmong("encoder_selection", candidate, "hardware encoder available", options, profile)
			return candidate
		}
	}
	cc.DecisionAmong("encoder_selection", software, "no hardware candidate available", options, profile)
	return software
}

// commandArgs assembles the ffmpeg argument list. The graph is already
// rebased to the window start, so bounded windows only need -t.
func (c *Compiler) commandArgs(cc *CompileContext, result plan.RenderPlan, encoder, videoOut, audioOut string) []string {
	p := cc.Profile
	args := []string{c.settings.FFmpegBinary, "-hide_banner", "-y"}
	for _, in := range result.InputMeta {
		if in.Format != "" {
			args = append(args, "-f", in.Format)
		}
		args = append(args, "-i", in.URI)
	}
	args = append(args,
		"-filter_complex", graph.Join(result.Filters, result.AudioFilters),
		"-map", "["+videoOut+"]",
		"-map", "["+audioOut+"]",
		"-c:v", encoder,
	)
	if p.Bitrate != "" {
		args = append(args, "-b:v", p.Bitrate)
	}
	if encoder == p.Codec && p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	args = append(args,
		"-pix_fmt", p.PixelFormat,
		"-r", filters.FormatNumber(p.FPS),
		"-c:a", p.AudioCodec,
	)
	if p.AudioBitrate != "" {
		args = append(args, "-b:a", p.AudioBitrate)
	}
	args = append(args, "-ac", "2")
	if cc.Request.Bounded() {
		args = append(args, "-t", seconds(cc.DurationMS))
	}
	return append(args, result.OutputPath)
}

// outputPath names the render output; segment renders carry their index.
func (c *Compiler) outputPath(req plan.RenderRequest, profileName string) string {
	if path := strings.TrimSpace(req.OutputPath); path != "" {
		return path
	}
	name := req.ProjectID + "_" + profileName
	if req.SegmentIndex != nil {
		name += fmt.Sprintf("_seg%03d", *req.SegmentIndex)
	}
	return filepath.Join(c.settings.RenderDir, name+".mp4")
}
