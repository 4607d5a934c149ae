package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelplan/internal/jobs"
	"reelplan/internal/plan"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
}

func TestConfigProfilesListsDefault(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "profiles"}, env.configPath)
	if err != nil {
		t.Fatalf("config profiles: %v", err)
	}
	requireContains(t, out, "720p")
	requireContains(t, out, "1280x720")
}

func TestImportAndPlan(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"import", promoSnapshot}, env.configPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Clips")

	out, _, err = runCLI(t, []string{"plan", "--project", "promo", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var decoded planOutput
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode plan output: %v\n%s", err, out)
	}
	want := filepath.Join(env.cfg.Paths.RenderDir, "promo_720p.mp4")
	if decoded.Plan.OutputPath != want {
		t.Fatalf("output path = %q, want %q", decoded.Plan.OutputPath, want)
	}
	if decoded.Result.URI != want || decoded.Result.RenderProfile != "720p" {
		t.Fatalf("unexpected result %+v", decoded.Result)
	}
	if !strings.HasPrefix(decoded.Result.PlanPreview, "ffmpeg ") {
		t.Fatalf("preview = %q", decoded.Result.PlanPreview)
	}

	out, _, err = runCLI(t, []string{"plan", "--project", "promo"}, env.configPath)
	if err != nil {
		t.Fatalf("plan (text): %v", err)
	}
	requireContains(t, out, "== Render plan ==")
	requireContains(t, out, "-filter_complex")
}

func TestPlanRequiresProject(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"plan"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--project is required") {
		t.Fatalf("expected missing project error, got %v", err)
	}
}

func TestPlanUnknownProject(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"plan", "--project", "ghost"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown project")
	}
}

func TestPlanSubmitDeduplicates(t *testing.T) {
	env := setupCLITestEnv(t)
	args := []string{"plan", "--snapshot", promoSnapshot, "--project", "promo", "--submit", "--json", "--tenant", "acme"}

	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	var first submitOutput
	if err := json.Unmarshal([]byte(out), &first); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if first.Existing || first.Status != string(jobs.StatusQueued) {
		t.Fatalf("unexpected first submit %+v", first)
	}

	out, _, err = runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	var second submitOutput
	if err := json.Unmarshal([]byte(out), &second); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if !second.Existing || second.JobID != first.JobID {
		t.Fatalf("expected dedupe onto %s, got %+v", first.JobID, second)
	}

	out, _, err = runCLI(t, []string{"jobs", "list", "--tenant", "acme"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, first.JobID)
	requireContains(t, out, "acme/default")
}

func TestSegmentsSubmitAndStitch(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"segments", "--snapshot", promoSnapshot, "--project", "promo", "--segment-ms", "5000"}, env.configPath)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	requireContains(t, out, "Cache key")

	out, _, err = runCLI(t, []string{"segments", "--project", "promo", "--segment-ms", "5000", "--submit", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("segments submit: %v", err)
	}
	var submitted []jobs.VideoRenderJob
	if err := json.Unmarshal([]byte(out), &submitted); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(submitted) < 3 {
		t.Fatalf("expected at least 3 segment jobs, got %d", len(submitted))
	}

	ids := make([]string, 0, len(submitted))
	for _, job := range submitted {
		if job.JobType != jobs.TypeSegment || job.SegmentIndex == nil {
			t.Fatalf("unexpected job %+v", job)
		}
		ids = append(ids, job.ID)
	}

	if _, _, err := runCLI(t, append([]string{"segments", "stitch"}, ids...), env.configPath); err == nil {
		t.Fatal("expected stitch to fail while segments are queued")
	}

	for _, id := range ids {
		out, _, err := runCLI(t, []string{"jobs", "status", id, "succeeded"}, env.configPath)
		if err != nil {
			t.Fatalf("jobs status %s: %v", id, err)
		}
		requireContains(t, out, "marked succeeded")
	}

	out, _, err = runCLI(t, append([]string{"segments", "stitch", "--json"}, ids...), env.configPath)
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}
	var stitched plan.RenderPlan
	if err := json.Unmarshal([]byte(out), &stitched); err != nil {
		t.Fatalf("decode stitch: %v", err)
	}
	if stitched.Meta.SegmentCount != len(ids) {
		t.Fatalf("segment count = %d, want %d", stitched.Meta.SegmentCount, len(ids))
	}
	if len(stitched.Inputs) != len(ids) {
		t.Fatalf("inputs = %d, want %d", len(stitched.Inputs), len(ids))
	}

	// The stub ffprobe prints nothing, so no output can verify.
	_, _, err = runCLI(t, append([]string{"segments", "verify"}, ids...), env.configPath)
	if err == nil || !strings.Contains(err.Error(), "failed verification") {
		t.Fatalf("expected verification failure, got %v", err)
	}
}

func TestJobsStatusValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"jobs", "status", "some-id", "paused"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown job status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"jobs", "status", "missing", "failed"}, env.configPath); err == nil {
		t.Fatal("expected error for missing job")
	}
	if _, _, err := runCLI(t, []string{"jobs", "show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for missing job")
	}

	out, _, err := runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "No jobs")
}

func TestDoctorReportsBinaries(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "[OK]")
	requireContains(t, out, "(software)")
}

func TestEncodersCommandWithoutHardware(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"probe", "encoders"}, env.configPath)
	if err != nil {
		t.Fatalf("probe encoders: %v", err)
	}
	requireContains(t, out, "No hardware encoders detected")
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", input: nil, want: nil},
		{name: "pairs", input: []string{"FontSize=24", " PrimaryColour = &H00FFFFFF"}, want: map[string]string{"FontSize": "24", "PrimaryColour": "&H00FFFFFF"}},
		{name: "missing separator", input: []string{"FontSize"}, wantErr: true},
		{name: "empty key", input: []string{"=24"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStyle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Fatalf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestFormatMS(t *testing.T) {
	cases := map[int64]string{0: "0s", 1500: "1.5s", 25000: "25s"}
	for in, want := range cases {
		if got := formatMS(in); got != want {
			t.Fatalf("formatMS(%d) = %q, want %q", in, got, want)
		}
	}
}
