package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"reelplan/internal/deps"
	"reelplan/internal/jobs"
	"reelplan/internal/plan"
	"reelplan/internal/segments"
)

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Encoder", statusOK, "h264_qsv", false)
	if want := "  Encoder:       [OK] h264_qsv"; got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := renderStatusLine("Output", statusInfo, "", false); strings.TrimSpace(got) != "Output:        [INFO]" {
		t.Fatalf("empty message line = %q", got)
	}

	colored := renderStatusLine("Status", statusError, "failed", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestStatusWriterSeparatesSections(t *testing.T) {
	var buf bytes.Buffer
	w := newStatusWriter(&buf)
	w.section("Dependencies")
	w.line("FFmpeg", statusOK, "ffmpeg")
	w.section("Storage")
	w.info("Database", "/tmp/reelplan.db")

	want := strings.Join([]string{
		"== Dependencies ==",
		"  FFmpeg:        [OK] ffmpeg",
		"",
		"== Storage ==",
		"  Database:      [INFO] /tmp/reelplan.db",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("output mismatch\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestJobStatusKind(t *testing.T) {
	cases := map[jobs.Status]statusKind{
		jobs.StatusQueued:    statusInfo,
		jobs.StatusRunning:   statusWarn,
		jobs.StatusSucceeded: statusOK,
		jobs.StatusFailed:    statusError,
	}
	for status, want := range cases {
		if got := jobStatusKind(status); got != want {
			t.Errorf("jobStatusKind(%s) = %d, want %d", status, got, want)
		}
	}
}

func TestReportStatuses(t *testing.T) {
	cases := []struct {
		name     string
		status   func() (statusKind, string)
		wantKind statusKind
		wantMsg  string
	}{
		{
			name: "available notice",
			status: func() (statusKind, string) {
				return noticeStatus(plan.DependencyNotice{Kind: "visual_meta", ClipID: "c1", AssetID: "a1", Status: plan.DependencyAvailable})
			},
			wantKind: statusOK,
			wantMsg:  "available c1",
		},
		{
			name: "missing caption notice",
			status: func() (statusKind, string) {
				return noticeStatus(plan.DependencyNotice{Kind: "captions", ArtifactID: "cap1", Status: plan.DependencyMissing})
			},
			wantKind: statusWarn,
			wantMsg:  "missing cap1",
		},
		{
			name: "verified segment",
			status: func() (statusKind, string) {
				return verificationStatus(segments.OutputCheck{OK: true, ProbedMS: 10000, ExpectedMS: 10000})
			},
			wantKind: statusOK,
			wantMsg:  "10s (expected 10s)",
		},
		{
			name: "short segment",
			status: func() (statusKind, string) {
				return verificationStatus(segments.OutputCheck{Detail: "duration 4s, expected 10s"})
			},
			wantKind: statusError,
			wantMsg:  "duration 4s, expected 10s",
		},
		{
			name: "binary found",
			status: func() (statusKind, string) {
				return binaryStatus(deps.Status{Name: "FFmpeg", Command: "/usr/bin/ffmpeg", Available: true})
			},
			wantKind: statusOK,
			wantMsg:  "/usr/bin/ffmpeg",
		},
		{
			name: "optional binary missing",
			status: func() (statusKind, string) {
				return binaryStatus(deps.Status{Name: "vidstab", Optional: true, Detail: "not found"})
			},
			wantKind: statusWarn,
			wantMsg:  "not found",
		},
		{
			name: "required binary missing",
			status: func() (statusKind, string) {
				return binaryStatus(deps.Status{Name: "FFprobe", Detail: "not in PATH"})
			},
			wantKind: statusError,
			wantMsg:  "not in PATH",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, msg := tc.status()
			if kind != tc.wantKind || msg != tc.wantMsg {
				t.Fatalf("got (%s, %q), want (%s, %q)",
					statusKinds[kind].label, msg, statusKinds[tc.wantKind].label, tc.wantMsg)
			}
		})
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}
