package compiler_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"reelplan/internal/compiler"
	"reelplan/internal/logging"
	"reelplan/internal/media"
	"reelplan/internal/plan"
	"reelplan/internal/timeline"
)

// decisions decodes the JSON log and returns decision entries keyed by type.
func decisions(t *testing.T, buf *bytes.Buffer) map[string]map[string]any {
	t.Helper()
	out := map[string]map[string]any{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", scanner.Text(), err)
		}
		if kind, ok := entry[logging.FieldDecisionType].(string); ok {
			out[kind] = entry
		}
	}
	return out
}

func TestCompileLogsDecisionOptions(t *testing.T) {
	f := newFixture(t, 4000)
	videoTrack(f, "t1", 0)
	f.AddAsset(media.Asset{ID: "a1", SourceURI: "/media/a1.mp4"})
	f.AddClip(timeline.Clip{ID: "c1", TrackID: "t1", AssetID: "a1", OutMS: 2000, Speed: 0.5,
		Meta: map[string]any{"slowmo_quality": "fast"}})

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := newCompiler(f, compiler.WithLogger(logger), compiler.WithEncoderProbe(stubProbe{"h264_qsv": {}}))
	mustCompile(t, c, plan.RenderRequest{ProjectID: "p1", Profile: "720p"})

	logged := decisions(t, &buf)
	encoder, ok := logged["encoder_selection"]
	if !ok {
		t.Fatalf("no encoder decision logged in %s", buf.String())
	}
	if encoder["decision_result"] != "h264_qsv" {
		t.Fatalf("decision_result = %v", encoder["decision_result"])
	}
	options, _ := encoder["decision_options"].(string)
	if !strings.Contains(options, "h264_qsv") || !strings.HasSuffix(options, ",libx264") {
		t.Fatalf("decision_options = %q", options)
	}

	slowmo, ok := logged["slowmo_interpolation"]
	if !ok {
		t.Fatal("no slow-motion decision logged")
	}
	if slowmo["decision_options"] != "high,medium,fast" || slowmo["speed"] != 0.5 {
		t.Fatalf("slowmo decision = %v", slowmo)
	}
}
