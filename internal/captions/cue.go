package captions

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Cue is one timed caption.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// normalizeCues cleans cue text and drops cues with no text or no duration.
func normalizeCues(cues []Cue) []Cue {
	out := make([]Cue, 0, len(cues))
	for _, cue := range cues {
		text := strings.ReplaceAll(cue.Text, "\r\n", "\n")
		lines := strings.Split(norm.NFC.String(text), "\n")
		kept := lines[:0]
		for _, line := range lines {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				kept = append(kept, trimmed)
			}
		}
		if len(kept) == 0 || cue.End <= cue.Start {
			continue
		}
		cue.Text = strings.Join(kept, "\n")
		out = append(out, cue)
	}
	return out
}

// FormatSRT renders cues as numbered SRT blocks.
func FormatSRT(cues []Cue) []byte {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n", i+1, formatTimestamp(cue.Start), formatTimestamp(cue.End), cue.Text)
	}
	return []byte(sb.String())
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, (ms/60_000)%60, (ms/1000)%60, ms%1000)
}
