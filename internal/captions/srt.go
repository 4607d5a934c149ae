package captions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSRT reads SRT blocks. Blocks without a timing line are skipped.
func ParseSRT(raw []byte) ([]Cue, error) {
	var cues []Cue
	for _, block := range splitBlocks(string(raw)) {
		lines := strings.Split(block, "\n")
		start := 0
		if start < len(lines) && isNumeric(lines[start]) {
			start++
		}
		if start >= len(lines) || !strings.Contains(lines[start], "-->") {
			continue
		}
		cue, err := parseTiming(lines[start])
		if err != nil {
			return nil, err
		}
		cue.Text = strings.Join(lines[start+1:], "\n")
		cues = append(cues, cue)
	}
	return cues, nil
}

func splitBlocks(content string) []string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n\n")
}

// parseTiming reads "start --> end", ignoring WebVTT cue settings after the
// end timestamp.
func parseTiming(line string) (Cue, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return Cue{}, fmt.Errorf("invalid timing line %q", line)
	}
	end := strings.Fields(parts[1])
	if len(end) == 0 {
		return Cue{}, fmt.Errorf("invalid timing line %q", line)
	}
	startTS, err := parseTimestamp(parts[0])
	if err != nil {
		return Cue{}, err
	}
	endTS, err := parseTimestamp(end[0])
	if err != nil {
		return Cue{}, err
	}
	return Cue{Start: startTS, End: endTS}, nil
}

// parseTimestamp accepts HH:MM:SS,mmm, HH:MM:SS.mmm and the WebVTT short
// form MM:SS.mmm.
func parseTimestamp(value string) (time.Duration, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	clock, frac, _ := strings.Cut(value, ".")
	hms := strings.Split(clock, ":")
	if len(hms) == 2 {
		hms = append([]string{"0"}, hms...)
	}
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis := 0
	var errMS error
	if frac != "" {
		for len(frac) < 3 {
			frac += "0"
		}
		millis, errMS = strconv.Atoi(frac[:3])
	}
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second + time.Duration(millis)*time.Millisecond
	return total, nil
}

func isNumeric(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	_, err := strconv.Atoi(value)
	return err == nil
}
