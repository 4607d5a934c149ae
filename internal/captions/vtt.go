package captions

import (
	"errors"
	"strings"
)

// ParseVTT reads WebVTT cues. NOTE, STYLE and REGION blocks are ignored and
// inline tags are stripped.
func ParseVTT(raw []byte) ([]Cue, error) {
	blocks := splitBlocks(strings.TrimPrefix(string(raw), "\ufeff"))
	if len(blocks) == 0 || !strings.HasPrefix(blocks[0], "WEBVTT") {
		return nil, errors.New("missing WEBVTT header")
	}
	var cues []Cue
	for _, block := range blocks[1:] {
		lines := strings.Split(block, "\n")
		first := strings.TrimSpace(lines[0])
		if strings.HasPrefix(first, "NOTE") || first == "STYLE" || first == "REGION" {
			continue
		}
		timing := 0
		if !strings.Contains(lines[0], "-->") {
			timing = 1
		}
		if timing >= len(lines) || !strings.Contains(lines[timing], "-->") {
			continue
		}
		cue, err := parseTiming(lines[timing])
		if err != nil {
			return nil, err
		}
		cue.Text = stripTags(strings.Join(lines[timing+1:], "\n"))
		cues = append(cues, cue)
	}
	return cues, nil
}

func stripTags(text string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
