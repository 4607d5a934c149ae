package captions

import (
	"encoding/json"
	"fmt"
	"time"
)

type jsonCue struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// ParseJSON reads either a bare cue array or an object with a "cues" array.
func ParseJSON(raw []byte) ([]Cue, error) {
	var list []jsonCue
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Cues []jsonCue `json:"cues"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode caption json: %w", err)
		}
		list = wrapped.Cues
	}
	cues := make([]Cue, 0, len(list))
	for _, c := range list {
		cues = append(cues, Cue{
			Start: time.Duration(c.StartMS) * time.Millisecond,
			End:   time.Duration(c.EndMS) * time.Millisecond,
			Text:  c.Text,
		})
	}
	return cues, nil
}
