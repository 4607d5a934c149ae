package render

import (
	"errors"

	"reelplan/internal/media"
	"reelplan/internal/timeline"
)

func isNotFound(err error) bool {
	return errors.Is(err, timeline.ErrNotFound) || errors.Is(err, media.ErrNotFound)
}
