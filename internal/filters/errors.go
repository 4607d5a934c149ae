package filters

import (
	"errors"
	"fmt"

	"reelplan/internal/services"
)

// ErrMissingLUTPath is returned when a lut filter is lowered before its
// artifact has been resolved to a path.
var ErrMissingLUTPath = errors.New("lut filter requires a resolved path")

// UnsupportedFilterError reports a filter type outside the closed Kind set.
type UnsupportedFilterError struct {
	Type string
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("unsupported filter type %q", e.Type)
}

// Is classifies the error as a validation failure.
func (e *UnsupportedFilterError) Is(target error) bool {
	return target == services.ErrValidation
}
