package segments

import (
	"errors"
	"fmt"

	"reelplan/internal/jobs"
	"reelplan/internal/services"
)

// ErrNoSegmentJobs is returned when Stitch is called without jobs.
var ErrNoSegmentJobs = errors.New("no segment jobs to stitch")

// SegmentNotReadyError reports a segment job that has not succeeded.
type SegmentNotReadyError struct {
	JobID  string
	Index  int
	Status jobs.Status
}

func (e *SegmentNotReadyError) Error() string {
	return fmt.Sprintf("segment %d (job %s) is %s, not succeeded", e.Index, e.JobID, e.Status)
}

// Is classifies the error as a validation failure.
func (e *SegmentNotReadyError) Is(target error) bool {
	return target == services.ErrValidation
}
