package jobs

import (
	"fmt"

	"reelplan/internal/services"
)

// CapacityError reports a scope at its concurrency ceiling.
type CapacityError struct {
	TenantID string
	Env      string
	Active   int
	Max      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("tenant %q env %q has %d active render jobs (max %d)", e.TenantID, e.Env, e.Active, e.Max)
}

// Is classifies the error as a capacity refusal.
func (e *CapacityError) Is(target error) bool {
	return target == services.ErrCapacity
}
