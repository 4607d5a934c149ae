package timeline

import "context"

// Store is the read interface the compiler consumes. Implementations return
// ErrNotFound (possibly wrapped) for a missing project; list methods return
// empty slices rather than errors when nothing is attached.
type Store interface {
	GetProject(ctx context.Context, id string) (Project, error)
	ListSequences(ctx context.Context, projectID string) ([]Sequence, error)
	ListTracks(ctx context.Context, sequenceID string) ([]Track, error)
	ListClips(ctx context.Context, trackID string) ([]Clip, error)
	ListAutomation(ctx context.Context, targetType TargetType, targetID string) ([]Automation, error)
	ListTransitions(ctx context.Context, sequenceID string) ([]Transition, error)
	GetFilterStack(ctx context.Context, targetType TargetType, targetID string) (FilterStack, error)
}
