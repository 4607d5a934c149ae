// Package jobs persists render jobs and guards their admission.
//
// A VideoRenderJob is created once by the render service and then moved
// through queued, running, and a terminal state by the execution backend.
// Admission derives a cache key from the request and the project revision,
// returns an existing non-terminal job with the same key, and otherwise
// refuses the job when its tenant/env scope is at its concurrency ceiling.
// The check-then-create sequence is serialized per scope by an in-process
// mutex and a file lock so concurrent CLI invocations cannot overshoot.
package jobs
