// Package plan holds the value types exchanged between the render planner
// and its callers: the incoming RenderRequest, the compiled RenderPlan with
// its structured metadata, per-segment descriptors, and the planning-only
// RenderResult.
//
// Values produced by the compiler are immutable once returned; callers that
// need to adjust a plan should copy it.
package plan
