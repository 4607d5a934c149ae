// Package render is the entry point callers use to plan renders and queue
// them as jobs.
//
// Plan compiles a request into a planning-only RenderResult. Submit compiles
// and admits one whole-sequence job. SubmitSegments partitions the sequence,
// compiles each segment against its widened window and admits one job per
// segment. Stitch builds the join plan once every segment job has succeeded;
// it never waits for jobs itself.
package render
