// Package ffprobe inspects rendered files with ffprobe's JSON output.
//
// Segment renders are probed before stitching so a truncated or failed
// encode is caught before its duration is trusted in the concat graph.
//
// Key types:
//   - Prober: runs ffprobe through an injectable command runner
//   - Result: parsed streams and container format
package ffprobe
