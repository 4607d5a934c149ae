// Package segments partitions a sequence into fixed-length render windows
// and stitches the rendered segments back into one output.
//
// Each RenderSegment keeps two ranges: the logical [StartMS, EndMS) it
// contributes to the final output, and the compile window widened by
// OverlapMS on both sides. Stitch trims every segment back to its logical
// range before concatenating, so N segments of duration D always join to
// N*D regardless of overlap.
package segments
