// Package filters lowers declarative filter-stack entries into ffmpeg
// filter expressions.
//
// Every supported filter type is a member of the closed Kind set. Numeric
// parameters are read with a default and silently clamped to a fixed range,
// so out-of-range edits saturate instead of failing. An unrecognised type is
// a hard UnsupportedFilterError: compiling a timeline must never drop a
// filter the user added.
package filters
