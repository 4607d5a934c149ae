// Package captions converts caption artifacts into SRT files the compiler can
// burn in with the subtitles filter.
//
// Artifacts may hold JSON cue lists, WebVTT, or SRT. Cue text is normalized
// to NFC, blank cues are dropped, and the result is cached under the
// captions directory keyed by artifact id and cache key.
package captions
