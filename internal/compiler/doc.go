// Package compiler lowers a stored timeline into a RenderPlan: an ordered
// list of ffmpeg inputs, a -filter_complex graph, and the final command
// arguments.
//
// Compile reads the first sequence of a project, drops clips outside the
// (overlap-widened) request window, and lowers every remaining clip through a
// fixed video pipeline (source resolution, clip mask, stabilization, speed and
// slow motion, filter stack with region masks, profile conform) and an audio
// pipeline (trim, tempo, gain, volume automation, ducking, placement).
// Transitions are substituted for the clip pairs they join, layers are
// composed as a left fold in track order, and track- then sequence-level
// filters and burned-in captions are applied last.
//
// Missing derived artifacts never abort a compile. They are recorded on the
// CompileContext as warnings and dependency notices and the plan is produced
// at reduced fidelity. Hard failures are limited to bad requests, missing
// project/sequence/track data, unsupported filter types, and store errors.
package compiler
