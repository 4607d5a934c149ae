// Package timeline models the non-destructive editing timeline the planner
// compiles: projects own sequences, sequences own ordered tracks and
// transitions, tracks own clips, and filter stacks or parameter automation
// attach to clips, tracks, or sequences.
//
// The package is read-only from the compiler's point of view. Persistence
// lives behind the Store interface; internal/storage provides the SQLite
// implementation used by the CLI and tests.
package timeline
