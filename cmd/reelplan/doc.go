// Package main hosts the reelplan CLI entrypoint and command graph.
//
// The Cobra command tree loads a timeline snapshot into the local SQLite
// store, compiles render plans, partitions long sequences into segments,
// admits render jobs, and inspects the host for the binaries and hardware
// encoders a plan expects. Planning logic lives in internal packages; the
// commands here resolve configuration, wire collaborators, and format output.
package main
