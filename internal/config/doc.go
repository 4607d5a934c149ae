// Package config loads, normalizes, and validates reelplan configuration data.
//
// It supplies repository defaults (including the built-in encoding profiles),
// expands user paths (including tilde shortcuts), reads TOML files, and honours
// environment fallbacks such as REELPLAN_MAX_CONCURRENT_JOBS. The Config type
// centralizes every knob the compiler, the job admission layer, and the CLI
// need, so render directories, segment sizing, and profile tables are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
