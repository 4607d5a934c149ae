// Package services defines shared utilities consumed by the planner,
// the job admission layer, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp render job IDs, tenant/env scope, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation vs capacity vs missing data) with errors.Is.
//
// Use these helpers when wiring new planning logic so error handling and
// observability stay uniform across components.
package services
