// Package config handles configuration management for dosort.
//
// Values are layered, later sources winning:
//
//  1. embedded defaults (embedded/defaults.toml)
//  2. the user file, $XDG_CONFIG_HOME/dosort/config.toml or an explicit path
//  3. DOSORT_* environment variables (DOSORT_ORGANIZE_CONCURRENCY sets
//     organize.concurrency)
//  4. overrides supplied by the caller, typically command-line flags
//
// Paths left empty after layering are filled from pkg/paths.
package config
