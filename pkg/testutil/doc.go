// Package testutil provides utilities for testing dosort components.
//
// Key components:
//   - Isolate: points every dosort directory at a per-test temp dir
//   - FileTree: declarative file tree setup on the real filesystem
//   - file helpers and assertions for content and hashes
//
// Tests that touch the real filesystem should build their trees below
// t.TempDir() through these helpers so cleanup is automatic.
package testutil
