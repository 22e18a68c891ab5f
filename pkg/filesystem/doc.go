// Package filesystem provides filesystem implementations for dosort.
//
// This package contains implementations of the types.FS interface: the
// standard OS filesystem and a hook wrapper used to inject faults in tests.
package filesystem
