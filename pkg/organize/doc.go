// Package organize runs a ruleset over a batch of catalogued files.
//
// For each file the first matching placement rule is executed and tags from
// every matching rule are applied. A file that is already where its rule
// would put it is skipped, so running the same rules twice changes nothing
// the second time. Failures stay with the file they happened to.
package organize
