// Package executor applies action plans to the filesystem.
//
// Every plan runs as a small transaction: the source is hashed, the content
// is written to the destination, the result is hashed again and compared.
// Moves and renames are carried out as a copy and only remove the source
// once the copy verifies. A mismatch removes the destination and the plan
// fails with INTEGRITY_VERIFICATION_FAILURE; the source is never touched.
// Without verification a move is a plain rename. Successful operations are
// then recorded in the catalog and tagged.
//
// Plans writing to the same destination are serialised, so one Executor
// may be shared by concurrent workers.
package executor
