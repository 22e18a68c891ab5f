// Package catalog stores the index of known files, their tags and the log
// of actions applied to them.
//
// Two backends implement Store: SQLiteStore, whose schema is compatible with
// existing file-manager databases, and MemoryStore for tests and previews.
// Provider builds rule evaluation contexts from either backend.
package catalog
