// Package types holds the data model shared by the rule engine, the executor
// and the batch organizer, plus the interfaces of their collaborators.
package types
