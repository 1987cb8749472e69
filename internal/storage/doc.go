// Package storage adapts database/sql connections to the collaborator
// interfaces change units run against: a structural handle for shape
// changes and a row accessor for data movement.
//
// The structural handle is non-transactional from the engine's point
// of view: a failed DDL statement may have partially applied, which is
// why units carry authored reverse operations.
// SQLite and MySQL drivers are wired; any database/sql driver works.
package storage
