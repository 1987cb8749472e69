// Package ledger records which change units have been applied.
//
// The ledger is the only persistent engine state: an ordered applied
// set, appended to on forward execution and trimmed from the tail on
// backward execution. Both mutations defensively enforce the
// downward-closed invariant (a unit is applied only while everything
// it depends on is applied) independently of the planner.
//
// Two implementations ship: a SQLite-backed ledger for real runs and
// an in-memory ledger for tests and dry runs. At most one executor may
// mutate a given ledger at a time; serializing executors (for example
// with an advisory lock around the whole invocation) is the operator's
// responsibility, not this package's.
package ledger
