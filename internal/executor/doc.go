// Package executor runs plans one unit at a time.
//
// A unit is the atomicity boundary: its operation runs to completion
// or failure, the ledger is updated, and only then does the next unit
// start. Cancellation is honored between units, never inside one. On
// the first failure the executor stops; it never reverts units applied
// earlier in the run, because structural operations may have partially
// mutated storage and only an authored reverse operation, run as its
// own later invocation, can compensate.
package executor
