// Package planner computes linear execution plans over the dependency
// graph relative to a target checkpoint.
//
// A forward plan applies the target's unapplied transitive dependencies
// and the target itself, dependencies first. A backward plan reverts
// the target's applied transitive dependents and the target itself,
// dependents first, so "backward through X" leaves X unapplied.
// Planning never mutates the ledger, and a target that is already
// satisfied yields an empty plan rather than an error.
package planner
