// Package unit defines the atomic migration model: change units with
// forward and reverse operations, and the namespaced change sets that
// order them.
//
// Units are authored statically, before any execution. Constructing a
// unit has no side effects; storage is only touched when the executor
// invokes Forward or Reverse with an environment of collaborators.
package unit
