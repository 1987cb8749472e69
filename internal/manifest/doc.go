// Package manifest loads declarative change sets from YAML files.
//
// A manifest declares namespaced sequences of SQL-backed units with
// forward and reverse statements and optional explicit dependencies on
// units in other namespaces. Files are validated against an embedded
// CUE schema before any unit is constructed, so malformed declarations
// fail with positions instead of half-built change sets.
//
// Manifests cover the common case of authored SQL migrations;
// programmatic units (for example data transforms using the row
// accessor) are registered in Go and merged with manifest change sets
// at graph build time.
package manifest
