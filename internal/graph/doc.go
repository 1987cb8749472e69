// Package graph builds the dependency DAG over change units.
//
// Edges are the union of chain edges (each unit depends on its
// predecessor in the same namespace) and explicit cross-namespace
// dependencies declared on individual units. Duplicate IDs, dangling
// references and cycles are build-time failures; a graph is never
// returned partially constructed.
package graph
