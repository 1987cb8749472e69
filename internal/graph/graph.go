package graph

import (
	"sort"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// Graph is the immutable dependency DAG over change units. Build is
// the only constructor; a Graph in hand is known acyclic and fully
// resolved.
type Graph struct {
	units      map[unit.ID]*unit.Unit
	deps       map[unit.ID][]unit.ID
	dependents map[unit.ID][]unit.ID
	order      []unit.ID
}

// Build merges the given change sets into one DAG: chain edges within
// each namespace unioned with each unit's explicit dependencies.
//
// Build fails with a *BuildError on duplicate unit IDs, dangling
// dependency references, chain-invariant violations, or cycles. It
// never returns a partial graph alongside an error.
func Build(sets ...*unit.ChangeSet) (*Graph, error) {
	g := &Graph{
		units:      make(map[unit.ID]*unit.Unit),
		deps:       make(map[unit.ID][]unit.ID),
		dependents: make(map[unit.ID][]unit.ID),
	}

	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return nil, &BuildError{Code: ErrCodeInvalidSet, Message: err.Error()}
		}
		for _, u := range s.Units {
			if _, ok := g.units[u.ID]; ok {
				return nil, &BuildError{
					Code:    ErrCodeDuplicateUnit,
					Message: "unit declared more than once",
					Unit:    u.ID,
				}
			}
			g.units[u.ID] = u
		}
	}

	for _, u := range g.units {
		// Explicit dependencies come first, sorted by the
		// deterministic key; the chain edge comes last. Plan order
		// follows this visitation order, so a data unit's declared
		// cross-namespace prerequisites surface ahead of its own
		// namespace's history.
		edges := make([]unit.ID, 0, len(u.Depends)+1)
		for _, dep := range u.Depends {
			if dep == u.ID {
				return nil, &BuildError{
					Code:    ErrCodeCycle,
					Message: "unit depends on itself",
					Cycle:   []unit.ID{u.ID, u.ID},
				}
			}
			edges = append(edges, dep)
		}
		sortIDs(edges)
		if u.ID.Seq > 1 {
			// Chain invariant: depend on the predecessor in the
			// same namespace.
			edges = append(edges, unit.NewID(u.ID.Namespace, u.ID.Seq-1))
		}
		seen := make(map[unit.ID]bool, len(edges))
		for _, dep := range edges {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if _, ok := g.units[dep]; !ok {
				return nil, &BuildError{
					Code:    ErrCodeDanglingDependency,
					Message: "dependency " + dep.String() + " does not exist",
					Unit:    u.ID,
				}
			}
			g.deps[u.ID] = append(g.deps[u.ID], dep)
			g.dependents[dep] = append(g.dependents[dep], u.ID)
		}
	}
	for id := range g.dependents {
		sortIDs(g.dependents[id])
	}

	if cycle := findCycle(g); cycle != nil {
		return nil, &BuildError{
			Code:    ErrCodeCycle,
			Message: "dependency cycle",
			Cycle:   cycle,
		}
	}

	g.order = topoSort(g)
	return g, nil
}

// Unit returns the unit for id, if present.
func (g *Graph) Unit(id unit.ID) (*unit.Unit, bool) {
	u, ok := g.units[id]
	return u, ok
}

// Contains reports whether id exists in the graph.
func (g *Graph) Contains(id unit.ID) bool {
	_, ok := g.units[id]
	return ok
}

// Len returns the number of units.
func (g *Graph) Len() int {
	return len(g.units)
}

// Dependencies returns the direct dependencies of id in visitation
// order: explicit dependencies sorted by the deterministic key, then
// the chain edge.
func (g *Graph) Dependencies(id unit.ID) []unit.ID {
	return g.deps[id]
}

// Dependents returns the units that directly depend on id.
func (g *Graph) Dependents(id unit.ID) []unit.ID {
	return g.dependents[id]
}

// TopoOrder returns every unit in dependency order: dependencies
// before dependents, ties broken by (namespace, seq) so the order is
// reproducible across runs.
func (g *Graph) TopoOrder() []unit.ID {
	out := make([]unit.ID, len(g.order))
	copy(out, g.order)
	return out
}

// Tips returns the units no other unit depends on, sorted. Applying
// forward through every tip applies the whole graph.
func (g *Graph) Tips() []unit.ID {
	var tips []unit.ID
	for id := range g.units {
		if len(g.dependents[id]) == 0 {
			tips = append(tips, id)
		}
	}
	sortIDs(tips)
	return tips
}

// Ancestors returns the transitive dependencies of id, not including
// id itself.
func (g *Graph) Ancestors(id unit.ID) []unit.ID {
	return g.reach(id, g.deps)
}

// Descendants returns the transitive dependents of id, not including
// id itself.
func (g *Graph) Descendants(id unit.ID) []unit.ID {
	return g.reach(id, g.dependents)
}

func (g *Graph) reach(start unit.ID, edges map[unit.ID][]unit.ID) []unit.ID {
	seen := map[unit.ID]bool{start: true}
	var out []unit.ID
	stack := append([]unit.ID(nil), edges[start]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		stack = append(stack, edges[id]...)
	}
	sortIDs(out)
	return out
}

// topoSort emits every unit in depth-first post-order from the tips,
// tips taken in (namespace, seq) order and each unit's dependencies in
// visitation order. The graph is already known acyclic, and every unit
// reaches some tip, so every unit is emitted exactly once. The result
// is stable for identical inputs.
func topoSort(g *Graph) []unit.ID {
	done := make(map[unit.ID]bool, len(g.units))
	order := make([]unit.ID, 0, len(g.units))

	var visit func(id unit.ID)
	visit = func(id unit.ID) {
		if done[id] {
			return
		}
		done[id] = true
		for _, dep := range g.deps[id] {
			visit(dep)
		}
		order = append(order, id)
	}
	for _, tip := range g.Tips() {
		visit(tip)
	}
	return order
}

func sortIDs(ids []unit.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
