package graph

import "github.com/lockstep-db/lockstep/internal/unit"

// DFS colors for cycle detection.
const (
	white = iota // unvisited
	grey         // on the current DFS path
	black        // fully explored
)

// findCycle runs a depth-first search over the dependency edges and
// returns one cycle as a path whose first and last elements are equal,
// or nil if the graph is acyclic. Roots are visited in deterministic
// order so the reported cycle is stable for a given input.
func findCycle(g *Graph) []unit.ID {
	color := make(map[unit.ID]int, len(g.units))

	roots := make([]unit.ID, 0, len(g.units))
	for id := range g.units {
		roots = append(roots, id)
	}
	sortIDs(roots)

	var path []unit.ID
	var visit func(id unit.ID) []unit.ID
	visit = func(id unit.ID) []unit.ID {
		color[id] = grey
		path = append(path, id)
		for _, dep := range g.deps[id] {
			switch color[dep] {
			case grey:
				// Found the back edge; slice the cycle out of
				// the current path.
				for i, p := range path {
					if p == dep {
						cycle := append([]unit.ID(nil), path[i:]...)
						return append(cycle, dep)
					}
				}
			case white:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, id := range roots {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
