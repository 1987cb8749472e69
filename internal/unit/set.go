package unit

import "fmt"

// ChangeSet is the ordered, versioned sequence of units belonging to
// one namespace. Sequence numbers are strictly linear starting at 1;
// unit n implicitly depends on unit n-1 (the chain invariant), which
// the graph builder turns into an edge.
type ChangeSet struct {
	Namespace string
	Units     []*Unit
}

// NewChangeSet returns an empty change set for a namespace.
func NewChangeSet(namespace string) *ChangeSet {
	return &ChangeSet{Namespace: NewID(namespace, 1).Namespace}
}

// Add appends a unit with the next sequence number and returns its ID.
// Explicit dependencies may point at any namespace; they are resolved
// when the graph is built.
func (s *ChangeSet) Add(kind Kind, name string, forward, reverse Operation, depends ...ID) ID {
	id := NewID(s.Namespace, len(s.Units)+1)
	s.Units = append(s.Units, &Unit{
		ID:      id,
		Kind:    kind,
		Name:    name,
		Depends: depends,
		Forward: forward,
		Reverse: reverse,
	})
	return id
}

// Validate checks the chain invariant: units carry this set's
// namespace and contiguous sequence numbers starting at 1, with both
// operations present and a known kind.
func (s *ChangeSet) Validate() error {
	if s.Namespace == "" {
		return fmt.Errorf("change set has empty namespace")
	}
	for i, u := range s.Units {
		want := NewID(s.Namespace, i+1)
		if u.ID != want {
			return fmt.Errorf("change set %q: unit at index %d has id %s, want %s", s.Namespace, i, u.ID, want)
		}
		if !u.Kind.Valid() {
			return fmt.Errorf("unit %s: unknown kind %q", u.ID, u.Kind)
		}
		if u.Forward == nil || u.Reverse == nil {
			return fmt.Errorf("unit %s: forward and reverse operations are both required", u.ID)
		}
	}
	return nil
}
