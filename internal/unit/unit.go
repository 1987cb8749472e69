package unit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes shape changes from content changes.
type Kind string

const (
	// KindStructural marks a unit that changes the shape of persisted
	// storage (tables, columns, indexes). Structural operations are NOT
	// assumed transactional: a failed forward call may leave partial
	// effects, which is why every unit carries an authored reverse.
	KindStructural Kind = "structural"

	// KindData marks a unit that moves or recomputes row content
	// without changing shape.
	KindData Kind = "data"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindStructural || k == KindData
}

// ID identifies a change unit by namespace and sequence number.
//
// Namespaces are NFC-normalized on construction so that IDs authored in
// manifest files and IDs authored in Go code compare equal regardless
// of the Unicode representation of the namespace string.
type ID struct {
	Namespace string
	Seq       int
}

// NewID returns the canonical ID for a namespace and sequence number.
func NewID(namespace string, seq int) ID {
	return ID{Namespace: norm.NFC.String(namespace), Seq: seq}
}

// ParseID parses the "namespace:seq" form produced by String.
func ParseID(s string) (ID, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return ID{}, fmt.Errorf("malformed unit id %q: want namespace:seq", s)
	}
	seq, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return ID{}, fmt.Errorf("malformed unit id %q: sequence is not an integer", s)
	}
	if seq < 1 {
		return ID{}, fmt.Errorf("malformed unit id %q: sequence must be positive", s)
	}
	return NewID(s[:i], seq), nil
}

// String renders the ID as "namespace:seq".
func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Namespace, id.Seq)
}

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool {
	return id.Namespace == "" && id.Seq == 0
}

// Less orders IDs by namespace, then sequence. This is the
// deterministic secondary key used to break ties between units that the
// dependency graph leaves unordered, so plans are reproducible across
// runs given identical inputs.
func (id ID) Less(other ID) bool {
	if id.Namespace != other.Namespace {
		return id.Namespace < other.Namespace
	}
	return id.Seq < other.Seq
}

// Structural executes shape-changing statements against external
// storage. Implementations are understood to be non-transactional: a
// failed Exec may have partially applied.
type Structural interface {
	Exec(ctx context.Context, stmt string, args ...any) error
}

// Row is a single row keyed by column name.
type Row map[string]any

// RowIterator walks source rows one at a time. Callers must Close.
type RowIterator interface {
	Next() bool
	Row() (Row, error)
	Err() error
	Close() error
}

// Rows grants row-level read and write access for data units. No
// transactional guarantee spans a whole unit unless the implementation
// provides one.
type Rows interface {
	Select(ctx context.Context, table string, columns ...string) (RowIterator, error)
	Insert(ctx context.Context, table string, row Row) error
	Delete(ctx context.Context, table string, where string, args ...any) error
}

// Env carries the storage collaborators a unit operation may use.
// Structural units reach for Structural; data units for Rows. The
// engine never inspects what an operation does with them.
type Env struct {
	Structural Structural
	Rows       Rows
}

// Operation is one direction of a unit: forward or reverse. Operations
// run to completion or failure; the executor never interrupts one
// mid-flight.
type Operation func(ctx context.Context, env Env) error

// Unit is the atomic node of the dependency graph.
//
// Depends lists explicit cross-namespace dependencies. The implicit
// dependency on the previous unit in the same namespace is added by the
// graph builder, not recorded here.
type Unit struct {
	ID      ID
	Kind    Kind
	Name    string
	Depends []ID
	Forward Operation
	Reverse Operation
}
