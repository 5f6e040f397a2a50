package storage

import (
	"github.com/helixdb/helix-go/pkg/helixid"
)

// ReservedIsDeleted is the reserved property key a soft-deleted vector is
// flagged under (spec.md §3 "A 'deleted' bit lives in properties under the
// reserved key is_deleted").
const ReservedIsDeleted = "is_deleted"

// Node is a labeled property-graph vertex (spec.md §3 "Node").
type Node struct {
	ID         helixid.ID
	Label      string
	Properties *PropertyMap
}

// EdgeFlags records out-of-band edge metadata packed alongside the edge
// record (spec.md §4.1 "edges" table, flags byte).
type EdgeFlags byte

const (
	// EdgeToVector marks an edge whose "to" endpoint is a vector id
	// rather than a node id (spec.md §3 "An edge may also terminate at a
	// vector").
	EdgeToVector EdgeFlags = 1 << iota
)

// Edge is a directed labeled property-graph edge (spec.md §3 "Edge").
type Edge struct {
	ID         helixid.ID
	Label      string
	From       helixid.ID
	To         helixid.ID
	Properties *PropertyMap
	Flags      EdgeFlags
}

// ToVector reports whether this edge's "to" endpoint names a vector.
func (e *Edge) ToVector() bool {
	return e.Flags&EdgeToVector != 0
}

// SecondaryIndex names one configured secondary index on a node label and
// property name (spec.md §4.1 "secondary:<name>"). The engine maintains one
// physical table per configured index.
type SecondaryIndex struct {
	Label    string
	Property string
}

// TableName is the physical table name this index is stored under.
func (s SecondaryIndex) TableName() string {
	return "secondary:" + s.Label + ":" + s.Property
}
