// Package traversal implements HelixDB's lazy, typed iterator core (spec.md
// §4.2): a pipeline of steps over a stream of Elements, composed
// left-to-right, generating values on demand. It is grounded on the
// teacher's pkg/cypher executor/clauses/traversal.go (same "apply steps in
// sequence against the storage engine, buffer only where the semantics
// require it" shape), generalized from Cypher clauses to HelixQL's
// traversal-chain steps and driven by pkg/storage, pkg/vector and pkg/bm25
// instead of a string-matched Cypher AST.
package traversal

import (
	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/storage"
)

// Kind tags the dynamic type carried by an Element (spec.md §4.2 "The
// element type at each stage is one of...").
type Kind int

const (
	KindNode Kind = iota
	KindEdge
	KindVector
	KindValue
	KindPath
	KindAggregate
	KindCount
	KindEmpty
)

// VectorElement is one item from a V<Label>/SearchV stream: the stored
// vector plus whatever score the producing step attached (0 for a plain
// scan, a distance or fused score for a search step).
type VectorElement struct {
	ID     helixid.ID
	Label  string
	Vector []float32
	Score  float64
}

// Path is an alternating node/edge walk, one edge shorter than its node
// list (spec.md §4.2 "Path (ordered list of alternating nodes and
// edges)").
type Path struct {
	Nodes []*storage.Node
	Edges []*storage.Edge
}

// Group is one bucket from GroupBy/AggregateBy: the tuple of grouping
// property values, the member elements (nil in count-only mode), and the
// count.
type Group struct {
	Key     []storage.Value
	Members []Element
	Count   int64
}

// Element is one value flowing through a traversal pipeline. Exactly the
// field matching Kind is meaningful.
type Element struct {
	Kind     Kind
	Node     *storage.Node
	Edge     *storage.Edge
	Vector   *VectorElement
	Value    storage.Value
	Path     *Path
	Object   map[string]Element // projection result
	Group    *Group
	Count    int64
}

func nodeElem(n *storage.Node) Element  { return Element{Kind: KindNode, Node: n} }
func edgeElem(e *storage.Edge) Element  { return Element{Kind: KindEdge, Edge: e} }
func valueElem(v storage.Value) Element { return Element{Kind: KindValue, Value: v} }

// ID returns the identifying 128-bit id of a Node or Edge element, used by
// Dedup (spec.md §4.2 "Dedup — by id").
func (e Element) ID() (helixid.ID, bool) {
	switch e.Kind {
	case KindNode:
		return e.Node.ID, true
	case KindEdge:
		return e.Edge.ID, true
	case KindVector:
		return e.Vector.ID, true
	default:
		return helixid.ID{}, false
	}
}

// Property looks up a named field on the current element, resolving the
// special names id/label/from_node/to_node/score/data the analyzer
// reserves (spec.md §4.5 "a special name id|label|from_node|to_node|score|
// data").
func (e Element) Property(name string) (storage.Value, bool) {
	switch name {
	case "id":
		id, ok := e.ID()
		if !ok {
			return storage.Value{}, false
		}
		return storage.StringValue(id.String()), true
	case "label":
		switch e.Kind {
		case KindNode:
			return storage.StringValue(e.Node.Label), true
		case KindEdge:
			return storage.StringValue(e.Edge.Label), true
		case KindVector:
			return storage.StringValue(e.Vector.Label), true
		}
		return storage.Value{}, false
	case "from_node":
		if e.Kind == KindEdge {
			return storage.StringValue(e.Edge.From.String()), true
		}
		return storage.Value{}, false
	case "to_node":
		if e.Kind == KindEdge {
			return storage.StringValue(e.Edge.To.String()), true
		}
		return storage.Value{}, false
	case "score":
		if e.Kind == KindVector {
			return storage.F64Value(e.Vector.Score), true
		}
		return storage.Value{}, false
	case "data":
		if e.Kind == KindValue {
			return e.Value, true
		}
		return storage.Value{}, false
	}
	switch e.Kind {
	case KindNode:
		return e.Node.Properties.Get(name)
	case KindEdge:
		return e.Edge.Properties.Get(name)
	case KindValue:
		if e.Value.Kind == storage.KindMap {
			v, ok := e.Value.Map[name]
			return v, ok
		}
	}
	return storage.Value{}, false
}
