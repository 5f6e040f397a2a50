package traversal

import (
	"container/heap"

	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/storage"
	"github.com/helixdb/helix-go/pkg/vector"
)

// Out walks from every current Node element to the nodes reachable by an
// outgoing edge of the given label, yielding Node elements (spec.md §4.2
// "Out<Label>"). An empty label walks every outgoing edge regardless of its
// label.
func (t *Traversal) Out(tx *storage.Tx, label string) *Traversal {
	return t.walkNodes(tx, label, (*storage.Tx).WalkOut, true)
}

// In is Out's mirror over incoming edges (spec.md §4.2 "In<Label>").
func (t *Traversal) In(tx *storage.Tx, label string) *Traversal {
	return t.walkNodes(tx, label, (*storage.Tx).WalkIn, false)
}

func (t *Traversal) walkNodes(tx *storage.Tx, label string, walk func(*storage.Tx, helixid.ID, string) ([]storage.AdjacencyEntry, error), forward bool) *Traversal {
	return t.wrap(func(in Iter) Iter {
		var pending []Element
		pos := 0
		return funcIter(func() (Element, bool, error) {
			for {
				if pos < len(pending) {
					e := pending[pos]
					pos++
					return e, true, nil
				}
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				id, hasID := e.ID()
				if !hasID || e.Kind != KindNode {
					continue
				}
				entries, err := walk(tx, id, label)
				if err != nil {
					return Element{}, false, err
				}
				pending = pending[:0]
				pos = 0
				for _, entry := range entries {
					n, err := tx.GetNode(entry.Endpoint)
					if err != nil {
						continue
					}
					pending = append(pending, nodeElem(n))
				}
			}
		})
	})
}

// OutE walks from every current Node element to its outgoing edges of the
// given label, yielding Edge elements (spec.md §4.2 "OutE<Label>").
func (t *Traversal) OutE(tx *storage.Tx, label string) *Traversal {
	return t.walkEdges(tx, label, (*storage.Tx).WalkOut)
}

// InE is OutE's mirror over incoming edges (spec.md §4.2 "InE<Label>").
func (t *Traversal) InE(tx *storage.Tx, label string) *Traversal {
	return t.walkEdges(tx, label, (*storage.Tx).WalkIn)
}

func (t *Traversal) walkEdges(tx *storage.Tx, label string, walk func(*storage.Tx, helixid.ID, string) ([]storage.AdjacencyEntry, error)) *Traversal {
	return t.wrap(func(in Iter) Iter {
		var pending []Element
		pos := 0
		return funcIter(func() (Element, bool, error) {
			for {
				if pos < len(pending) {
					e := pending[pos]
					pos++
					return e, true, nil
				}
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				id, hasID := e.ID()
				if !hasID || e.Kind != KindNode {
					continue
				}
				entries, err := walk(tx, id, label)
				if err != nil {
					return Element{}, false, err
				}
				pending = pending[:0]
				pos = 0
				for _, entry := range entries {
					edge, err := tx.GetEdge(entry.EdgeID)
					if err != nil {
						continue
					}
					pending = append(pending, edgeElem(edge))
				}
			}
		})
	})
}

// FromN replaces every current Edge element with its source node (spec.md
// §4.2 "FromN" — hop from an edge back to the node it starts at).
func (t *Traversal) FromN(tx *storage.Tx) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				if e.Kind != KindEdge {
					continue
				}
				n, err := tx.GetNode(e.Edge.From)
				if err != nil {
					continue
				}
				return nodeElem(n), true, nil
			}
		})
	})
}

// ToN replaces every current Edge element with its destination node
// (spec.md §4.2 "ToN").
func (t *Traversal) ToN(tx *storage.Tx) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				if e.Kind != KindEdge {
					continue
				}
				n, err := tx.GetNode(e.Edge.To)
				if err != nil {
					continue
				}
				return nodeElem(n), true, nil
			}
		})
	})
}

// FromV replaces every current Edge element with the vector its "from"
// endpoint names (spec.md §4.2 "FromV"). storage.Edge.From carries a bare
// id with no namespace tag, so resolution tries every configured vector
// index's namespace in turn; edges rarely originate at a vector, but
// nothing in the edge record rules it out.
func (t *Traversal) FromV(tx *storage.Tx, vectors map[string]*vector.Index) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				if e.Kind != KindEdge {
					continue
				}
				ve, found := resolveVector(tx, vectors, e.Edge.From)
				if !found {
					continue
				}
				return Element{Kind: KindVector, Vector: ve}, true, nil
			}
		})
	})
}

// ToV replaces every current Edge element with the vector its "to" endpoint
// names (spec.md §4.2 "ToV"), the shape produced by AddE's is_to_vector
// flag (storage.EdgeToVector).
func (t *Traversal) ToV(tx *storage.Tx, vectors map[string]*vector.Index) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				if e.Kind != KindEdge || !e.Edge.ToVector() {
					continue
				}
				ve, found := resolveVector(tx, vectors, e.Edge.To)
				if !found {
					continue
				}
				return Element{Kind: KindVector, Vector: ve}, true, nil
			}
		})
	})
}

// resolveVector looks id up across every configured vector index's
// namespace, since a vector id carries no label tag of its own (spec.md
// §4.1 vectors are namespaced per label).
func resolveVector(tx *storage.Tx, vectors map[string]*vector.Index, id helixid.ID) (*VectorElement, bool) {
	for label, idx := range vectors {
		vec, err := idx.Get(tx.KV(), label, id)
		if err != nil {
			continue
		}
		return &VectorElement{ID: id, Label: label, Vector: vec}, true
	}
	return nil, false
}

// Mutual keeps only the current nodes that both send and receive a label
// edge with the same neighbor (spec.md §4.2 "Mutual<Label> — nodes that both
// point to and are pointed to by the current node via the given edge
// label").
func (t *Traversal) Mutual(tx *storage.Tx, label string) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				if e.Kind != KindNode {
					continue
				}
				out, err := tx.WalkOut(e.Node.ID, label)
				if err != nil {
					return Element{}, false, err
				}
				in2, err := tx.WalkIn(e.Node.ID, label)
				if err != nil {
					return Element{}, false, err
				}
				outSet := make(map[helixid.ID]bool, len(out))
				for _, o := range out {
					outSet[o.Endpoint] = true
				}
				mutual := false
				for _, i := range in2 {
					if outSet[i.Endpoint] {
						mutual = true
						break
					}
				}
				if mutual {
					return e, true, nil
				}
			}
		})
	})
}

// PathAlgorithm selects how ShortestPath weighs hops (spec.md §4.2
// "ShortestPath<Label>(to, algorithm?)").
type PathAlgorithm int

const (
	// BFS treats every edge as unit weight; it is the default algorithm.
	BFS PathAlgorithm = iota
	// Dijkstra weighs each edge by a named numeric property, rejecting any
	// negative weight it encounters.
	Dijkstra
)

// ShortestPath replaces every current Node element with the shortest Path
// to `to` along edges of the given label, skipping nodes with no path
// (spec.md §4.2 "ShortestPath<Label>(to)"). weightProperty is ignored under
// BFS and required under Dijkstra.
func (t *Traversal) ShortestPath(tx *storage.Tx, label string, to helixid.ID, algo PathAlgorithm, weightProperty string) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				if e.Kind != KindNode {
					continue
				}
				var path *Path
				var perr error
				if algo == Dijkstra {
					path, perr = dijkstraPath(tx, e.Node.ID, to, label, weightProperty)
				} else {
					path, perr = bfsPath(tx, e.Node.ID, to, label)
				}
				if perr != nil {
					return Element{}, false, perr
				}
				if path == nil {
					continue
				}
				return Element{Kind: KindPath, Path: path}, true, nil
			}
		})
	})
}

// bfsPath finds the shortest (by hop count) path from start to end along
// outgoing edges of label, grounded on the teacher's StorageExecutor.
// shortestPath BFS-queue shape (pkg/cypher/traversal.go).
func bfsPath(tx *storage.Tx, start, end helixid.ID, label string) (*Path, error) {
	if start == end {
		n, err := tx.GetNode(start)
		if err != nil {
			return nil, nil
		}
		return &Path{Nodes: []*storage.Node{n}}, nil
	}

	type queueItem struct {
		node *storage.Node
		path Path
	}
	startNode, err := tx.GetNode(start)
	if err != nil {
		return nil, nil
	}
	queue := []queueItem{{node: startNode, path: Path{Nodes: []*storage.Node{startNode}}}}
	visited := map[helixid.ID]bool{start: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entries, err := tx.WalkOut(cur.node.ID, label)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if visited[entry.Endpoint] {
				continue
			}
			edge, err := tx.GetEdge(entry.EdgeID)
			if err != nil {
				continue
			}
			nextNode, err := tx.GetNode(entry.Endpoint)
			if err != nil {
				continue
			}
			newPath := Path{
				Nodes: append(append([]*storage.Node{}, cur.path.Nodes...), nextNode),
				Edges: append(append([]*storage.Edge{}, cur.path.Edges...), edge),
			}
			if entry.Endpoint == end {
				return &newPath, nil
			}
			visited[entry.Endpoint] = true
			queue = append(queue, queueItem{node: nextNode, path: newPath})
		}
	}
	return nil, nil
}

// dijkstraWeightFrom resolves a numeric edge weight from a named property,
// rejecting negative weights (spec.md §4.2 "Dijkstra… rejects negative
// weights").
func dijkstraWeightFrom(edge *storage.Edge, property string) (float64, error) {
	v, ok := edge.Properties.Get(property)
	if !ok {
		return 0, errMissingWeight
	}
	w, ok := numeric(v)
	if !ok {
		return 0, errMissingWeight
	}
	if w < 0 {
		return 0, errNegativeWeight
	}
	return w, nil
}

type pqItem struct {
	id   helixid.ID
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)        { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// dijkstraPath finds the minimum-weight path from start to end along
// outgoing edges of label, weighing each edge by weightProperty.
func dijkstraPath(tx *storage.Tx, start, end helixid.ID, label, weightProperty string) (*Path, error) {
	dist := map[helixid.ID]float64{start: 0}
	prevEdge := map[helixid.ID]*storage.Edge{}
	prevNode := map[helixid.ID]helixid.ID{}
	visited := map[helixid.ID]bool{}

	pq := &priorityQueue{{id: start, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == end {
			break
		}

		entries, err := tx.WalkOut(cur.id, label)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if visited[entry.Endpoint] {
				continue
			}
			edge, err := tx.GetEdge(entry.EdgeID)
			if err != nil {
				continue
			}
			w, err := dijkstraWeightFrom(edge, weightProperty)
			if err != nil {
				return nil, err
			}
			nd := cur.dist + w
			if existing, ok := dist[entry.Endpoint]; !ok || nd < existing {
				dist[entry.Endpoint] = nd
				prevEdge[entry.Endpoint] = edge
				prevNode[entry.Endpoint] = cur.id
				heap.Push(pq, pqItem{id: entry.Endpoint, dist: nd})
			}
		}
	}

	if _, ok := dist[end]; !ok {
		return nil, nil
	}

	var nodeIDs []helixid.ID
	var edges []*storage.Edge
	for at := end; ; {
		nodeIDs = append([]helixid.ID{at}, nodeIDs...)
		if at == start {
			break
		}
		edges = append([]*storage.Edge{prevEdge[at]}, edges...)
		at = prevNode[at]
	}

	nodes := make([]*storage.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		n, err := tx.GetNode(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return &Path{Nodes: nodes, Edges: edges}, nil
}
