package traversal

import (
	"github.com/helixdb/helix-go/pkg/bm25"
	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/storage"
	"github.com/helixdb/helix-go/pkg/vector"
)

// N starts a node stream. With no ids, performs a full label scan
// (spec.md §4.2 "N<Label>"); with ids, fetches exactly those nodes, skipping
// any that are missing.
func N(tx *storage.Tx, label string, ids ...helixid.ID) *Traversal {
	if len(ids) == 0 {
		nodes, err := tx.ScanLabel(label)
		if err != nil {
			return fail(err)
		}
		items := make([]Element, len(nodes))
		for i, n := range nodes {
			items[i] = nodeElem(n)
		}
		return newTraversal(fromSlice(items))
	}
	var items []Element
	for _, id := range ids {
		n, err := tx.GetNode(id)
		if err != nil {
			continue
		}
		items = append(items, nodeElem(n))
	}
	return newTraversal(fromSlice(items))
}

// NByIndex starts a node stream from a secondary-index lookup (spec.md
// §4.2 "N<Label>({index: value})").
func NByIndex(tx *storage.Tx, label, property string, value storage.Value) *Traversal {
	ids, err := tx.Lookup(label, property, value)
	if err != nil {
		return fail(err)
	}
	var items []Element
	for _, id := range ids {
		n, err := tx.GetNode(id)
		if err != nil {
			continue
		}
		items = append(items, nodeElem(n))
	}
	return newTraversal(fromSlice(items))
}

// E starts an edge stream by id (spec.md §4.2 "E<Label>(ids…)").
func E(tx *storage.Tx, ids ...helixid.ID) *Traversal {
	var items []Element
	for _, id := range ids {
		e, err := tx.GetEdge(id)
		if err != nil {
			continue
		}
		items = append(items, edgeElem(e))
	}
	return newTraversal(fromSlice(items))
}

// V starts a vector stream: every live vector under label (spec.md §4.2
// "V<Label>").
func V(tx *storage.Tx, vecIdx *vector.Index, label string) *Traversal {
	ids, err := vecIdx.List(tx.KV(), label)
	if err != nil {
		return fail(err)
	}
	var items []Element
	for _, id := range ids {
		vec, err := vecIdx.Get(tx.KV(), label, id)
		if err != nil {
			continue
		}
		items = append(items, Element{Kind: KindVector, Vector: &VectorElement{ID: id, Label: label, Vector: vec}})
	}
	return newTraversal(fromSlice(items))
}

// SearchV runs an HNSW k-nearest search (spec.md §4.2 "SearchV<Label>(query_vec, k)",
// §4.3).
func SearchV(tx *storage.Tx, vecIdx *vector.Index, label string, query []float32, k int) *Traversal {
	results, err := vecIdx.Search(tx.KV(), label, query, k, 0)
	if err != nil {
		return fail(err)
	}
	items := make([]Element, len(results))
	for i, r := range results {
		items[i] = Element{Kind: KindVector, Vector: &VectorElement{ID: r.ID, Label: label, Score: r.Score}}
	}
	return newTraversal(fromSlice(items))
}

// SearchBM25 runs a BM25 top-k query (spec.md §4.2 "SearchBM25(term, k)",
// §4.4). Results surface as Value elements keyed by doc id and score, since
// BM25 has no notion of a schema'd node type of its own — callers typically
// follow up with N(docID) to rejoin the node.
func SearchBM25(tx *storage.Tx, bmIdx *bm25.Index, query string, k int) *Traversal {
	results, err := bmIdx.Search(tx.KV(), query, k)
	if err != nil {
		return fail(err)
	}
	items := make([]Element, len(results))
	for i, r := range results {
		items[i] = valueElem(storage.Value{Kind: storage.KindMap, Map: map[string]storage.Value{
			"doc_id": storage.StringValue(r.DocID.String()),
			"score":  storage.F64Value(r.Score),
		}})
	}
	return newTraversal(fromSlice(items))
}

// HybridSearch fuses a BM25 query and a vector query under the weighted
// score spec.md §4.3 "Hybrid score fusion" defines: score = α·b_d +
// (1-α)·1/(1+d_d). label scopes the vector half; the BM25 half searches the
// whole text index (BM25 has no per-label namespace, spec.md §4.4).
func HybridSearch(tx *storage.Tx, vecIdx *vector.Index, bmIdx *bm25.Index, label, text string, queryVec []float32, alpha float64, k int) *Traversal {
	bmResults, err := bmIdx.Search(tx.KV(), text, 0)
	if err != nil {
		return fail(err)
	}
	vecResults, err := vecIdx.Search(tx.KV(), label, queryVec, 0, 0)
	if err != nil {
		return fail(err)
	}

	type fused struct {
		id    helixid.ID
		score float64
	}
	byID := make(map[helixid.ID]*fused)
	for _, r := range bmResults {
		byID[r.DocID] = &fused{id: r.DocID, score: alpha * r.Score}
	}
	for _, r := range vecResults {
		sim := 1 / (1 + r.Score)
		if f, ok := byID[r.ID]; ok {
			f.score += (1 - alpha) * sim
		} else {
			byID[r.ID] = &fused{id: r.ID, score: (1 - alpha) * sim}
		}
	}

	items := make([]Element, 0, len(byID))
	for _, f := range byID {
		items = append(items, valueElem(storage.Value{Kind: storage.KindMap, Map: map[string]storage.Value{
			"id":    storage.StringValue(f.id.String()),
			"score": storage.F64Value(f.score),
		}}))
	}
	t := newTraversal(fromSlice(items))
	return t.OrderByField("score", true).Range(0, k)
}

// AddN inserts a node and yields it as the stream's single element
// (spec.md §4.2 "AddN<Label>(props?, secondary_indexes?)").
func AddN(tx *storage.Tx, label string, props *storage.PropertyMap, secondaryIndexes ...string) *Traversal {
	for _, prop := range secondaryIndexes {
		tx.EnsureIndex(label, prop)
	}
	n, err := tx.AddNode(label, props)
	if err != nil {
		return fail(err)
	}
	return newTraversal(fromSlice([]Element{nodeElem(n)}))
}

// AddE inserts an edge (spec.md §4.2 "AddE<Label>(props, from, to,
// is_to_vector)").
func AddE(tx *storage.Tx, label string, from, to helixid.ID, props *storage.PropertyMap, toVector bool) *Traversal {
	e, err := tx.AddEdge(label, from, to, props, toVector)
	if err != nil {
		return fail(err)
	}
	return newTraversal(fromSlice([]Element{edgeElem(e)}))
}

// AddV inserts a vector (spec.md §4.2 "AddV<Label>(vec, props)"). props are
// stored in the vector_properties table addressed by the global id so they
// can be rejoined without loading the HNSW item record.
func AddV(tx *storage.Tx, vecIdx *vector.Index, label string, vec []float32, props *storage.PropertyMap) *Traversal {
	wt, err := tx.WriteKV()
	if err != nil {
		return fail(err)
	}
	id := helixid.New()
	if err := vecIdx.Insert(wt, label, id, vec); err != nil {
		return fail(err)
	}
	if props != nil {
		if err := vector.SaveProperties(wt, id, props); err != nil {
			return fail(err)
		}
	}
	return newTraversal(fromSlice([]Element{{Kind: KindVector, Vector: &VectorElement{ID: id, Label: label, Vector: vec}}}))
}
