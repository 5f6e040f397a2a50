package emitter

import (
	"context"
	"testing"

	"github.com/helixdb/helix-go/pkg/bm25"
	"github.com/helixdb/helix-go/pkg/helixql/analyzer"
	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/helixql/ir"
	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/storage"
	"github.com/helixdb/helix-go/pkg/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEngine(t *testing.T) *storage.Engine {
	t.Helper()
	e, err := storage.Open(storage.Options{InMemory: true, Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func compile(t *testing.T, src string) map[string]*Handler {
	t.Helper()
	prog, err := ast.Parse("t.hx", src)
	require.NoError(t, err)
	an := analyzer.New(prog)
	diags := an.Check(prog)
	require.Empty(t, diags)
	gs := ir.Lower(prog, an.SymbolTable())
	return Emit(gs)
}

// TestAddNAndReturnRoundTrips implements an AddN<Label>{...} handler that
// inserts a node and returns it, the simplest query ABI round trip (spec.md
// §6 "Query format").
func TestAddNAndReturnRoundTrips(t *testing.T) {
	handlers := compile(t, `N::User { name: String }
	QUERY createUser(name: String) => {
		u <- AddN::User {name: name}
		RETURN u
	}`)

	h, ok := handlers["createUser"]
	require.True(t, ok)
	assert.True(t, h.Mutating)

	st := openEngine(t)
	ctx := context.Background()
	var result storage.Value
	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		v, err := h.Run(tx, &Indexes{}, map[string]storage.Value{"name": storage.StringValue("alice")})
		result = v
		return err
	}))

	require.Equal(t, storage.KindMap, result.Kind)
	assert.Equal(t, "User", result.Map["label"].Str)
	assert.Equal(t, "alice", result.Map["name"].Str)
}

// TestForLoopDropsEachMatchedNode implements a FOR v IN N::Label { DROP v }
// mutating handler.
func TestForLoopDropsEachMatchedNode(t *testing.T) {
	handlers := compile(t, `N::User { name: String }
	QUERY createUser(name: String) => {
		u <- AddN::User {name: name}
		RETURN u
	}
	QUERY deleteUsers() => {
		FOR u IN N::User {
			DROP u
		}
		RETURN NONE
	}
	QUERY countUsers() => {
		n <- N::User::Count()
		RETURN n
	}`)

	st := openEngine(t)
	ctx := context.Background()
	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		_, err := handlers["createUser"].Run(tx, &Indexes{}, map[string]storage.Value{"name": storage.StringValue("bob")})
		return err
	}))
	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		_, err := handlers["createUser"].Run(tx, &Indexes{}, map[string]storage.Value{"name": storage.StringValue("carol")})
		return err
	}))

	require.NoError(t, st.View(ctx, func(tx *storage.Tx) error {
		v, err := handlers["countUsers"].Run(tx, &Indexes{}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v.Int)
		return nil
	}))

	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		_, err := handlers["deleteUsers"].Run(tx, &Indexes{}, nil)
		return err
	}))

	require.NoError(t, st.View(ctx, func(tx *storage.Tx) error {
		v, err := handlers["countUsers"].Run(tx, &Indexes{}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), v.Int)
		return nil
	}))
}

// TestChainOutStepWalksEdge implements a single-hop Out traversal handler.
func TestChainOutStepWalksEdge(t *testing.T) {
	handlers := compile(t, `N::Person { name: String }
	E::Knows {
		From: Person,
		To: Person,
		Properties: {},
	}
	QUERY makePerson(name: String) => {
		p <- AddN::Person {name: name}
		RETURN p
	}
	QUERY link(from: String, to: String) => {
		a <- AddE::Knows(from, to) {}
		RETURN a
	}
	QUERY friendsOf(id: String) => {
		f <- N::Person(id)::Out("Knows")
		RETURN f
	}`)

	st := openEngine(t)
	ctx := context.Background()

	var aliceID, bobID string
	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		v, err := handlers["makePerson"].Run(tx, &Indexes{}, map[string]storage.Value{"name": storage.StringValue("alice")})
		require.NoError(t, err)
		aliceID = v.Map["id"].Str

		v, err = handlers["makePerson"].Run(tx, &Indexes{}, map[string]storage.Value{"name": storage.StringValue("bob")})
		require.NoError(t, err)
		bobID = v.Map["id"].Str

		_, err = handlers["link"].Run(tx, &Indexes{}, map[string]storage.Value{
			"from": storage.StringValue(aliceID),
			"to":   storage.StringValue(bobID),
		})
		return err
	}))

	require.NoError(t, st.View(ctx, func(tx *storage.Tx) error {
		v, err := handlers["friendsOf"].Run(tx, &Indexes{}, map[string]storage.Value{"id": storage.StringValue(aliceID)})
		require.NoError(t, err)
		require.Equal(t, storage.KindArray, v.Kind)
		require.Len(t, v.Array, 1)
		assert.Equal(t, "bob", v.Array[0].Map["name"].Str)
		return nil
	}))
}

// TestWhereStepFiltersByComparison compiles Where(age > 17) into a real
// traversal.Where filter: a query engine silently returning the unfiltered
// stream would make this test see both ages instead of one.
func TestWhereStepFiltersByComparison(t *testing.T) {
	handlers := compile(t, `N::User {
		name: String,
		age: I64,
	}
	QUERY makeUser(name: String, age: I64) => {
		u <- AddN::User {name: name, age: age}
		RETURN u
	}
	QUERY adults() => {
		a <- N::User::Where(age > 17)
		RETURN a
	}`)

	st := openEngine(t)
	ctx := context.Background()
	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		_, err := handlers["makeUser"].Run(tx, &Indexes{}, map[string]storage.Value{
			"name": storage.StringValue("alice"), "age": storage.I64Value(30),
		})
		if err != nil {
			return err
		}
		_, err = handlers["makeUser"].Run(tx, &Indexes{}, map[string]storage.Value{
			"name": storage.StringValue("bob"), "age": storage.I64Value(10),
		})
		return err
	}))

	require.NoError(t, st.View(ctx, func(tx *storage.Tx) error {
		v, err := handlers["adults"].Run(tx, &Indexes{}, nil)
		require.NoError(t, err)
		require.Equal(t, storage.KindArray, v.Kind)
		require.Len(t, v.Array, 1)
		assert.Equal(t, "alice", v.Array[0].Map["name"].Str)
		return nil
	}))
}

// TestToVStepResolvesVectorEndpoint exercises AddE's is_to_vector flag and
// the ToV step end to end: an edge from a node to a vector, walked back to
// the vector it names.
func TestToVStepResolvesVectorEndpoint(t *testing.T) {
	handlers := compile(t, `N::Person { name: String }
	V::Doc { embedding: F64 }
	E::Cites {
		From: Person,
		To: Doc,
		Properties: {},
	}
	QUERY makePerson(name: String) => {
		p <- AddN::Person {name: name}
		RETURN p
	}
	QUERY makeDoc(vec: [F64]) => {
		d <- AddV::Doc(vec) {}
		RETURN d
	}
	QUERY link(from: String, to: String) => {
		e <- AddE::Cites(from, to, TRUE) {}
		RETURN e
	}
	QUERY citedDocs(id: String) => {
		d <- N::Person(id)::OutE("Cites")::ToV()
		RETURN d
	}`)

	idx := &Indexes{Vectors: map[string]*vector.Index{
		"Doc": vector.New(vector.DefaultConfig(2, vector.Euclidean)),
	}}

	st := openEngine(t)
	ctx := context.Background()
	var personID, docID string
	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		v, err := handlers["makePerson"].Run(tx, idx, map[string]storage.Value{"name": storage.StringValue("alice")})
		require.NoError(t, err)
		personID = v.Map["id"].Str

		v, err = handlers["makeDoc"].Run(tx, idx, map[string]storage.Value{
			"vec": {Kind: storage.KindArray, Array: []storage.Value{storage.F64Value(0.1), storage.F64Value(0.2)}},
		})
		require.NoError(t, err)
		docID = v.Map["id"].Str

		_, err = handlers["link"].Run(tx, idx, map[string]storage.Value{
			"from": storage.StringValue(personID), "to": storage.StringValue(docID),
		})
		return err
	}))

	require.NoError(t, st.View(ctx, func(tx *storage.Tx) error {
		v, err := handlers["citedDocs"].Run(tx, idx, map[string]storage.Value{"id": storage.StringValue(personID)})
		require.NoError(t, err)
		require.Equal(t, storage.KindArray, v.Kind)
		require.Len(t, v.Array, 1)
		assert.Equal(t, docID, v.Array[0].Map["id"].Str)
		return nil
	}))
}

// TestHybridSearchSourceFusesVectorAndBM25 drives HybridSearch::Doc(...) from
// HelixQL, confirming the source keyword reaches traversal.HybridSearch
// instead of failing to parse or analyze (spec.md §4.2 "HybridSearch").
func TestHybridSearchSourceFusesVectorAndBM25(t *testing.T) {
	handlers := compile(t, `V::Doc { embedding: F64 }
	QUERY makeDoc(vec: [F64]) => {
		d <- AddV::Doc(vec) {}
		RETURN d
	}
	QUERY search(text: String, vec: [F64], alpha: F64, k: I64) => {
		r <- HybridSearch::Doc(text, vec, alpha, k)
		RETURN r
	}`)

	vecIdx := vector.New(vector.DefaultConfig(2, vector.Euclidean))
	bmIdx := bm25.New()
	idx := &Indexes{
		Vectors: map[string]*vector.Index{"Doc": vecIdx},
		BM25:    bmIdx,
	}

	st := openEngine(t)
	ctx := context.Background()
	var docID string
	require.NoError(t, st.Update(ctx, func(tx *storage.Tx) error {
		v, err := handlers["makeDoc"].Run(tx, idx, map[string]storage.Value{
			"vec": {Kind: storage.KindArray, Array: []storage.Value{storage.F64Value(0.1), storage.F64Value(0.2)}},
		})
		require.NoError(t, err)
		docID = v.Map["id"].Str

		id, err := helixid.ParseString(docID)
		require.NoError(t, err)
		wtx, err := tx.WriteKV()
		require.NoError(t, err)
		return bmIdx.Insert(wtx, id, "a document about graph databases")
	}))

	require.NoError(t, st.View(ctx, func(tx *storage.Tx) error {
		v, err := handlers["search"].Run(tx, idx, map[string]storage.Value{
			"text":  storage.StringValue("graph databases"),
			"vec":   {Kind: storage.KindArray, Array: []storage.Value{storage.F64Value(0.1), storage.F64Value(0.2)}},
			"alpha": storage.F64Value(0.5),
			"k":     storage.I64Value(5),
		})
		require.NoError(t, err)
		require.Equal(t, storage.KindArray, v.Kind)
		require.Len(t, v.Array, 1)
		assert.Equal(t, docID, v.Array[0].Map["id"].Str)
		return nil
	}))
}
