package traversal

import (
	"context"
	"testing"

	"github.com/helixdb/helix-go/pkg/bm25"
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

func withName(name string) *storage.PropertyMap {
	p := storage.NewPropertyMap()
	p.Set("name", storage.StringValue(name))
	return p
}

func addNode(t *testing.T, tx *storage.Tx, label string, p *storage.PropertyMap) helixid.ID {
	t.Helper()
	e, ok, err := AddN(tx, label, p).First()
	require.NoError(t, err)
	require.True(t, ok)
	id, ok := e.ID()
	require.True(t, ok)
	return id
}

// TestSocialWalkChain implements spec.md §8's social-graph walk scenario:
// three people connected by KNOWS edges, walked Out from the first.
func TestSocialWalkChain(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()

	var alice, bob, carol helixid.ID
	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		alice = addNode(t, tx, "Person", withName("alice"))
		bob = addNode(t, tx, "Person", withName("bob"))
		carol = addNode(t, tx, "Person", withName("carol"))

		if _, err := AddE(tx, "KNOWS", alice, bob, storage.NewPropertyMap(), false).Collect(); err != nil {
			return err
		}
		_, err := AddE(tx, "KNOWS", bob, carol, storage.NewPropertyMap(), false).Collect()
		return err
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		out, err := N(tx, "Person", alice).Out(tx, "KNOWS").Collect()
		require.NoError(t, err)
		require.Len(t, out, 1)
		name, ok := out[0].Property("name")
		require.True(t, ok)
		assert.Equal(t, "bob", name.Str)

		twoHops, err := N(tx, "Person", alice).Out(tx, "KNOWS").Out(tx, "KNOWS").Collect()
		require.NoError(t, err)
		require.Len(t, twoHops, 1)
		name2, _ := twoHops[0].Property("name")
		assert.Equal(t, "carol", name2.Str)

		back, err := N(tx, "Person", carol).In(tx, "KNOWS").Collect()
		require.NoError(t, err)
		require.Len(t, back, 1)
		nameBack, _ := back[0].Property("name")
		assert.Equal(t, "bob", nameBack.Str)
		return nil
	}))
}

// TestMutualFindsReciprocalEdge implements spec.md §8's Mutual<Label>
// scenario: two nodes that each point to the other via the same label.
func TestMutualFindsReciprocalEdge(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()

	var alice, bob, carol helixid.ID
	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		alice = addNode(t, tx, "Person", withName("alice"))
		bob = addNode(t, tx, "Person", withName("bob"))
		carol = addNode(t, tx, "Person", withName("carol"))

		if _, err := AddE(tx, "FOLLOWS", alice, bob, storage.NewPropertyMap(), false).Collect(); err != nil {
			return err
		}
		if _, err := AddE(tx, "FOLLOWS", bob, alice, storage.NewPropertyMap(), false).Collect(); err != nil {
			return err
		}
		_, err := AddE(tx, "FOLLOWS", alice, carol, storage.NewPropertyMap(), false).Collect()
		return err
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		mutual, err := N(tx, "Person", alice, bob, carol).Mutual(tx, "FOLLOWS").Collect()
		require.NoError(t, err)
		require.Len(t, mutual, 2)
		ids := map[helixid.ID]bool{}
		for _, m := range mutual {
			id, _ := m.ID()
			ids[id] = true
		}
		assert.True(t, ids[alice])
		assert.True(t, ids[bob])
		assert.False(t, ids[carol])
		return nil
	}))
}

// TestShortestPathBFSFindsHopMinimalRoute implements spec.md §8's
// ShortestPath scenario over a three-hop chain a→b→c→d; BFS must return the
// one path through all four nodes and three edges.
func TestShortestPathBFSFindsHopMinimalRoute(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()

	var a, b, c, d helixid.ID
	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		a = addNode(t, tx, "City", withName("a"))
		b = addNode(t, tx, "City", withName("b"))
		c = addNode(t, tx, "City", withName("c"))
		d = addNode(t, tx, "City", withName("d"))

		for _, pair := range [][2]helixid.ID{{a, b}, {b, c}, {c, d}} {
			if _, err := AddE(tx, "ROAD", pair[0], pair[1], storage.NewPropertyMap(), false).Collect(); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		results, err := N(tx, "City", a).ShortestPath(tx, "ROAD", d, BFS, "").Collect()
		require.NoError(t, err)
		require.Len(t, results, 1)
		path := results[0].Path
		require.Len(t, path.Nodes, 4)
		require.Len(t, path.Edges, 3)
		return nil
	}))
}

// TestShortestPathDijkstraPrefersLighterRoute implements spec.md §8's
// weighted-path scenario: a direct edge with high weight loses to a
// two-hop route with lower total weight.
func TestShortestPathDijkstraPrefersLighterRoute(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()

	var a, b, c helixid.ID
	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		a = addNode(t, tx, "City", withName("a"))
		b = addNode(t, tx, "City", withName("b"))
		c = addNode(t, tx, "City", withName("c"))

		directProps := storage.NewPropertyMap()
		directProps.Set("distance", storage.F64Value(100))
		if _, err := AddE(tx, "ROAD", a, c, directProps, false).Collect(); err != nil {
			return err
		}
		leg1 := storage.NewPropertyMap()
		leg1.Set("distance", storage.F64Value(10))
		if _, err := AddE(tx, "ROAD", a, b, leg1, false).Collect(); err != nil {
			return err
		}
		leg2 := storage.NewPropertyMap()
		leg2.Set("distance", storage.F64Value(10))
		_, err := AddE(tx, "ROAD", b, c, leg2, false).Collect()
		return err
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		results, err := N(tx, "City", a).ShortestPath(tx, "ROAD", c, Dijkstra, "distance").Collect()
		require.NoError(t, err)
		require.Len(t, results, 1)
		path := results[0].Path
		require.Len(t, path.Nodes, 3)
		return nil
	}))
}

// TestHybridSearchFusesBM25AndVectorScores implements spec.md §8's hybrid
// search scenario: a document scoring well on text but poorly on vector
// similarity still surfaces, weighted by alpha.
func TestHybridSearchFusesBM25AndVectorScores(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()
	vecIdx := vector.New(vector.DefaultConfig(2, vector.Euclidean))
	bmIdx := bm25.New()

	var docA, docB helixid.ID
	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		wt, err := tx.WriteKV()
		if err != nil {
			return err
		}
		docA = helixid.New()
		docB = helixid.New()
		if err := vecIdx.Insert(wt, "Doc", docA, []float32{0, 0}); err != nil {
			return err
		}
		if err := vecIdx.Insert(wt, "Doc", docB, []float32{10, 10}); err != nil {
			return err
		}
		if err := bmIdx.Insert(wt, docA, "golang concurrency patterns"); err != nil {
			return err
		}
		return bmIdx.Insert(wt, docB, "golang concurrency patterns advanced guide")
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		results, err := HybridSearch(tx, vecIdx, bmIdx, "Doc", "golang concurrency", []float32{0, 0}, 0.5, 5).Collect()
		require.NoError(t, err)
		require.NotEmpty(t, results)
		_, ok := results[0].Property("score")
		assert.True(t, ok)
		return nil
	}))
}

// TestGroupByBucketsByProperty implements spec.md §8's GroupBy scenario.
func TestGroupByBucketsByProperty(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		cityProps := func(city string) *storage.PropertyMap {
			p := storage.NewPropertyMap()
			p.Set("city", storage.StringValue(city))
			return p
		}
		addNode(t, tx, "Person", cityProps("nyc"))
		addNode(t, tx, "Person", cityProps("nyc"))
		addNode(t, tx, "Person", cityProps("sf"))
		return nil
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		groups, err := N(tx, "Person").GroupBy("city").Collect()
		require.NoError(t, err)
		require.Len(t, groups, 2)
		total := int64(0)
		for _, g := range groups {
			total += g.Group.Count
		}
		assert.Equal(t, int64(3), total)
		return nil
	}))
}

// TestProjectBuildsObjectWithSpreadAndExclusion implements spec.md §8's
// object-projection scenario.
func TestProjectBuildsObjectWithSpreadAndExclusion(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()

	var alice helixid.ID
	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		p := storage.NewPropertyMap()
		p.Set("name", storage.StringValue("alice"))
		p.Set("secret", storage.StringValue("hidden"))
		alice = addNode(t, tx, "Person", p)
		return nil
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		out, err := N(tx, "Person", alice).Project(SpreadField("secret"), PropertyField("label")).Collect()
		require.NoError(t, err)
		require.Len(t, out, 1)
		m := out[0].Value.Map
		assert.Equal(t, "alice", m["name"].Str)
		_, hasSecret := m["secret"]
		assert.False(t, hasSecret)
		assert.Equal(t, "Person", m["label"].Str)
		return nil
	}))
}

// TestDedupRemovesRepeatedNode implements spec.md §8's Dedup scenario.
func TestDedupRemovesRepeatedNode(t *testing.T) {
	e := openEngine(t)
	ctx := context.Background()

	var alice helixid.ID
	require.NoError(t, e.Update(ctx, func(tx *storage.Tx) error {
		alice = addNode(t, tx, "Person", withName("alice"))
		return nil
	}))

	require.NoError(t, e.View(ctx, func(tx *storage.Tx) error {
		out, err := N(tx, "Person", alice, alice, alice).Dedup().Collect()
		require.NoError(t, err)
		assert.Len(t, out, 1)
		return nil
	}))
}
