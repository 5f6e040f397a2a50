package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(Options{InMemory: true, Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestAddNodeAndGetNode(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	var created *Node
	err := e.Update(ctx, func(tx *Tx) error {
		props := NewPropertyMap()
		props.Set("name", StringValue("A"))
		n, err := tx.AddNode("User", props)
		created = n
		return err
	})
	require.NoError(t, err)

	err = e.View(ctx, func(tx *Tx) error {
		got, err := tx.GetNode(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "User", got.Label)
		name, ok := got.Properties.Get("name")
		assert.True(t, ok)
		assert.Equal(t, "A", name.Str)
		return nil
	})
	require.NoError(t, err)
}

// TestSocialWalk implements spec.md §8 end-to-end scenario 1.
func TestSocialWalk(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	var a, b, c *Node
	err := e.Update(ctx, func(tx *Tx) error {
		var err error
		mk := func(name string) *Node {
			p := NewPropertyMap()
			p.Set("name", StringValue(name))
			n, e2 := tx.AddNode("User", p)
			if e2 != nil && err == nil {
				err = e2
			}
			return n
		}
		a = mk("A")
		b = mk("B")
		c = mk("C")
		if err != nil {
			return err
		}
		if _, err = tx.AddEdge("Follows", a.ID, b.ID, nil, false); err != nil {
			return err
		}
		if _, err = tx.AddEdge("Follows", b.ID, c.ID, nil, false); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)

	err = e.View(ctx, func(tx *Tx) error {
		hop1, err := tx.WalkOut(a.ID, "Follows")
		require.NoError(t, err)
		require.Len(t, hop1, 1)
		assert.Equal(t, b.ID, hop1[0].Endpoint)

		hop2, err := tx.WalkOut(hop1[0].Endpoint, "Follows")
		require.NoError(t, err)
		require.Len(t, hop2, 1)
		assert.Equal(t, c.ID, hop2[0].Endpoint)

		got, err := tx.GetNode(hop2[0].Endpoint)
		require.NoError(t, err)
		name, _ := got.Properties.Get("name")
		assert.Equal(t, "C", name.Str)
		return nil
	})
	require.NoError(t, err)
}

func TestDropNodeCascadesEdges(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	var u, v *Node
	err := e.Update(ctx, func(tx *Tx) error {
		var err error
		u, err = tx.AddNode("User", nil)
		if err != nil {
			return err
		}
		v, err = tx.AddNode("User", nil)
		if err != nil {
			return err
		}
		_, err = tx.AddEdge("Follows", u.ID, v.ID, nil, false)
		return err
	})
	require.NoError(t, err)

	err = e.Update(ctx, func(tx *Tx) error {
		return tx.DropNode(u.ID)
	})
	require.NoError(t, err)

	err = e.View(ctx, func(tx *Tx) error {
		_, err := tx.GetNode(u.ID)
		assert.Error(t, err)
		in, err := tx.WalkIn(v.ID, "Follows")
		require.NoError(t, err)
		assert.Empty(t, in)
		return nil
	})
	require.NoError(t, err)
}

func TestSecondaryIndexLookup(t *testing.T) {
	e := openTestEngine(t)
	e.EnsureIndex("User", "email")
	ctx := context.Background()

	var alice *Node
	err := e.Update(ctx, func(tx *Tx) error {
		p := NewPropertyMap()
		p.Set("email", StringValue("alice@example.com"))
		var err error
		alice, err = tx.AddNode("User", p)
		return err
	})
	require.NoError(t, err)

	err = e.View(ctx, func(tx *Tx) error {
		ids, err := tx.Lookup("User", "email", StringValue("alice@example.com"))
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.Equal(t, alice.ID, ids[0])
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateNodeMovesIndexEntry(t *testing.T) {
	e := openTestEngine(t)
	e.EnsureIndex("User", "email")
	ctx := context.Background()

	var alice *Node
	err := e.Update(ctx, func(tx *Tx) error {
		p := NewPropertyMap()
		p.Set("email", StringValue("old@example.com"))
		var err error
		alice, err = tx.AddNode("User", p)
		return err
	})
	require.NoError(t, err)

	err = e.Update(ctx, func(tx *Tx) error {
		alice.Properties.Set("email", StringValue("new@example.com"))
		return tx.UpdateNode(alice)
	})
	require.NoError(t, err)

	err = e.View(ctx, func(tx *Tx) error {
		oldIDs, err := tx.Lookup("User", "email", StringValue("old@example.com"))
		require.NoError(t, err)
		assert.Empty(t, oldIDs)

		newIDs, err := tx.Lookup("User", "email", StringValue("new@example.com"))
		require.NoError(t, err)
		require.Len(t, newIDs, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestNodeCodecRoundTrip(t *testing.T) {
	props := NewPropertyMap()
	props.Set("name", StringValue("Alice"))
	props.Set("age", I64Value(30))
	props.Set("tags", Value{Kind: KindArray, Array: []Value{StringValue("a"), StringValue("b")}})
	n := &Node{Label: "Person", Properties: props}

	encoded := encodeNode(n)
	decoded, err := decodeNode(n.ID, encoded)
	require.NoError(t, err)
	assert.Equal(t, n.Label, decoded.Label)

	reencoded := encodeNode(decoded)
	assert.Equal(t, encoded, reencoded)
}
