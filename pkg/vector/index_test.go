package vector

import (
	"context"
	"testing"

	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) kv.DB {
	t.Helper()
	db, err := kv.Open(kv.Options{InMemory: true, Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func vec(xs ...float32) []float32 { return xs }

// TestSearchFindsNearestNeighbor implements spec.md §8 end-to-end scenario 3
// (insert a cluster of vectors, query near one of them, expect it first).
func TestSearchFindsNearestNeighbor(t *testing.T) {
	db := openDB(t)
	idx := New(DefaultConfig(2, Euclidean))

	a, b, c := helixid.New(), helixid.New(), helixid.New()
	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		if err := idx.Insert(wt, "Doc", a, vec(0, 0)); err != nil {
			return err
		}
		if err := idx.Insert(wt, "Doc", b, vec(10, 10)); err != nil {
			return err
		}
		return idx.Insert(wt, "Doc", c, vec(0.1, 0.1))
	}))

	var results []Result
	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		results, err = idx.Search(txn, "Doc", vec(0, 0), 1, 0)
		return err
	}))

	require.Len(t, results, 1)
	assert.True(t, results[0].ID == a || results[0].ID == c)
}

// TestSoftDeleteRemovesFromSearchThenRebuildPatchesLinks implements spec.md
// §8 scenario 3's deletion half: after a soft delete, Search refuses the
// namespace with ErrNeedBuild until Rebuild clears the pending-update
// barrier, and the deleted vector is absent from the search that follows.
func TestSoftDeleteRemovesFromSearchThenRebuildPatchesLinks(t *testing.T) {
	db := openDB(t)
	idx := New(DefaultConfig(2, Euclidean))

	ids := make([]helixid.ID, 6)
	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		for i := range ids {
			ids[i] = helixid.New()
			if err := idx.Insert(wt, "Doc", ids[i], vec(float32(i), float32(i))); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		return idx.SoftDelete(wt, "Doc", ids[0])
	}))

	var needsRebuild bool
	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		needsRebuild, err = idx.NeedsRebuild(txn, "Doc")
		return err
	}))
	assert.True(t, needsRebuild)

	require.ErrorIs(t, db.View(context.Background(), func(txn kv.Txn) error {
		_, err := idx.Search(txn, "Doc", vec(0, 0), len(ids), 0)
		return err
	}), ErrNeedBuild)

	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		return idx.Rebuild(wt, "Doc")
	}))

	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		needsRebuild, err = idx.NeedsRebuild(txn, "Doc")
		return err
	}))
	assert.False(t, needsRebuild)

	var results []Result
	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		results, err = idx.Search(txn, "Doc", vec(0, 0), len(ids), 0)
		return err
	}))
	for _, r := range results {
		assert.NotEqual(t, ids[0], r.ID)
	}
}

func TestSearchEmptyIndexReturnsNil(t *testing.T) {
	db := openDB(t)
	idx := New(DefaultConfig(3, Cosine))
	var results []Result
	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		results, err = idx.Search(txn, "Doc", vec(1, 2, 3), 5, 0)
		return err
	}))
	assert.Empty(t, results)
}

func TestInsertDimensionMismatchErrors(t *testing.T) {
	db := openDB(t)
	idx := New(DefaultConfig(2, Euclidean))
	require.ErrorIs(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		return idx.Insert(wt, "Doc", helixid.New(), vec(1, 2, 3))
	}), ErrInvalidVecDimension)
}

func TestDoubleSoftDeleteErrors(t *testing.T) {
	db := openDB(t)
	idx := New(DefaultConfig(2, Euclidean))
	id := helixid.New()
	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		return idx.Insert(wt, "Doc", id, vec(1, 1))
	}))
	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		return idx.SoftDelete(wt, "Doc", id)
	}))
	require.ErrorIs(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		return idx.SoftDelete(wt, "Doc", id)
	}), ErrVectorAlreadyDeleted)
}
