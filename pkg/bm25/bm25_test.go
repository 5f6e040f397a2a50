package bm25

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

// TestBM25Ranking implements spec.md §8 end-to-end scenario 4.
func TestBM25Ranking(t *testing.T) {
	db := openDB(t)
	idx := New()
	d1, d2, d3 := helixid.New(), helixid.New(), helixid.New()

	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		if err := idx.Insert(wt, d1, "the quick brown fox"); err != nil {
			return err
		}
		if err := idx.Insert(wt, d2, "the lazy dog"); err != nil {
			return err
		}
		return idx.Insert(wt, d3, "quick brown dog")
	}))

	var results []Result
	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		results, err = idx.Search(txn, "quick brown", 3)
		return err
	}))

	require.Len(t, results, 3)
	// d2 ("the lazy dog") contains neither query term and must rank last.
	assert.Equal(t, d2, results[2].DocID)
	assert.ElementsMatch(t, []helixid.ID{d1, d3}, []helixid.ID{results[0].DocID, results[1].DocID})
}

func TestInsertDeleteRoundTripsMetadata(t *testing.T) {
	db := openDB(t)
	idx := New()
	doc := helixid.New()

	var before, after Meta
	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		var err error
		before, err = idx.Meta(wt)
		return err
	}))

	require.NoError(t, db.Update(context.Background(), func(wt kv.WriteTxn) error {
		if err := idx.Insert(wt, doc, "some words here"); err != nil {
			return err
		}
		return idx.Delete(wt, doc)
	}))

	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		after, err = idx.Meta(txn)
		return err
	}))

	assert.Equal(t, before.TotalDocs, after.TotalDocs)
	assert.Equal(t, before.AvgDL, after.AvgDL)
}

func TestEmptyIndexSearchReturnsEmpty(t *testing.T) {
	db := openDB(t)
	idx := New()
	var results []Result
	require.NoError(t, db.View(context.Background(), func(txn kv.Txn) error {
		var err error
		results, err = idx.Search(txn, "anything", 10)
		return err
	}))
	assert.Empty(t, results)
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	toks := tokenize("a an the quick fox42 don't")
	assert.Contains(t, toks, "the")
	assert.Contains(t, toks, "quick")
	assert.Contains(t, toks, "fox42")
	assert.NotContains(t, toks, "a")
	assert.NotContains(t, toks, "an")
	assert.Contains(t, toks, "don")
}
