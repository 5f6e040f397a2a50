package vector

import (
	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/kv"
	"github.com/helixdb/helix-go/pkg/storage"
)

// SaveProperties persists a vector's companion property map, addressed
// directly by its global id (spec.md §4.1 "vector_properties" table: a
// V<Label> node may carry ordinary scalar fields alongside its vector,
// stored the same way pkg/storage stores node properties but keyed outside
// the HNSW item record so rebuilds never touch them).
func SaveProperties(wt kv.WriteTxn, global helixid.ID, props *storage.PropertyMap) error {
	return wt.Set(propsKey(global), storage.EncodeProperties(props))
}

// GetProperties loads a vector's property map, returning an empty map if
// none was ever saved.
func GetProperties(txn kv.Txn, global helixid.ID) (*storage.PropertyMap, error) {
	data, err := txn.Get(propsKey(global))
	if err != nil {
		return storage.NewPropertyMap(), nil
	}
	return storage.DecodeProperties(data)
}

// DeleteProperties removes a vector's property map, called alongside
// Index.Rebuild's hard-delete of a tombstoned item.
func DeleteProperties(wt kv.WriteTxn, global helixid.ID) error {
	return wt.Delete(propsKey(global))
}
