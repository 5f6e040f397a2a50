package vector

import (
	"encoding/binary"

	"github.com/helixdb/helix-go/pkg/helixid"
)

// Table prefixes for the vectors table's namespaced key layout (spec.md
// §4.3 "Key layout"). Each label gets its own 2-byte namespace so that
// multiple V<Label> schemas can share one kv.DB without their HNSW graphs
// interleaving.
const (
	prefixItem    = byte(0xC1)
	prefixLinks   = byte(0xC2)
	prefixMeta    = byte(0xC3)
	prefixUpdated = byte(0xC4)
	prefixVersion = byte(0xC5)
	prefixIDMapL2G = byte(0xC6)
	prefixIDMapG2L = byte(0xC7)
	prefixProps    = byte(0xC8) // vector_properties table (spec.md §4.1)
)

// namespace derives a label's 2-byte namespace from the first two bytes of
// its helixid.LabelHash. Two labels whose hashes share those bytes share
// one namespace: the label string stored in metadata is not compared when
// the namespace is opened.
func namespace(label string) [2]byte {
	h := helixid.LabelHash(label)
	return [2]byte{h[0], h[1]}
}

func itemKey(ns [2]byte, itemID uint32) []byte {
	k := make([]byte, 1+2+4)
	k[0] = prefixItem
	copy(k[1:3], ns[:])
	binary.BigEndian.PutUint32(k[3:7], itemID)
	return k
}

func itemPrefix(ns [2]byte) []byte {
	k := make([]byte, 1+2)
	k[0] = prefixItem
	copy(k[1:3], ns[:])
	return k
}

func linksKey(ns [2]byte, layer byte, itemID uint32) []byte {
	k := make([]byte, 1+2+1+4)
	k[0] = prefixLinks
	copy(k[1:3], ns[:])
	k[3] = layer
	binary.BigEndian.PutUint32(k[4:8], itemID)
	return k
}

func metaKeyFor(ns [2]byte) []byte {
	return append([]byte{prefixMeta}, ns[:]...)
}

func updatedKey(ns [2]byte, itemID uint32) []byte {
	k := make([]byte, 1+2+4)
	k[0] = prefixUpdated
	copy(k[1:3], ns[:])
	binary.BigEndian.PutUint32(k[3:7], itemID)
	return k
}

func updatedPrefix(ns [2]byte) []byte {
	return append([]byte{prefixUpdated}, ns[:]...)
}

func versionKeyFor(ns [2]byte) []byte {
	return append([]byte{prefixVersion}, ns[:]...)
}

func idMapL2GKey(ns [2]byte, itemID uint32) []byte {
	k := make([]byte, 1+2+4)
	k[0] = prefixIDMapL2G
	copy(k[1:3], ns[:])
	binary.BigEndian.PutUint32(k[3:7], itemID)
	return k
}

func idMapG2LKey(ns [2]byte, global helixid.ID) []byte {
	k := make([]byte, 1+2+16)
	k[0] = prefixIDMapG2L
	copy(k[1:3], ns[:])
	copy(k[3:19], global[:])
	return k
}

func propsKey(global helixid.ID) []byte {
	k := make([]byte, 1+16)
	k[0] = prefixProps
	copy(k[1:], global[:])
	return k
}
