package storage

import (
	"encoding/binary"

	"github.com/helixdb/helix-go/pkg/helixid"
)

// Table prefixes, one byte each (spec.md §4.1 table). Multi-value tables
// (out_edges, in_edges, secondary:<name>) are emulated over the kv
// substrate per pkg/kv's doc comment: the physical key is
// `prefix ‖ logical-key ‖ member`, stored with an empty value, so that a
// prefix scan over `prefix ‖ logical-key` yields every member in order.
const (
	tableNodes      = byte(0x01)
	tableEdges      = byte(0x02)
	tableOutEdges   = byte(0x03)
	tableInEdges    = byte(0x04)
	tableSecondary  = byte(0x05)
)

// nodeKey returns the physical key for the nodes table.
func nodeKey(id helixid.ID) []byte {
	k := make([]byte, 1+16)
	k[0] = tableNodes
	copy(k[1:], id[:])
	return k
}

// edgeKey returns the physical key for the edges table.
func edgeKey(id helixid.ID) []byte {
	k := make([]byte, 1+16)
	k[0] = tableEdges
	copy(k[1:], id[:])
	return k
}

// outEdgesPrefix returns the `(from, label_hash)` prefix for the out_edges
// table (spec.md §4.1 "Adjacency walk").
func outEdgesPrefix(from helixid.ID, labelHash [4]byte) []byte {
	k := make([]byte, 1+16+4)
	k[0] = tableOutEdges
	copy(k[1:17], from[:])
	copy(k[17:21], labelHash[:])
	return k
}

// outEdgesNodePrefix returns the `(from)` prefix spanning every label for a
// node, used when walking all outgoing edges regardless of label.
func outEdgesNodePrefix(from helixid.ID) []byte {
	k := make([]byte, 1+16)
	k[0] = tableOutEdges
	copy(k[1:], from[:])
	return k
}

// outEdgeMemberKey appends the fixed-width `edge_id ‖ to` member to an
// out_edges prefix.
func outEdgeMemberKey(prefix []byte, edgeID, to helixid.ID) []byte {
	k := make([]byte, 0, len(prefix)+32)
	k = append(k, prefix...)
	k = append(k, edgeID[:]...)
	k = append(k, to[:]...)
	return k
}

func inEdgesPrefix(to helixid.ID, labelHash [4]byte) []byte {
	k := make([]byte, 1+16+4)
	k[0] = tableInEdges
	copy(k[1:17], to[:])
	copy(k[17:21], labelHash[:])
	return k
}

func inEdgesNodePrefix(to helixid.ID) []byte {
	k := make([]byte, 1+16)
	k[0] = tableInEdges
	copy(k[1:], to[:])
	return k
}

func inEdgeMemberKey(prefix []byte, edgeID, from helixid.ID) []byte {
	k := make([]byte, 0, len(prefix)+32)
	k = append(k, prefix...)
	k = append(k, edgeID[:]...)
	k = append(k, from[:]...)
	return k
}

// decodeAdjacencyMember splits the fixed 32-byte adjacency member into its
// edge id and endpoint id (spec.md §4.1 "32B fixed").
func decodeAdjacencyMember(member []byte) (edgeID, endpoint helixid.ID) {
	copy(edgeID[:], member[0:16])
	copy(endpoint[:], member[16:32])
	return
}

// secondaryIndexPrefix returns the table-scoped prefix for a secondary
// index, before the value-bytes component.
func secondaryIndexPrefix(indexName string) []byte {
	name := []byte(indexName)
	k := make([]byte, 0, 1+2+len(name))
	k = append(k, tableSecondary)
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(name)))
	k = append(k, l[:]...)
	k = append(k, name...)
	return k
}

// secondaryValuePrefix returns the prefix for one specific property value
// within a secondary index, for a prefix scan over every matching id.
func secondaryValuePrefix(indexName string, valueBytes []byte) []byte {
	base := secondaryIndexPrefix(indexName)
	k := make([]byte, 0, len(base)+2+len(valueBytes))
	k = append(k, base...)
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(valueBytes)))
	k = append(k, l[:]...)
	k = append(k, valueBytes...)
	return k
}

func secondaryMemberKey(indexName string, valueBytes []byte, id helixid.ID) []byte {
	k := secondaryValuePrefix(indexName, valueBytes)
	k = append(k, id[:]...)
	return k
}
