// Package helixid provides the 128-bit, time-ordered identifier used for
// every node, edge, and vector in HelixDB.
//
// IDs are never re-used. They sort in creation order so that range scans
// over the primary tables in pkg/storage naturally iterate oldest-first,
// and so that the high bytes of an ID can be used as a coarse time filter
// without a secondary index.
package helixid

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidLength is returned when decoding an ID from a byte slice of the
// wrong length.
var ErrInvalidLength = errors.New("helixid: id must be exactly 16 bytes")

// ID is a 128-bit time-ordered identifier (UUIDv6-like: a 60-bit timestamp
// in the high bits followed by random low bits, byte-ordered so that
// lexicographic comparison equals creation order).
type ID [16]byte

// Nil is the zero-value ID.
var Nil ID

// New generates a fresh, time-ordered ID.
func New() ID {
	u, err := uuid.NewV6()
	if err != nil {
		// NewV6 only fails if the system clock sequence can't be read;
		// fall back to a random v4 rather than panicking on a hot path.
		u = uuid.New()
	}
	var id ID
	copy(id[:], u[:])
	return id
}

// FromBytes decodes a 16-byte slice into an ID, copying the bytes.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != 16 {
		return id, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

// Bytes returns the 16 raw bytes of the ID, big-endian (sortable) order.
func (id ID) Bytes() []byte {
	out := make([]byte, 16)
	copy(out, id[:])
	return out
}

// String renders the ID as a standard UUID string.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// Less reports whether id sorts before other, matching physical key order
// in pkg/storage's primary tables.
func (id ID) Less(other ID) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}
	return false
}

// ParseString parses a standard UUID string form back into an ID.
func ParseString(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("helixid: parse %q: %w", s, err)
	}
	var id ID
	copy(id[:], u[:])
	return id, nil
}

// LabelHash hashes a label string to its 4-byte compact form used in
// adjacency and HNSW namespace keys (spec.md §3 "Labels").
//
// Collisions are resolved by label-string comparison at decode time
// (spec.md §9 "Label hashing"); this function only needs to be a fast,
// well-distributed non-cryptographic hash.
func LabelHash(label string) [4]byte {
	// FNV-1a, 32-bit: simple, dependency-free, good enough distribution
	// for a tiebreak-by-string-comparison scheme.
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(label); i++ {
		h ^= uint32(label[i])
		h *= prime32
	}
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], h)
	return out
}
