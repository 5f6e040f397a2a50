// Package storage implements HelixDB's on-disk physical layout: the keying
// scheme and binary record formats for nodes, edges, and the adjacency and
// secondary indexes that back O(degree) graph traversal (spec.md §4.1).
//
// Vectors and the BM25 posting tables share this substrate but are owned by
// pkg/vector and pkg/bm25 respectively, which open their own logical tables
// against the same kv.DB.
package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// ValueKind tags a Value's underlying representation (spec.md §3
// "Properties ... tagged union").
type ValueKind byte

const (
	KindNull ValueKind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindF32
	KindF64
	KindString
	KindBytes
	KindArray
	KindMap
)

// Value is HelixDB's tagged-union property value. Only the field matching
// Kind is meaningful.
type Value struct {
	Kind ValueKind

	Bool   bool
	Int    int64   // I8..I64
	Int128 [16]byte // I128, two's-complement big-endian
	Uint   uint64  // U8..U64
	Uint128 [16]byte
	F32    float32
	F64    float64
	Str    string
	Bytes  []byte
	Array  []Value
	Map    map[string]Value
}

// NullValue is the singleton null Value.
var NullValue = Value{Kind: KindNull}

func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func I64Value(v int64) Value     { return Value{Kind: KindI64, Int: v} }
func U64Value(v uint64) Value    { return Value{Kind: KindU64, Uint: v} }
func F64Value(v float64) Value   { return Value{Kind: KindF64, F64: v} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func BytesValue(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }

// Equal reports structural equality between two Values; used by filter
// predicates and secondary-index maintenance to decide whether a property
// changed.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindI8, KindI16, KindI32, KindI64:
		return v.Int == other.Int
	case KindI128:
		return v.Int128 == other.Int128
	case KindU8, KindU16, KindU32, KindU64:
		return v.Uint == other.Uint
	case KindU128:
		return v.Uint128 == other.Uint128
	case KindF32:
		return v.F32 == other.F32
	case KindF64:
		return v.F64 == other.F64
	case KindString:
		return v.Str == other.Str
	case KindBytes:
		return string(v.Bytes) == string(other.Bytes)
	case KindArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, a := range v.Map {
			b, ok := other.Map[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// SortableBytes renders the value into a byte string suitable for use as a
// secondary-index key, preserving natural ordering for the ordered numeric
// kinds (spec.md §4.1 "secondary:<name>" table). Composite kinds (Array,
// Map) are not index-able and return an error.
func (v Value) SortableBytes() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte{}, nil
	case KindBool:
		if v.Bool {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case KindI8, KindI16, KindI32, KindI64:
		buf := make([]byte, 8)
		// Flip the sign bit so two's-complement signed integers sort
		// correctly as unsigned big-endian byte strings.
		binary.BigEndian.PutUint64(buf, uint64(v.Int)^(1<<63))
		return buf, nil
	case KindU8, KindU16, KindU32, KindU64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, v.Uint)
		return buf, nil
	case KindF32:
		return sortableFloatBytes(float64(v.F32)), nil
	case KindF64:
		return sortableFloatBytes(v.F64), nil
	case KindString:
		return []byte(v.Str), nil
	case KindBytes:
		return v.Bytes, nil
	case KindI128:
		return v.Int128[:], nil
	case KindU128:
		return v.Uint128[:], nil
	default:
		return nil, fmt.Errorf("storage: value kind %d is not indexable", v.Kind)
	}
}

func sortableFloatBytes(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}

// PropertyMap is an ordered map from interned property name to Value
// (spec.md §3 "Properties are an ordered map"). Key order is preserved
// by keeping a parallel slice of names alongside the lookup map.
type PropertyMap struct {
	order []string
	data  map[string]Value
}

// NewPropertyMap constructs an empty ordered property map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{data: make(map[string]Value)}
}

// Set assigns name=val, appending name to the order if it is new.
func (p *PropertyMap) Set(name string, val Value) {
	if p.data == nil {
		p.data = make(map[string]Value)
	}
	if _, exists := p.data[name]; !exists {
		p.order = append(p.order, name)
	}
	p.data[name] = val
}

// Get returns the value for name and whether it is present.
func (p *PropertyMap) Get(name string) (Value, bool) {
	if p == nil || p.data == nil {
		return Value{}, false
	}
	v, ok := p.data[name]
	return v, ok
}

// Delete removes name from the map.
func (p *PropertyMap) Delete(name string) {
	if p == nil || p.data == nil {
		return
	}
	if _, ok := p.data[name]; !ok {
		return
	}
	delete(p.data, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Names returns property names in insertion order.
func (p *PropertyMap) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of properties.
func (p *PropertyMap) Len() int {
	if p == nil {
		return 0
	}
	return len(p.order)
}

// SortedNames returns property names in lexical order, used when a
// deterministic iteration order is needed (e.g. encoding).
func (p *PropertyMap) SortedNames() []string {
	names := p.Names()
	sort.Strings(names)
	return names
}
