package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/helixdb/helix-go/pkg/helixid"
)

// Binary record formats (spec.md §4.1). Multi-byte integers are
// big-endian throughout so that any accidental byte-wise comparison still
// sorts numerically, matching the key-side convention.

func encodeLabel(label string) []byte {
	if len(label) > 255 {
		label = label[:255]
	}
	buf := make([]byte, 1+len(label))
	buf[0] = byte(len(label))
	copy(buf[1:], label)
	return buf
}

func decodeLabel(data []byte) (label string, rest []byte, err error) {
	if len(data) < 1 {
		return "", nil, fmt.Errorf("storage: %w: label length", errSliceLength)
	}
	n := int(data[0])
	if len(data) < 1+n {
		return "", nil, fmt.Errorf("storage: %w: label bytes", errSliceLength)
	}
	return string(data[1 : 1+n]), data[1+n:], nil
}

func encodeValue(v Value, buf []byte) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindNull:
	case KindBool:
		if v.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindI8, KindI16, KindI32, KindI64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Int))
		buf = append(buf, b[:]...)
	case KindI128:
		buf = append(buf, v.Int128[:]...)
	case KindU8, KindU16, KindU32, KindU64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v.Uint)
		buf = append(buf, b[:]...)
	case KindU128:
		buf = append(buf, v.Uint128[:]...)
	case KindF32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], mathFloat32bits(v.F32))
		buf = append(buf, b[:]...)
	case KindF64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], mathFloat64bits(v.F64))
		buf = append(buf, b[:]...)
	case KindString:
		buf = appendLenPrefixed(buf, []byte(v.Str))
	case KindBytes:
		buf = appendLenPrefixed(buf, v.Bytes)
	case KindArray:
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(v.Array)))
		buf = append(buf, n[:]...)
		for _, el := range v.Array {
			buf = encodeValue(el, buf)
		}
	case KindMap:
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(v.Map)))
		buf = append(buf, n[:]...)
		// Deterministic order for byte-stable round trips.
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sortStrings(keys)
		for _, k := range keys {
			buf = appendLenPrefixed(buf, []byte(k))
			buf = encodeValue(v.Map[k], buf)
		}
	}
	return buf
}

func decodeValue(data []byte) (Value, []byte, error) {
	if len(data) < 1 {
		return Value{}, nil, fmt.Errorf("storage: %w: value kind", errSliceLength)
	}
	kind := ValueKind(data[0])
	rest := data[1:]
	switch kind {
	case KindNull:
		return Value{Kind: KindNull}, rest, nil
	case KindBool:
		if len(rest) < 1 {
			return Value{}, nil, errSliceLength
		}
		return Value{Kind: KindBool, Bool: rest[0] != 0}, rest[1:], nil
	case KindI8, KindI16, KindI32, KindI64:
		if len(rest) < 8 {
			return Value{}, nil, errSliceLength
		}
		return Value{Kind: kind, Int: int64(binary.BigEndian.Uint64(rest[:8]))}, rest[8:], nil
	case KindI128:
		if len(rest) < 16 {
			return Value{}, nil, errSliceLength
		}
		var v Value
		v.Kind = kind
		copy(v.Int128[:], rest[:16])
		return v, rest[16:], nil
	case KindU8, KindU16, KindU32, KindU64:
		if len(rest) < 8 {
			return Value{}, nil, errSliceLength
		}
		return Value{Kind: kind, Uint: binary.BigEndian.Uint64(rest[:8])}, rest[8:], nil
	case KindU128:
		if len(rest) < 16 {
			return Value{}, nil, errSliceLength
		}
		var v Value
		v.Kind = kind
		copy(v.Uint128[:], rest[:16])
		return v, rest[16:], nil
	case KindF32:
		if len(rest) < 4 {
			return Value{}, nil, errSliceLength
		}
		return Value{Kind: kind, F32: mathFloat32frombits(binary.BigEndian.Uint32(rest[:4]))}, rest[4:], nil
	case KindF64:
		if len(rest) < 8 {
			return Value{}, nil, errSliceLength
		}
		return Value{Kind: kind, F64: mathFloat64frombits(binary.BigEndian.Uint64(rest[:8]))}, rest[8:], nil
	case KindString:
		b, r, err := readLenPrefixed(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{Kind: kind, Str: string(b)}, r, nil
	case KindBytes:
		b, r, err := readLenPrefixed(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return Value{Kind: kind, Bytes: b}, r, nil
	case KindArray:
		if len(rest) < 4 {
			return Value{}, nil, errSliceLength
		}
		n := binary.BigEndian.Uint32(rest[:4])
		r := rest[4:]
		arr := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			var el Value
			var err error
			el, r, err = decodeValue(r)
			if err != nil {
				return Value{}, nil, err
			}
			arr = append(arr, el)
		}
		return Value{Kind: kind, Array: arr}, r, nil
	case KindMap:
		if len(rest) < 4 {
			return Value{}, nil, errSliceLength
		}
		n := binary.BigEndian.Uint32(rest[:4])
		r := rest[4:]
		m := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			var keyBytes []byte
			var err error
			keyBytes, r, err = readLenPrefixed(r)
			if err != nil {
				return Value{}, nil, err
			}
			var val Value
			val, r, err = decodeValue(r)
			if err != nil {
				return Value{}, nil, err
			}
			m[string(keyBytes)] = val
		}
		return Value{Kind: kind, Map: m}, r, nil
	default:
		return Value{}, nil, fmt.Errorf("storage: %w: unknown value kind %d", errConversion, kind)
	}
}

// EncodeProperties serializes a property map using the same wire format as
// node/edge records. Exported for pkg/vector's vector_properties table,
// which stores a PropertyMap per vector without a surrounding Node/Edge
// record (spec.md §4.1 "vector_properties").
func EncodeProperties(p *PropertyMap) []byte {
	return encodeProperties(p, nil)
}

// DecodeProperties is the inverse of EncodeProperties.
func DecodeProperties(data []byte) (*PropertyMap, error) {
	p, _, err := decodeProperties(data)
	return p, err
}

func encodeProperties(p *PropertyMap, buf []byte) []byte {
	names := p.Names()
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(names)))
	buf = append(buf, n[:]...)
	for _, name := range names {
		buf = appendLenPrefixed(buf, []byte(name))
		v, _ := p.Get(name)
		buf = encodeValue(v, buf)
	}
	return buf
}

func decodeProperties(data []byte) (*PropertyMap, []byte, error) {
	if len(data) < 4 {
		return nil, nil, errSliceLength
	}
	n := binary.BigEndian.Uint32(data[:4])
	rest := data[4:]
	p := NewPropertyMap()
	for i := uint32(0); i < n; i++ {
		nameBytes, r, err := readLenPrefixed(rest)
		if err != nil {
			return nil, nil, err
		}
		var v Value
		v, rest, err = decodeValue(r)
		if err != nil {
			return nil, nil, err
		}
		p.Set(string(nameBytes), v)
	}
	return p, rest, nil
}

func appendLenPrefixed(buf, data []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	buf = append(buf, n[:]...)
	return append(buf, data...)
}

func readLenPrefixed(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, errSliceLength
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, errSliceLength
	}
	return data[:n], data[n:], nil
}

// encodeNode serializes a Node per spec.md §4.1's "nodes" table value
// format: label-length(1) ‖ label-bytes ‖ serialized properties.
func encodeNode(n *Node) []byte {
	buf := encodeLabel(n.Label)
	props := n.Properties
	if props == nil {
		props = NewPropertyMap()
	}
	return encodeProperties(props, buf)
}

func decodeNode(id helixid.ID, data []byte) (*Node, error) {
	label, rest, err := decodeLabel(data)
	if err != nil {
		return nil, err
	}
	props, _, err := decodeProperties(rest)
	if err != nil {
		return nil, err
	}
	return &Node{ID: id, Label: label, Properties: props}, nil
}

// encodeEdge serializes an Edge per spec.md §4.1's "edges" table value
// format: label ‖ from(16) ‖ to(16) ‖ properties ‖ flags(1).
func encodeEdge(e *Edge) []byte {
	buf := encodeLabel(e.Label)
	buf = append(buf, e.From[:]...)
	buf = append(buf, e.To[:]...)
	props := e.Properties
	if props == nil {
		props = NewPropertyMap()
	}
	buf = encodeProperties(props, buf)
	buf = append(buf, byte(e.Flags))
	return buf
}

func decodeEdge(id helixid.ID, data []byte) (*Edge, error) {
	label, rest, err := decodeLabel(data)
	if err != nil {
		return nil, err
	}
	if len(rest) < 32 {
		return nil, errSliceLength
	}
	var from, to helixid.ID
	copy(from[:], rest[0:16])
	copy(to[:], rest[16:32])
	rest = rest[32:]
	props, rest, err := decodeProperties(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) < 1 {
		return nil, errSliceLength
	}
	flags := EdgeFlags(rest[0])
	return &Edge{ID: id, Label: label, From: from, To: to, Properties: props, Flags: flags}, nil
}
