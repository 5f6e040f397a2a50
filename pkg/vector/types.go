package vector

import (
	"encoding/binary"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/helixdb/helix-go/pkg/helixid"
)

// Config holds the tunable HNSW parameters (spec.md §4.3 "Parameters").
type Config struct {
	M              int     // max neighbors per non-zero layer (5-48)
	MMax0          int     // max neighbors at layer 0, default 2*M
	EfConstruction int     // candidate list size during insertion (40-512)
	EfSearch       int     // candidate list size during search (10-512)
	Alpha          float64 // SNG robust-prune tolerance, >= 1.0
	Dimensions     int
	Distance       Distance
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig(dimensions int, dist Distance) Config {
	return Config{
		M:              16,
		MMax0:          32,
		EfConstruction: 200,
		EfSearch:       64,
		Alpha:          1.0,
		Dimensions:     dimensions,
		Distance:       dist,
	}
}

// levelMultiplier is m_L = 1/ln(M) (spec.md §4.3).
func (c Config) levelMultiplier() float64 {
	if c.M <= 1 {
		return 1
	}
	return 1.0 / math.Log(float64(c.M))
}

// item is one persisted HNSW node (spec.md §4.3 "Item record").
type item struct {
	LocalID uint32
	Global  helixid.ID
	Vector  []float32
	Level   int
	Deleted bool
}

func encodeItem(it *item) []byte {
	buf := make([]byte, 0, 4+16+1+1+4*len(it.Vector))
	var b4 [4]byte
	binary.BigEndian.PutUint32(b4[:], it.LocalID)
	buf = append(buf, b4[:]...)
	buf = append(buf, it.Global[:]...)
	buf = append(buf, byte(it.Level))
	if it.Deleted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for _, f := range it.Vector {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(f))
		buf = append(buf, b[:]...)
	}
	return buf
}

func decodeItem(data []byte) (*item, error) {
	if len(data) < 4+16+1+1 {
		return nil, errShort
	}
	it := &item{}
	it.LocalID = binary.BigEndian.Uint32(data[0:4])
	copy(it.Global[:], data[4:20])
	it.Level = int(data[20])
	it.Deleted = data[21] != 0
	rest := data[22:]
	if len(rest)%4 != 0 {
		return nil, errShort
	}
	it.Vector = make([]float32, len(rest)/4)
	for i := range it.Vector {
		it.Vector[i] = math.Float32frombits(binary.BigEndian.Uint32(rest[i*4 : i*4+4]))
	}
	return it, nil
}

// metadata is the persisted per-namespace HNSW header (spec.md §4.3
// "Metadata").
type metadata struct {
	Label        string
	Dimensions   int
	ItemsBitmap  *roaring.Bitmap
	EntryPoints  []uint32
	MaxLevel     int
	DistanceName string
	NextLocalID  uint32
}

func newMetadata(label string, dimensions int, distName string) *metadata {
	return &metadata{
		Label:        label,
		Dimensions:   dimensions,
		ItemsBitmap:  roaring.New(),
		DistanceName: distName,
	}
}

func encodeMetadata(m *metadata) ([]byte, error) {
	bmBytes, err := m.ItemsBitmap.ToBytes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 64+len(bmBytes))
	buf = appendLP(buf, []byte(m.Label))
	buf = appendU32(buf, uint32(m.Dimensions))
	buf = appendU32(buf, uint32(m.MaxLevel))
	buf = appendU32(buf, m.NextLocalID)
	buf = appendLP(buf, []byte(m.DistanceName))
	buf = appendU32(buf, uint32(len(m.EntryPoints)))
	for _, ep := range m.EntryPoints {
		buf = appendU32(buf, ep)
	}
	buf = appendLP(buf, bmBytes)
	return buf, nil
}

func decodeMetadata(data []byte) (*metadata, error) {
	m := &metadata{}
	label, rest, err := readLP(data)
	if err != nil {
		return nil, err
	}
	m.Label = string(label)
	var u32 uint32
	u32, rest, err = readU32(rest)
	if err != nil {
		return nil, err
	}
	m.Dimensions = int(u32)
	u32, rest, err = readU32(rest)
	if err != nil {
		return nil, err
	}
	m.MaxLevel = int(u32)
	u32, rest, err = readU32(rest)
	if err != nil {
		return nil, err
	}
	m.NextLocalID = u32
	var distName []byte
	distName, rest, err = readLP(rest)
	if err != nil {
		return nil, err
	}
	m.DistanceName = string(distName)
	var n uint32
	n, rest, err = readU32(rest)
	if err != nil {
		return nil, err
	}
	m.EntryPoints = make([]uint32, n)
	for i := range m.EntryPoints {
		m.EntryPoints[i], rest, err = readU32(rest)
		if err != nil {
			return nil, err
		}
	}
	var bmBytes []byte
	bmBytes, _, err = readLP(rest)
	if err != nil {
		return nil, err
	}
	m.ItemsBitmap = roaring.New()
	if len(bmBytes) > 0 {
		if err := m.ItemsBitmap.UnmarshalBinary(bmBytes); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func readU32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, errShort
	}
	return binary.BigEndian.Uint32(data[:4]), data[4:], nil
}

func appendLP(buf, data []byte) []byte {
	buf = appendU32(buf, uint32(len(data)))
	return append(buf, data...)
}

func readLP(data []byte) ([]byte, []byte, error) {
	n, rest, err := readU32(data)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, errShort
	}
	return rest[:n], rest[n:], nil
}

// linkSet encodes a layer's neighbor set as a roaring bitmap of local ids
// (spec.md §4.3 "bitmap of neighbor ids").
type linkSet struct {
	bitmap *roaring.Bitmap
}

func newLinkSet(ids ...uint32) *linkSet {
	bm := roaring.New()
	bm.AddMany(ids)
	return &linkSet{bitmap: bm}
}

func (l *linkSet) ToSlice() []uint32 {
	return l.bitmap.ToArray()
}

func (l *linkSet) Len() int { return int(l.bitmap.GetCardinality()) }

func encodeLinkSet(l *linkSet) ([]byte, error) {
	return l.bitmap.ToBytes()
}

func decodeLinkSet(data []byte) (*linkSet, error) {
	bm := roaring.New()
	if len(data) > 0 {
		if err := bm.UnmarshalBinary(data); err != nil {
			return nil, err
		}
	}
	return &linkSet{bitmap: bm}, nil
}
