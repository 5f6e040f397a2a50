package vector

import (
	"encoding/binary"
	"math"
)

func logE(x float64) float64 { return math.Log(x) }

func encodeU32V(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeU32V(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func decodeU32Bytes(b []byte) uint32 { return decodeU32V(b) }

// linksPrefixForLayer is linksKey's prefix with the item id omitted, used to
// iterate every link record at one layer during Rebuild.
func linksPrefixForLayer(ns [2]byte, layer byte) []byte {
	return []byte{prefixLinks, ns[0], ns[1], layer}
}
