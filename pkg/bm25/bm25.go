// Package bm25 implements HelixDB's inverted full-text index and BM25
// ranking (spec.md §4.4), persisted as its own set of logical tables
// directly against the kv substrate (spec.md §4.1's bm25_posting,
// bm25_doc_lengths, bm25_df, bm25_meta tables) so that indexing happens
// inside the same write transaction as the node mutation that triggered it
// (spec.md §9 "Secondary-index consistency under concurrent writes").
//
// Tokenization and scoring follow the teacher's fulltext_index.go, adjusted
// to the exact BM25 formula and mutation contract spec.md §4.4 specifies.
package bm25

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/kv"
)

// Default BM25 parameters (spec.md §4.4).
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

const (
	tablePosting     = byte(0xB1) // term ‖ 0x00 ‖ doc_id(16) -> term_freq(u32)
	tableDocLengths  = byte(0xB2) // doc_id(16) -> u32
	tableDF          = byte(0xB3) // term -> u32
	tableMeta        = byte(0xB4) // "metadata" -> {total_docs, avgdl, k1, b}
)

// Meta is the single-row bm25_meta record (spec.md §4.1).
type Meta struct {
	TotalDocs uint64
	AvgDL     float64
	K1        float32
	B         float32
}

// Index is a handle to one BM25 inverted index. It carries no state of its
// own beyond the scoring parameters; all index data lives in the kv
// substrate and is addressed through the transaction passed to each method,
// so a single Index value can be shared across goroutines.
type Index struct {
	K1 float32
	B  float32
}

// New returns an Index using the default k1/b parameters.
func New() *Index {
	return &Index{K1: DefaultK1, B: DefaultB}
}

// tokenize lowercases text and splits on runs of non-alphanumeric
// characters, dropping tokens of length <= 2 (spec.md §4.4
// "Tokenization").
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 2 {
			tokens = append(tokens, cur.String())
		}
		cur.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func postingKey(term string, doc helixid.ID) []byte {
	k := make([]byte, 0, 1+len(term)+1+16)
	k = append(k, tablePosting)
	k = append(k, term...)
	k = append(k, 0)
	k = append(k, doc[:]...)
	return k
}

func postingPrefix(term string) []byte {
	k := make([]byte, 0, 1+len(term)+1)
	k = append(k, tablePosting)
	k = append(k, term...)
	k = append(k, 0)
	return k
}

func docLengthKey(doc helixid.ID) []byte {
	k := make([]byte, 1+16)
	k[0] = tableDocLengths
	copy(k[1:], doc[:])
	return k
}

func dfKey(term string) []byte {
	return append([]byte{tableDF}, term...)
}

func metaKey() []byte { return []byte{tableMeta} }

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (idx *Index) readMeta(txn kv.Txn) (Meta, error) {
	data, err := txn.Get(metaKey())
	if err != nil {
		return Meta{K1: idx.K1, B: idx.B}, nil
	}
	if len(data) < 20 {
		return Meta{K1: idx.K1, B: idx.B}, nil
	}
	m := Meta{}
	m.TotalDocs = binary.BigEndian.Uint64(data[0:8])
	m.AvgDL = math.Float64frombits(binary.BigEndian.Uint64(data[8:16]))
	m.K1 = math.Float32frombits(binary.BigEndian.Uint32(data[16:20]))
	if len(data) >= 24 {
		m.B = math.Float32frombits(binary.BigEndian.Uint32(data[20:24]))
	}
	return m, nil
}

func (idx *Index) writeMeta(txn kv.WriteTxn, m Meta) error {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint64(buf[0:8], m.TotalDocs)
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(m.AvgDL))
	binary.BigEndian.PutUint32(buf[16:20], math.Float32bits(m.K1))
	binary.BigEndian.PutUint32(buf[20:24], math.Float32bits(m.B))
	return txn.Set(metaKey(), buf)
}

// Meta returns the current aggregate metadata (spec.md §3 BM25 invariant:
// sum(doc_lengths)/total_docs == avgdl).
func (idx *Index) Meta(txn kv.Txn) (Meta, error) {
	return idx.readMeta(txn)
}

// Insert tokenizes text, writes one posting entry per unique token,
// increments each token's document frequency, and updates the document
// length and running average (spec.md §4.4 "insert(doc_id, text)").
func (idx *Index) Insert(txn kv.WriteTxn, doc helixid.ID, text string) error {
	tokens := tokenize(text)
	termFreq := make(map[string]uint32, len(tokens))
	for _, t := range tokens {
		termFreq[t]++
	}

	for term, freq := range termFreq {
		if err := txn.Set(postingKey(term, doc), encodeU32(freq)); err != nil {
			return err
		}
		df := decodeU32(getOrZero(txn, dfKey(term)))
		if err := txn.Set(dfKey(term), encodeU32(df+1)); err != nil {
			return err
		}
	}

	if err := txn.Set(docLengthKey(doc), encodeU32(uint32(len(tokens)))); err != nil {
		return err
	}

	m, _ := idx.readMeta(txn)
	totalLen := m.AvgDL*float64(m.TotalDocs) + float64(len(tokens))
	m.TotalDocs++
	if m.TotalDocs > 0 {
		m.AvgDL = totalLen / float64(m.TotalDocs)
	}
	if m.K1 == 0 {
		m.K1 = idx.K1
	}
	if m.B == 0 {
		m.B = idx.B
	}
	return idx.writeMeta(txn, m)
}

func getOrZero(txn kv.Txn, key []byte) []byte {
	v, err := txn.Get(key)
	if err != nil {
		return nil
	}
	return v
}

// Delete removes doc from the index: every posting entry it contributed,
// its document-frequency contribution, its length, and rolls back the
// running metadata (spec.md §4.4 "delete(doc_id)"). Round-trips to the
// pre-insert metadata state per spec.md §8's round-trip law.
func (idx *Index) Delete(txn kv.WriteTxn, doc helixid.ID) error {
	lenData, err := txn.Get(docLengthKey(doc))
	if err != nil {
		return nil // already absent; delete is idempotent
	}
	docLen := decodeU32(lenData)

	// Find every term this doc posted by scanning the posting table.
	// There is no per-doc reverse index, so we scan all postings once;
	// acceptable because delete is rare relative to search.
	terms, err := idx.termsForDoc(txn, doc)
	if err != nil {
		return err
	}
	for _, term := range terms {
		if err := txn.Delete(postingKey(term, doc)); err != nil {
			return err
		}
		df := decodeU32(getOrZero(txn, dfKey(term)))
		if df > 0 {
			df--
		}
		if df == 0 {
			if err := txn.Delete(dfKey(term)); err != nil {
				return err
			}
		} else if err := txn.Set(dfKey(term), encodeU32(df)); err != nil {
			return err
		}
	}

	if err := txn.Delete(docLengthKey(doc)); err != nil {
		return err
	}

	m, _ := idx.readMeta(txn)
	if m.TotalDocs > 0 {
		totalLen := m.AvgDL*float64(m.TotalDocs) - float64(docLen)
		m.TotalDocs--
		if m.TotalDocs > 0 {
			m.AvgDL = totalLen / float64(m.TotalDocs)
		} else {
			m.AvgDL = 0
		}
	}
	return idx.writeMeta(txn, m)
}

// termsForDoc scans the df table's known terms and checks which ones have
// a posting for doc. df acts as the candidate term universe.
func (idx *Index) termsForDoc(txn kv.Txn, doc helixid.ID) ([]string, error) {
	var terms []string
	it := txn.Iterator([]byte{tableDF})
	defer it.Close()
	for it.Valid() {
		key := it.Key()
		term := string(key[1:])
		if _, err := txn.Get(postingKey(term, doc)); err == nil {
			terms = append(terms, term)
		}
		it.Next()
	}
	return terms, nil
}

// Update replaces doc's indexed text (spec.md §4.4 "update(doc_id, text) =
// delete then insert").
func (idx *Index) Update(txn kv.WriteTxn, doc helixid.ID, text string) error {
	if err := idx.Delete(txn, doc); err != nil {
		return err
	}
	return idx.Insert(txn, doc, text)
}

// Result is one scored document from Search.
type Result struct {
	DocID helixid.ID
	Score float64
}

// Search scores every query term's posting list and returns the top-k
// documents by descending BM25 score (spec.md §4.4 "Top-k"). Indexed
// documents that contain no query term rank after every match, with
// score 0.
func (idx *Index) Search(txn kv.Txn, query string, k int) ([]Result, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}
	m, err := idx.readMeta(txn)
	if err != nil {
		return nil, err
	}
	if m.TotalDocs == 0 {
		return nil, nil
	}
	k1, b := float64(m.K1), float64(m.B)
	if k1 == 0 {
		k1 = float64(idx.K1)
	}

	scores := make(map[helixid.ID]float64)
	for _, term := range terms {
		df := decodeU32(getOrZero(txn, dfKey(term)))
		if df == 0 {
			continue
		}
		idf := math.Log((float64(m.TotalDocs)-float64(df)+0.5)/(float64(df)+0.5) + 1)

		prefix := postingPrefix(term)
		it := txn.Iterator(prefix)
		for it.Valid() {
			key := it.Key()
			var doc helixid.ID
			copy(doc[:], key[len(prefix):])
			val, verr := it.Value()
			if verr != nil {
				it.Next()
				continue
			}
			tf := float64(decodeU32(val))
			docLen := float64(decodeU32(getOrZero(txn, docLengthKey(doc))))
			denom := tf + k1*(1-b+b*(docLen/m.AvgDL))
			score := idf * (tf * (k1 + 1) / denom)
			scores[doc] += score
			it.Next()
		}
		it.Close()
	}

	dl := txn.Iterator([]byte{tableDocLengths})
	for dl.Valid() {
		var doc helixid.ID
		copy(doc[:], dl.Key()[1:])
		if _, ok := scores[doc]; !ok {
			scores[doc] = 0
		}
		dl.Next()
	}
	dl.Close()

	results := make([]Result, 0, len(scores))
	for doc, score := range scores {
		results = append(results, Result{DocID: doc, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID.Less(results[j].DocID)
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}
