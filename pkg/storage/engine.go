package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/herrors"
	"github.com/helixdb/helix-go/pkg/kv"
)

// Engine owns the storage engine's set of logical tables, key schemes,
// adjacency indexes, and secondary indexes (spec.md §4.1). It is the sole
// owner of the underlying kv.DB; traversal iterators (pkg/traversal) borrow
// it for the lifetime of a transaction (spec.md §3 "Ownership").
type Engine struct {
	db kv.DB

	// indexMu protects the index config map. Per spec.md §5 this is the
	// only contended path: add/drop-index is rare, reads of the map are
	// frequent but index membership is checked once per write, not once
	// per read.
	indexMu sync.RWMutex
	indexes map[string][]SecondaryIndex // label -> configured indexes
}

// Options configures a newly opened Engine.
type Options struct {
	Dir               string
	InMemory          bool
	SyncWrites        bool
	SecondaryIndices  []SecondaryIndex // spec.md §6 "graph = {secondary_indices: [name,...]}"
}

// Open opens the storage engine at the given directory (or in-memory, for
// tests and ephemeral engines).
func Open(opts Options) (*Engine, error) {
	db, err := kv.Open(kv.Options{Dir: opts.Dir, InMemory: opts.InMemory, SyncWrites: opts.SyncWrites})
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", herrors.At(herrors.KindSubstrate, nil, err))
	}
	e := &Engine{db: db, indexes: make(map[string][]SecondaryIndex)}
	for _, idx := range opts.SecondaryIndices {
		e.indexes[idx.Label] = append(e.indexes[idx.Label], idx)
	}
	return e, nil
}

// Close releases the substrate's file handles.
func (e *Engine) Close() error {
	return e.db.Close()
}

// EnsureIndex registers a secondary index for (label, property). Safe to
// call concurrently with reads; every node write that touches the label
// takes the read-lock to snapshot the current index set.
func (e *Engine) EnsureIndex(label, property string) {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()
	for _, idx := range e.indexes[label] {
		if idx.Property == property {
			return
		}
	}
	e.indexes[label] = append(e.indexes[label], SecondaryIndex{Label: label, Property: property})
}

// DropIndex removes a configured secondary index. It does not retroactively
// clean up existing index table entries; callers that need that should
// rebuild.
func (e *Engine) DropIndex(label, property string) {
	e.indexMu.Lock()
	defer e.indexMu.Unlock()
	list := e.indexes[label]
	for i, idx := range list {
		if idx.Property == property {
			e.indexes[label] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (e *Engine) indexesFor(label string) []SecondaryIndex {
	e.indexMu.RLock()
	defer e.indexMu.RUnlock()
	out := make([]SecondaryIndex, len(e.indexes[label]))
	copy(out, e.indexes[label])
	return out
}

// Tx is a single storage transaction, read-only or read-write, over the
// engine's logical tables.
type Tx struct {
	engine *Engine
	txn    kv.Txn
	write  bool
}

// View runs fn against a new read snapshot (spec.md §5 "Read: snapshot
// isolation"). Multiple concurrent Views never block each other or the
// writer.
func (e *Engine) View(ctx context.Context, fn func(*Tx) error) error {
	return e.db.View(ctx, func(txn kv.Txn) error {
		return fn(&Tx{engine: e, txn: txn, write: false})
	})
}

// Update runs fn inside the single write transaction (spec.md §5
// "Write: single-writer"). If fn returns an error the whole transaction is
// abandoned and no change becomes visible (spec.md §4.1 "Failure
// semantics").
func (e *Engine) Update(ctx context.Context, fn func(*Tx) error) error {
	return e.db.Update(ctx, func(wtxn kv.WriteTxn) error {
		return fn(&Tx{engine: e, txn: wtxn, write: true})
	})
}

func (t *Tx) requireWrite() error {
	if !t.write {
		return fmt.Errorf("storage: operation requires a write transaction")
	}
	return nil
}

// KV exposes the underlying kv.Txn so that other index structures sharing
// this engine's substrate (pkg/vector, pkg/bm25) can be driven from inside
// the same transaction as a node/edge mutation (spec.md §9 "Secondary-index
// consistency under concurrent writes"). pkg/traversal and pkg/engine are
// the only expected callers.
func (t *Tx) KV() kv.Txn { return t.txn }

// WriteKV is KV narrowed to a kv.WriteTxn, for callers that need to mutate
// an auxiliary index (vector/bm25) alongside a storage write. Returns an
// error on a read-only Tx.
func (t *Tx) WriteKV() (kv.WriteTxn, error) {
	if !t.write {
		return nil, fmt.Errorf("storage: operation requires a write transaction")
	}
	wt, ok := t.txn.(kv.WriteTxn)
	if !ok {
		return nil, fmt.Errorf("storage: transaction is not a WriteTxn")
	}
	return wt, nil
}

// IsWrite reports whether this Tx was opened via Engine.Update.
func (t *Tx) IsWrite() bool { return t.write }

// EnsureIndex registers a secondary index for (label, property) on the
// owning Engine, forwarded so callers building on top of Tx (pkg/traversal's
// AddN secondary_indexes argument, spec.md §4.2) never need the Engine
// reference directly.
func (t *Tx) EnsureIndex(label, property string) {
	t.engine.EnsureIndex(label, property)
}

// AddNode creates a new node with a fresh id, maintaining any configured
// secondary indexes for its label in the same transaction (spec.md §4.1
// "Secondary index maintenance").
func (t *Tx) AddNode(label string, props *PropertyMap) (*Node, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	id := helixid.New()
	node := &Node{ID: id, Label: label, Properties: props}
	if err := t.txn.Set(nodeKey(id), encodeNode(node)); err != nil {
		return nil, fmt.Errorf("storage: add node: %w", err)
	}
	if err := t.indexNode(node, nil); err != nil {
		return nil, err
	}
	return node, nil
}

// GetNode fetches a node by id.
func (t *Tx) GetNode(id helixid.ID) (*Node, error) {
	data, err := t.txn.Get(nodeKey(id))
	if err != nil {
		return nil, herrors.At(herrors.KindNodeNotFound, nil, herrors.ErrNodeNotFound)
	}
	return decodeNode(id, data)
}

// UpdateNode replaces a node's properties, updating secondary indexes for
// any changed values (spec.md §4.1 "on Update that changes the value,
// delete the old entry and insert the new").
func (t *Tx) UpdateNode(node *Node) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	old, err := t.GetNode(node.ID)
	if err != nil {
		return err
	}
	if err := t.txn.Set(nodeKey(node.ID), encodeNode(node)); err != nil {
		return fmt.Errorf("storage: update node: %w", err)
	}
	return t.indexNode(node, old)
}

// DropNode deletes a node and, atomically, every edge incident to it plus
// their adjacency and secondary index entries (spec.md §3 invariant
// "Deleting a node atomically deletes all incident edges").
func (t *Tx) DropNode(id helixid.ID) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	node, err := t.GetNode(id)
	if err != nil {
		return err
	}

	// Drop every outgoing edge.
	outPrefix := outEdgesNodePrefix(id)
	if err := t.dropEdgesMatching(outPrefix, true); err != nil {
		return err
	}
	// Drop every incoming edge.
	inPrefix := inEdgesNodePrefix(id)
	if err := t.dropEdgesMatching(inPrefix, false); err != nil {
		return err
	}

	if err := t.unindexNode(node); err != nil {
		return err
	}
	return t.txn.Delete(nodeKey(id))
}

// dropEdgesMatching scans an adjacency prefix and drops every edge it
// names via the canonical DropEdge path so both directions' index entries
// are removed consistently.
func (t *Tx) dropEdgesMatching(prefix []byte, out bool) error {
	skip := 0
	if len(prefix) == 1+16 {
		skip = 4
	}
	var edgeIDs []helixid.ID
	it := t.txn.Iterator(prefix)
	for it.Valid() {
		key := it.Key()
		member := key[len(prefix):]
		if len(member) < skip+32 {
			it.Next()
			continue
		}
		member = member[skip:]
		edgeID, _ := decodeAdjacencyMember(member)
		edgeIDs = append(edgeIDs, edgeID)
		it.Next()
	}
	it.Close()
	for _, id := range edgeIDs {
		// An edge already removed by a prior iteration (e.g. a self-loop
		// touching both prefixes) is tolerated; any other error aborts.
		if err := t.DropEdge(id); err != nil && !errors.Is(err, herrors.ErrEdgeNotFound) {
			return err
		}
	}
	return nil
}

// AddEdge creates a directed edge and maintains the mirrored out_edges/
// in_edges adjacency entries (spec.md §3 invariant).
func (t *Tx) AddEdge(label string, from, to helixid.ID, props *PropertyMap, toVector bool) (*Edge, error) {
	if err := t.requireWrite(); err != nil {
		return nil, err
	}
	id := helixid.New()
	flags := EdgeFlags(0)
	if toVector {
		flags |= EdgeToVector
	}
	edge := &Edge{ID: id, Label: label, From: from, To: to, Properties: props, Flags: flags}
	if err := t.txn.Set(edgeKey(id), encodeEdge(edge)); err != nil {
		return nil, fmt.Errorf("storage: add edge: %w", err)
	}
	hash := helixid.LabelHash(label)
	outKey := outEdgeMemberKey(outEdgesPrefix(from, hash), id, to)
	if err := t.txn.Set(outKey, []byte{}); err != nil {
		return nil, err
	}
	inKey := inEdgeMemberKey(inEdgesPrefix(to, hash), id, from)
	if err := t.txn.Set(inKey, []byte{}); err != nil {
		return nil, err
	}
	return edge, nil
}

// GetEdge fetches an edge by id.
func (t *Tx) GetEdge(id helixid.ID) (*Edge, error) {
	data, err := t.txn.Get(edgeKey(id))
	if err != nil {
		return nil, herrors.At(herrors.KindEdgeNotFound, nil, herrors.ErrEdgeNotFound)
	}
	return decodeEdge(id, data)
}

// DropEdge removes an edge and both of its adjacency entries.
func (t *Tx) DropEdge(id helixid.ID) error {
	if err := t.requireWrite(); err != nil {
		return err
	}
	edge, err := t.GetEdge(id)
	if err != nil {
		return err
	}
	hash := helixid.LabelHash(edge.Label)
	outKey := outEdgeMemberKey(outEdgesPrefix(edge.From, hash), id, edge.To)
	inKey := inEdgeMemberKey(inEdgesPrefix(edge.To, hash), id, edge.From)
	if err := t.txn.Delete(outKey); err != nil {
		return err
	}
	if err := t.txn.Delete(inKey); err != nil {
		return err
	}
	return t.txn.Delete(edgeKey(id))
}

// AdjacencyEntry is one (edge, endpoint) pair discovered by an adjacency
// walk.
type AdjacencyEntry struct {
	EdgeID   helixid.ID
	Endpoint helixid.ID
}

// WalkOut returns every outgoing edge of `from` with the given label, in
// key order (spec.md §4.1 "Adjacency walk"). Passing an empty label walks
// every label.
func (t *Tx) WalkOut(from helixid.ID, label string) ([]AdjacencyEntry, error) {
	var prefix []byte
	if label == "" {
		prefix = outEdgesNodePrefix(from)
	} else {
		prefix = outEdgesPrefix(from, helixid.LabelHash(label))
	}
	return t.walkAdjacency(prefix)
}

// WalkIn returns every incoming edge of `to` with the given label.
func (t *Tx) WalkIn(to helixid.ID, label string) ([]AdjacencyEntry, error) {
	var prefix []byte
	if label == "" {
		prefix = inEdgesNodePrefix(to)
	} else {
		prefix = inEdgesPrefix(to, helixid.LabelHash(label))
	}
	return t.walkAdjacency(prefix)
}

func (t *Tx) walkAdjacency(prefix []byte) ([]AdjacencyEntry, error) {
	// A node-only prefix (17 bytes: table+node) spans every label, so the
	// member still carries its 4-byte label hash before the fixed
	// edge_id‖endpoint pair; a label-scoped prefix (21 bytes) already
	// consumed the hash.
	skip := 0
	if len(prefix) == 1+16 {
		skip = 4
	}
	var out []AdjacencyEntry
	it := t.txn.Iterator(prefix)
	defer it.Close()
	for it.Valid() {
		key := it.Key()
		member := key[len(prefix):]
		if len(member) < skip+32 {
			it.Next()
			continue
		}
		member = member[skip:]
		edgeID, endpoint := decodeAdjacencyMember(member)
		out = append(out, AdjacencyEntry{EdgeID: edgeID, Endpoint: endpoint})
		it.Next()
	}
	return out, nil
}

// ScanLabel returns every node with the given label (spec.md §4.2 source
// step "N<Label>" full scan). This is a full table scan; callers that need
// a unique lookup should prefer a secondary index via Lookup.
func (t *Tx) ScanLabel(label string) ([]*Node, error) {
	var out []*Node
	it := t.txn.Iterator([]byte{tableNodes})
	defer it.Close()
	for it.Valid() {
		key := it.Key()
		var id helixid.ID
		copy(id[:], key[1:17])
		data, err := it.Value()
		if err != nil {
			it.Next()
			continue
		}
		node, err := decodeNode(id, data)
		if err == nil && (label == "" || node.Label == label) {
			out = append(out, node)
		}
		it.Next()
	}
	return out, nil
}

// Lookup returns every node id stored under value for the configured
// (label, property) secondary index (spec.md §4.2 "N<Label>({index:
// value})").
func (t *Tx) Lookup(label, property string, value Value) ([]helixid.ID, error) {
	name := SecondaryIndex{Label: label, Property: property}.TableName()
	vb, err := value.SortableBytes()
	if err != nil {
		return nil, err
	}
	prefix := secondaryValuePrefix(name, vb)
	var ids []helixid.ID
	it := t.txn.Iterator(prefix)
	defer it.Close()
	for it.Valid() {
		key := it.Key()
		if len(key) < len(prefix)+16 {
			it.Next()
			continue
		}
		var id helixid.ID
		copy(id[:], key[len(prefix):len(prefix)+16])
		ids = append(ids, id)
		it.Next()
	}
	return ids, nil
}

// indexNode writes/updates secondary index entries for node against the
// engine's configured indexes for its label. If old is non-nil, stale
// entries for changed properties are removed first (spec.md §4.1).
func (t *Tx) indexNode(node *Node, old *Node) error {
	for _, idx := range t.engine.indexesFor(node.Label) {
		var oldVal, newVal Value
		var hadOld, hasNew bool
		if old != nil {
			oldVal, hadOld = old.Properties.Get(idx.Property)
		}
		if node.Properties != nil {
			newVal, hasNew = node.Properties.Get(idx.Property)
		}
		if hadOld && (!hasNew || !oldVal.Equal(newVal)) {
			vb, err := oldVal.SortableBytes()
			if err == nil {
				if err := t.txn.Delete(secondaryMemberKey(idx.TableName(), vb, node.ID)); err != nil {
					return err
				}
			}
		}
		if hasNew && (!hadOld || !oldVal.Equal(newVal)) {
			vb, err := newVal.SortableBytes()
			if err != nil {
				return err
			}
			if err := t.txn.Set(secondaryMemberKey(idx.TableName(), vb, node.ID), []byte{}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tx) unindexNode(node *Node) error {
	for _, idx := range t.engine.indexesFor(node.Label) {
		val, ok := node.Properties.Get(idx.Property)
		if !ok {
			continue
		}
		vb, err := val.SortableBytes()
		if err != nil {
			continue
		}
		if err := t.txn.Delete(secondaryMemberKey(idx.TableName(), vb, node.ID)); err != nil {
			return err
		}
	}
	return nil
}
