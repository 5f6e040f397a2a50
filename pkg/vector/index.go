package vector

import (
	"container/heap"
	"math/rand"
	"sort"

	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/kv"
)

// Index is a handle to one HNSW vector index. Like pkg/bm25.Index, it holds
// only tunable parameters; all graph state lives in the kv substrate under
// the label's namespace, addressed through the transaction passed to each
// method, so one Index value can serve every V<Label> schema and can
// participate in the caller's write transaction (spec.md §9).
type Index struct {
	Config Config
}

// New returns an Index with cfg applied. Callers normally start from
// DefaultConfig and override fields as needed.
func New(cfg Config) *Index {
	return &Index{Config: cfg}
}

// Result is one scored match from Search.
type Result struct {
	ID    helixid.ID
	Score float64 // distance; lower is closer
}

type scored struct {
	id   uint32
	dist float64
}

// loadMetadata reads the namespace header, returning a freshly initialized
// one if absent (spec.md §4.3 "opening an empty namespace is not an error").
func (idx *Index) loadMetadata(txn kv.Txn, label string, ns [2]byte) (*metadata, error) {
	data, err := txn.Get(metaKeyFor(ns))
	if err != nil {
		m := newMetadata(label, idx.Config.Dimensions, idx.Config.Distance.Name())
		return m, nil
	}
	return decodeMetadata(data)
}

func (idx *Index) saveMetadata(wt kv.WriteTxn, ns [2]byte, m *metadata) error {
	data, err := encodeMetadata(m)
	if err != nil {
		return err
	}
	return wt.Set(metaKeyFor(ns), data)
}

func (idx *Index) getItem(txn kv.Txn, ns [2]byte, id uint32) (*item, error) {
	data, err := txn.Get(itemKey(ns, id))
	if err != nil {
		return nil, ErrVectorNotFound
	}
	return decodeItem(data)
}

func (idx *Index) putItem(wt kv.WriteTxn, ns [2]byte, it *item) error {
	return wt.Set(itemKey(ns, it.LocalID), encodeItem(it))
}

func (idx *Index) getLinks(txn kv.Txn, ns [2]byte, layer int, id uint32) (*linkSet, error) {
	data, err := txn.Get(linksKey(ns, byte(layer), id))
	if err != nil {
		return newLinkSet(), nil
	}
	return decodeLinkSet(data)
}

func (idx *Index) setLinks(wt kv.WriteTxn, ns [2]byte, layer int, id uint32, l *linkSet) error {
	data, err := encodeLinkSet(l)
	if err != nil {
		return err
	}
	return wt.Set(linksKey(ns, byte(layer), id), data)
}

// randomLevel draws a random layer per HNSW's exponential decay distribution
// (spec.md §4.3 "Level assignment"): level = floor(-ln(U) * m_L).
func (idx *Index) randomLevel() int {
	u := rand.Float64()
	if u <= 0 {
		u = 1e-12
	}
	mL := idx.Config.levelMultiplier()
	level := int(-logE(u) * mL)
	return level
}

// Insert adds a vector for global under label, assigning it a fresh local
// id, drawing its level, and wiring it into every layer from its level down
// to 0 via greedy descent plus beam-search construction and SNG/alpha
// robust-pruning (spec.md §4.3 "insert").
func (idx *Index) Insert(wt kv.WriteTxn, label string, global helixid.ID, vec []float32) error {
	if len(vec) != idx.Config.Dimensions {
		return ErrInvalidVecDimension
	}
	ns := namespace(label)
	m, err := idx.loadMetadata(wt, label, ns)
	if err != nil {
		return err
	}
	if m.DistanceName == "" {
		m.DistanceName = idx.Config.Distance.Name()
	} else if m.DistanceName != idx.Config.Distance.Name() {
		return ErrUnmatchingDistance
	}

	localID := m.NextLocalID
	m.NextLocalID++
	level := idx.randomLevel()

	it := &item{LocalID: localID, Global: global, Vector: vec, Level: level}
	if err := idx.putItem(wt, ns, it); err != nil {
		return err
	}
	m.ItemsBitmap.Add(localID)
	if err := wt.Set(idMapL2GKey(ns, localID), global[:]); err != nil {
		return err
	}
	if err := wt.Set(idMapG2LKey(ns, global), encodeU32V(localID)); err != nil {
		return err
	}

	entry, ok, err := idx.firstValidEntry(wt, ns, m)
	if err != nil {
		return err
	}
	if !ok {
		m.EntryPoints = []uint32{localID}
		m.MaxLevel = level
		return idx.saveMetadata(wt, ns, m)
	}

	ep := entry
	curMaxLevel := m.MaxLevel
	for l := curMaxLevel; l > level; l-- {
		next, err := idx.searchLayerSingle(wt, ns, vec, ep, l)
		if err != nil {
			return err
		}
		ep = next
	}

	top := level
	if curMaxLevel < top {
		top = curMaxLevel
	}
	for l := top; l >= 0; l-- {
		candidates, err := idx.searchLayer(wt, ns, vec, []uint32{ep}, l, idx.Config.EfConstruction)
		if err != nil {
			return err
		}
		cap := idx.capForLayer(l)
		selected, err := idx.robustPrune(wt, ns, vec, candidates, cap)
		if err != nil {
			return err
		}
		ids := make([]uint32, len(selected))
		for i, s := range selected {
			ids[i] = s.id
		}
		if err := idx.setLinks(wt, ns, l, localID, newLinkSet(ids...)); err != nil {
			return err
		}
		for _, s := range selected {
			if err := idx.addLink(wt, ns, s.id, scored{id: localID, dist: s.dist}, l); err != nil {
				return err
			}
		}
		if len(candidates) > 0 {
			ep = candidates[0].id
		}
	}

	if level > curMaxLevel {
		m.EntryPoints = []uint32{localID}
		m.MaxLevel = level
	}
	return idx.saveMetadata(wt, ns, m)
}

// List returns every non-deleted vector's global id under label, in no
// particular order (spec.md §4.2 source step "V<Label>" full scan).
func (idx *Index) List(txn kv.Txn, label string) ([]helixid.ID, error) {
	ns := namespace(label)
	m, err := idx.loadMetadata(txn, label, ns)
	if err != nil {
		return nil, err
	}
	out := make([]helixid.ID, 0, m.ItemsBitmap.GetCardinality())
	it := m.ItemsBitmap.Iterator()
	for it.HasNext() {
		localID := it.Next()
		data, err := txn.Get(idMapL2GKey(ns, localID))
		if err != nil {
			continue
		}
		var g helixid.ID
		copy(g[:], data)
		out = append(out, g)
	}
	return out, nil
}

// Get returns the vector stored for global under label.
func (idx *Index) Get(txn kv.Txn, label string, global helixid.ID) ([]float32, error) {
	ns := namespace(label)
	data, err := txn.Get(idMapG2LKey(ns, global))
	if err != nil {
		return nil, ErrVectorNotFound
	}
	it, err := idx.getItem(txn, ns, decodeU32V(data))
	if err != nil {
		return nil, err
	}
	if it.Deleted {
		return nil, ErrVectorAlreadyDeleted
	}
	return it.Vector, nil
}

func (idx *Index) capForLayer(layer int) int {
	if layer == 0 {
		return idx.Config.MMax0
	}
	return idx.Config.M
}

// addLink tries to append a back-link from p to q at layer, falling back to
// robust-prune when p's neighbor list at that layer is already full
// (spec.md §4.3 "add_link").
func (idx *Index) addLink(wt kv.WriteTxn, ns [2]byte, p uint32, q scored, layer int) error {
	if p == q.id {
		return nil
	}
	links, err := idx.getLinks(wt, ns, layer, p)
	if err != nil {
		return err
	}
	cap := idx.capForLayer(layer)
	if links.Len() < cap {
		links.bitmap.Add(q.id)
		return idx.setLinks(wt, ns, layer, p, links)
	}

	pItem, err := idx.getItem(wt, ns, p)
	if err != nil {
		return err
	}
	candidates := make([]scored, 0, links.Len()+1)
	for _, nid := range links.ToSlice() {
		nItem, err := idx.getItem(wt, ns, nid)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{id: nid, dist: idx.Config.Distance.Dist(pItem.Vector, nItem.Vector)})
	}
	qItem, err := idx.getItem(wt, ns, q.id)
	if err != nil {
		return err
	}
	candidates = append(candidates, scored{id: q.id, dist: idx.Config.Distance.Dist(pItem.Vector, qItem.Vector)})
	pruned, err := idx.robustPrune(wt, ns, pItem.Vector, candidates, cap)
	if err != nil {
		return err
	}
	ids := make([]uint32, len(pruned))
	for i, s := range pruned {
		ids[i] = s.id
	}
	return idx.setLinks(wt, ns, layer, p, newLinkSet(ids...))
}

// robustPrune implements the Sparse Neighborhood Graph / alpha-pruned
// selection: candidates are considered in ascending distance-to-query order,
// and a candidate is kept only if no already-selected neighbor is closer to
// it (scaled by alpha) than the query is (spec.md §4.3 "robust_prune").
func (idx *Index) robustPrune(txn kv.Txn, ns [2]byte, query []float32, candidates []scored, cap int) ([]scored, error) {
	sorted := make([]scored, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].dist < sorted[j].dist })

	selected := make([]scored, 0, cap)
	for _, c := range sorted {
		if len(selected) >= cap {
			break
		}
		cItem, err := idx.getItem(txn, ns, c.id)
		if err != nil {
			continue
		}
		ok := true
		for _, s := range selected {
			sItem, err := idx.getItem(txn, ns, s.id)
			if err != nil {
				continue
			}
			d := idx.Config.Distance.Dist(cItem.Vector, sItem.Vector)
			if d*idx.Config.Alpha < c.dist {
				ok = false
				break
			}
		}
		if ok {
			selected = append(selected, c)
		}
	}
	return selected, nil
}

// searchLayerSingle greedily walks to the single closest reachable item at
// layer, starting from entry (spec.md §4.3 "descend").
func (idx *Index) searchLayerSingle(txn kv.Txn, ns [2]byte, query []float32, entry uint32, layer int) (uint32, error) {
	current := entry
	curItem, err := idx.getItem(txn, ns, current)
	if err != nil {
		return entry, nil
	}
	curDist := idx.Config.Distance.Dist(query, curItem.Vector)

	for {
		links, err := idx.getLinks(txn, ns, layer, current)
		if err != nil {
			return current, err
		}
		changed := false
		for _, nid := range links.ToSlice() {
			nItem, err := idx.getItem(txn, ns, nid)
			if err != nil || nItem.Deleted {
				continue
			}
			d := idx.Config.Distance.Dist(query, nItem.Vector)
			if d < curDist {
				current, curDist, changed = nid, d, true
			}
		}
		if !changed {
			return current, nil
		}
	}
}

type candHeap struct {
	items []scored
	isMax bool
}

func (h candHeap) Len() int { return len(h.items) }
func (h candHeap) Less(i, j int) bool {
	if h.isMax {
		return h.items[i].dist > h.items[j].dist
	}
	return h.items[i].dist < h.items[j].dist
}
func (h candHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *candHeap) Push(x any)   { h.items = append(h.items, x.(scored)) }
func (h *candHeap) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

// searchLayer is the bounded beam search over one layer starting from
// entries, expanding through getLinks, and keeping the ef closest items seen
// (spec.md §4.3 "search_layer"). Soft-deleted items are skipped but still
// traversed through, matching the teacher's "don't explore tombstones but do
// follow their edges" discipline used during patch rebuilds.
func (idx *Index) searchLayer(txn kv.Txn, ns [2]byte, query []float32, entries []uint32, layer int, ef int) ([]scored, error) {
	visited := make(map[uint32]bool, ef*2)
	candidates := &candHeap{isMax: false}
	results := &candHeap{isMax: true}
	heap.Init(candidates)
	heap.Init(results)

	for _, e := range entries {
		it, err := idx.getItem(txn, ns, e)
		if err != nil {
			continue
		}
		visited[e] = true
		d := idx.Config.Distance.Dist(query, it.Vector)
		if !it.Deleted {
			heap.Push(candidates, scored{id: e, dist: d})
			heap.Push(results, scored{id: e, dist: d})
		} else {
			heap.Push(candidates, scored{id: e, dist: d})
		}
	}

	for candidates.Len() > 0 {
		closest := heap.Pop(candidates).(scored)
		if results.Len() >= ef {
			furthest := results.items[0]
			if closest.dist > furthest.dist {
				break
			}
		}
		links, err := idx.getLinks(txn, ns, layer, closest.id)
		if err != nil {
			return nil, err
		}
		for _, nid := range links.ToSlice() {
			if visited[nid] {
				continue
			}
			visited[nid] = true
			nItem, err := idx.getItem(txn, ns, nid)
			if err != nil {
				continue
			}
			d := idx.Config.Distance.Dist(query, nItem.Vector)
			if results.Len() < ef || d < results.items[0].dist {
				heap.Push(candidates, scored{id: nid, dist: d})
				if !nItem.Deleted {
					heap.Push(results, scored{id: nid, dist: d})
					if results.Len() > ef {
						heap.Pop(results)
					}
				}
			}
		}
	}

	out := make([]scored, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(scored)
	}
	return out, nil
}

func (idx *Index) firstValidEntry(txn kv.Txn, ns [2]byte, m *metadata) (uint32, bool, error) {
	for _, id := range m.EntryPoints {
		if m.ItemsBitmap.Contains(id) {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// Search returns up to k nearest items to query under label. ef, if zero,
// defaults to Config.EfSearch (spec.md §4.3 "search"). It refuses to serve a
// namespace with pending soft-deletes not yet patched out by Rebuild,
// returning ErrNeedBuild rather than risk dangling links in the beam search
// (spec.md §4.3 "NeedBuild barrier").
func (idx *Index) Search(txn kv.Txn, label string, query []float32, k int, ef int) ([]Result, error) {
	if len(query) != idx.Config.Dimensions {
		return nil, ErrInvalidVecDimension
	}
	needsRebuild, err := idx.NeedsRebuild(txn, label)
	if err != nil {
		return nil, err
	}
	if needsRebuild {
		return nil, ErrNeedBuild
	}
	ns := namespace(label)
	m, err := idx.loadMetadata(txn, label, ns)
	if err != nil {
		return nil, err
	}
	if m.ItemsBitmap.IsEmpty() {
		return nil, nil
	}
	if m.DistanceName != "" && m.DistanceName != idx.Config.Distance.Name() {
		return nil, ErrUnmatchingDistance
	}
	entry, ok, err := idx.firstValidEntry(txn, ns, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEntryPointNotFound
	}
	if ef <= 0 {
		ef = idx.Config.EfSearch
	}
	if ef < k {
		ef = k
	}

	ep := entry
	for l := m.MaxLevel; l > 0; l-- {
		ep, err = idx.searchLayerSingle(txn, ns, query, ep, l)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := idx.searchLayer(txn, ns, query, []uint32{ep}, 0, ef)
	if err != nil {
		return nil, err
	}

	// Brute-force fallback: a sparsely linked graph (small index, recent
	// inserts not yet rebuilt) may leave genuine nearest neighbors
	// unreachable by beam search alone. When the graph returned fewer
	// candidates than k and more items exist, scan the rest directly.
	if len(candidates) < k && int(m.ItemsBitmap.GetCardinality()) > len(candidates) {
		seen := make(map[uint32]bool, len(candidates))
		for _, c := range candidates {
			seen[c.id] = true
		}
		it := m.ItemsBitmap.Iterator()
		for it.HasNext() {
			id := it.Next()
			if seen[id] {
				continue
			}
			node, err := idx.getItem(txn, ns, id)
			if err != nil || node.Deleted {
				continue
			}
			candidates = append(candidates, scored{id: id, dist: idx.Config.Distance.Dist(query, node.Vector)})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		data, err := txn.Get(idMapL2GKey(ns, c.id))
		if err != nil {
			continue
		}
		var g helixid.ID
		copy(g[:], data)
		results = append(results, Result{ID: g, Score: c.dist})
	}
	return results, nil
}

// SoftDelete tombstones global's vector: it is excluded from entry-point
// selection, and Search returns ErrNeedBuild for the namespace until
// Rebuild patches its links out (spec.md §4.3 "delete is soft; rebuild is
// the only hard-delete path").
func (idx *Index) SoftDelete(wt kv.WriteTxn, label string, global helixid.ID) error {
	ns := namespace(label)
	data, err := wt.Get(idMapG2LKey(ns, global))
	if err != nil {
		return ErrVectorNotFound
	}
	localID := decodeU32V(data)

	it, err := idx.getItem(wt, ns, localID)
	if err != nil {
		return err
	}
	if it.Deleted {
		return ErrVectorAlreadyDeleted
	}
	it.Deleted = true
	if err := idx.putItem(wt, ns, it); err != nil {
		return err
	}

	m, err := idx.loadMetadata(wt, label, ns)
	if err != nil {
		return err
	}
	m.ItemsBitmap.Remove(localID)
	if err := wt.Set(updatedKey(ns, localID), []byte{1}); err != nil {
		return err
	}

	kept := m.EntryPoints[:0]
	for _, id := range m.EntryPoints {
		if id != localID {
			kept = append(kept, id)
		}
	}
	m.EntryPoints = kept
	if len(m.EntryPoints) == 0 {
		if fallback, ok := idx.pickFallbackEntry(wt, m); ok {
			m.EntryPoints = []uint32{fallback}
		}
	}
	return idx.saveMetadata(wt, ns, m)
}

func (idx *Index) pickFallbackEntry(txn kv.Txn, m *metadata) (uint32, bool) {
	it := m.ItemsBitmap.Iterator()
	if !it.HasNext() {
		return 0, false
	}
	return it.Next(), true
}

// NeedsRebuild reports whether label's index has pending soft-deletes whose
// links have not yet been patched out (spec.md §4.3 "NeedBuild barrier").
func (idx *Index) NeedsRebuild(txn kv.Txn, label string) (bool, error) {
	ns := namespace(label)
	it := txn.Iterator(updatedPrefix(ns))
	defer it.Close()
	return it.Valid(), nil
}

// Rebuild patches every surviving item's link lists to route around
// soft-deleted neighbors (FreshDiskANN-style "maybe_patch_old_links":
// deleted items' own neighborhoods are folded into each of their
// survivors' candidate sets, then re-pruned) and then hard-deletes the
// tombstoned items, clearing the pending-update barrier (spec.md §4.3
// "rebuild").
func (idx *Index) Rebuild(wt kv.WriteTxn, label string) error {
	ns := namespace(label)
	m, err := idx.loadMetadata(wt, label, ns)
	if err != nil {
		return err
	}

	toDelete := make(map[uint32]bool)
	{
		it := wt.Iterator(updatedPrefix(ns))
		prefix := updatedPrefix(ns)
		for it.Valid() {
			key := it.Key()
			id := decodeU32Bytes(key[len(prefix):])
			toDelete[id] = true
			it.Next()
		}
		it.Close()
	}
	if len(toDelete) == 0 {
		return nil
	}

	for layer := 0; layer <= m.MaxLevel; layer++ {
		if err := idx.patchLayer(wt, ns, layer, toDelete); err != nil {
			return err
		}
	}

	for id := range toDelete {
		if err := wt.Delete(itemKey(ns, id)); err != nil {
			return err
		}
		if err := wt.Delete(updatedKey(ns, id)); err != nil {
			return err
		}
		gdata, err := wt.Get(idMapL2GKey(ns, id))
		if err == nil {
			var g helixid.ID
			copy(g[:], gdata)
			_ = wt.Delete(idMapG2LKey(ns, g))
			_ = DeleteProperties(wt, g)
		}
		_ = wt.Delete(idMapL2GKey(ns, id))
		for layer := 0; layer <= m.MaxLevel; layer++ {
			_ = wt.Delete(linksKey(ns, byte(layer), id))
		}
	}

	if _, ok, _ := idx.firstValidEntry(wt, ns, m); !ok {
		if fallback, ok := idx.pickFallbackEntry(wt, m); ok {
			m.EntryPoints = []uint32{fallback}
			if it, err := idx.getItem(wt, ns, fallback); err == nil {
				m.MaxLevel = it.Level
			}
		} else {
			m.EntryPoints = nil
			m.MaxLevel = 0
		}
	}
	return idx.saveMetadata(wt, ns, m)
}

// patchLayer folds each surviving neighbor of a to-be-deleted item into
// that item's neighbors' candidate sets at layer, then robust-prunes
// (spec.md §4.3 "maybe_patch_old_links").
func (idx *Index) patchLayer(wt kv.WriteTxn, ns [2]byte, layer int, toDelete map[uint32]bool) error {
	prefix := linksPrefixForLayer(ns, byte(layer))
	type patch struct {
		id    uint32
		links *linkSet
	}
	var toPatch []patch

	it := wt.Iterator(prefix)
	for it.Valid() {
		key := it.Key()
		id := decodeU32Bytes(key[len(prefix):])
		if toDelete[id] {
			it.Next()
			continue
		}
		val, err := it.Value()
		if err != nil {
			it.Next()
			continue
		}
		links, err := decodeLinkSet(val)
		if err != nil {
			it.Next()
			continue
		}
		hasDeleted := false
		for _, nid := range links.ToSlice() {
			if toDelete[nid] {
				hasDeleted = true
				break
			}
		}
		if hasDeleted {
			toPatch = append(toPatch, patch{id: id, links: links})
		}
		it.Next()
	}
	it.Close()

	cap := idx.capForLayer(layer)
	for _, p := range toPatch {
		pItem, err := idx.getItem(wt, ns, p.id)
		if err != nil {
			continue
		}
		expanded := make(map[uint32]bool)
		for _, nid := range p.links.ToSlice() {
			if toDelete[nid] {
				delLinks, err := idx.getLinks(wt, ns, layer, nid)
				if err == nil {
					for _, dn := range delLinks.ToSlice() {
						if dn != p.id && !toDelete[dn] {
							expanded[dn] = true
						}
					}
				}
				continue
			}
			expanded[nid] = true
		}
		candidates := make([]scored, 0, len(expanded))
		for nid := range expanded {
			nItem, err := idx.getItem(wt, ns, nid)
			if err != nil {
				continue
			}
			candidates = append(candidates, scored{id: nid, dist: idx.Config.Distance.Dist(pItem.Vector, nItem.Vector)})
		}
		pruned, err := idx.robustPrune(wt, ns, pItem.Vector, candidates, cap)
		if err != nil {
			return err
		}
		ids := make([]uint32, len(pruned))
		for i, s := range pruned {
			ids[i] = s.id
		}
		if err := idx.setLinks(wt, ns, layer, p.id, newLinkSet(ids...)); err != nil {
			return err
		}
	}
	return nil
}
