package traversal

import (
	"sort"

	"github.com/helixdb/helix-go/pkg/storage"
)

// Where keeps only elements for which pred returns true (spec.md §4.2
// "Where(predicate)"). pred sees a partially-materialized element, so a
// predicate over a Path or projection Object works the same as one over a
// plain Node.
func (t *Traversal) Where(pred func(Element) bool) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				if pred(e) {
					return e, true, nil
				}
			}
		})
	})
}

// Range keeps elements whose 0-based position falls in [start, end) (spec.md
// §4.2 "Range(start, end)"). A negative or zero end means "no upper bound".
func (t *Traversal) Range(start, end int) *Traversal {
	return t.wrap(func(in Iter) Iter {
		i := 0
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				pos := i
				i++
				if pos < start {
					continue
				}
				if end > 0 && pos >= end {
					return Element{}, false, nil
				}
				return e, true, nil
			}
		})
	})
}

// First returns the single next element, or ok=false if the stream is empty
// (spec.md §4.2 terminal collector "First").
func (t *Traversal) First() (Element, bool, error) {
	if t.err != nil {
		return Element{}, false, t.err
	}
	return t.iter.Next()
}

// Count materializes the stream and reports how many elements it produced
// (spec.md §4.2 terminal collector "Count").
func (t *Traversal) Count() (int64, error) {
	items, err := t.Collect()
	return int64(len(items)), err
}

// Dedup removes elements whose id (spec.md §4.2 "by id") has already been
// seen; elements without an id (Value/Path/Aggregate/Group) always pass
// through since they have nothing to dedup against.
func (t *Traversal) Dedup() *Traversal {
	return t.wrap(func(in Iter) Iter {
		seen := make(map[[16]byte]bool)
		return funcIter(func() (Element, bool, error) {
			for {
				e, ok, err := in.Next()
				if err != nil || !ok {
					return Element{}, ok, err
				}
				id, has := e.ID()
				if !has {
					return e, true, nil
				}
				if seen[id] {
					continue
				}
				seen[id] = true
				return e, true, nil
			}
		})
	})
}

// Map applies a projection to every element, replacing it with whatever
// project returns (spec.md §4.2 "Map(projection)"). Used by the emitter to
// implement object-literal return clauses without a bespoke step type.
func (t *Traversal) Map(project func(Element) Element) *Traversal {
	return t.wrap(func(in Iter) Iter {
		return funcIter(func() (Element, bool, error) {
			e, ok, err := in.Next()
			if err != nil || !ok {
				return Element{}, ok, err
			}
			return project(e), true, nil
		})
	})
}

// OrderByField sorts the (fully materialized) stream by a named property,
// ascending unless desc is true (spec.md §4.2 "OrderByAsc/OrderByDesc"). The
// property is resolved through Element.Property, so it works for node/edge
// fields as well as the score/data map fields SearchV, SearchBM25 and
// HybridSearch attach to their Value elements.
func (t *Traversal) OrderByField(property string, desc bool) *Traversal {
	if t.err != nil {
		return t
	}
	items, err := t.Collect()
	if err != nil {
		return fail(err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		vi, _ := items[i].Property(property)
		vj, _ := items[j].Property(property)
		cmp := compareValues(vi, vj)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	return newTraversal(fromSlice(items))
}

// compareValues orders two scalar Values, treating numeric kinds
// numerically and everything else lexically by string form. Equal or
// incomparable values report 0, which keeps SliceStable's relative order.
func compareValues(a, b storage.Value) int {
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.Str, b.Str
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func numeric(v storage.Value) (float64, bool) {
	switch v.Kind {
	case storage.KindF32:
		return float64(v.F32), true
	case storage.KindF64:
		return v.F64, true
	case storage.KindI8, storage.KindI16, storage.KindI32, storage.KindI64:
		return float64(v.Int), true
	case storage.KindU8, storage.KindU16, storage.KindU32, storage.KindU64:
		return float64(v.Uint), true
	default:
		return 0, false
	}
}
