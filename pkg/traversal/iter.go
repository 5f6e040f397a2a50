package traversal

// Iter is a pull iterator over Elements: each call produces the next value,
// or (zero, false, nil) at end of stream, or a non-nil error which aborts
// the traversal (spec.md §4.2 "generated on demand, never fully
// materialized unless a terminal collector is invoked").
type Iter interface {
	Next() (Element, bool, error)
}

// sliceIter replays a pre-materialized slice; used by source steps that
// must scan a whole table/index up front (a full N<Label> scan, a k-NN
// search result set) since the underlying storage/vector/bm25 APIs are
// not themselves iterator-shaped.
type sliceIter struct {
	items []Element
	pos   int
}

func fromSlice(items []Element) *sliceIter { return &sliceIter{items: items} }

func (s *sliceIter) Next() (Element, bool, error) {
	if s.pos >= len(s.items) {
		return Element{}, false, nil
	}
	e := s.items[s.pos]
	s.pos++
	return e, true, nil
}

// funcIter adapts a plain function to Iter.
type funcIter func() (Element, bool, error)

func (f funcIter) Next() (Element, bool, error) { return f() }

// Traversal is a chainable pipeline: each step method wraps the current
// iterator in a decorator and returns a new *Traversal, so nothing upstream
// runs until a terminal collector pulls from the tail (spec.md §4.2
// "Steps are composed left-to-right").
type Traversal struct {
	iter Iter
	err  error
}

func newTraversal(iter Iter) *Traversal { return &Traversal{iter: iter} }

func fail(err error) *Traversal { return &Traversal{iter: fromSlice(nil), err: err} }

// wrap chains a new Iter onto t, short-circuiting if t already failed.
func (t *Traversal) wrap(next func(Iter) Iter) *Traversal {
	if t.err != nil {
		return t
	}
	return &Traversal{iter: next(t.iter), err: nil}
}

// Collect pulls every remaining element (spec.md §4.2 terminal collector).
func (t *Traversal) Collect() ([]Element, error) {
	if t.err != nil {
		return nil, t.err
	}
	var out []Element
	for {
		e, ok, err := t.iter.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, e)
	}
}

// Err returns any error recorded by a step constructor before iteration
// began (e.g. a malformed source). Collect/First/Count surface errors that
// occur during iteration directly.
func (t *Traversal) Err() error { return t.err }

// FromElements starts a new chain over a pre-materialized element set. It
// lets a caller outside this package (pkg/emitter, turning a First/Count
// terminal result back into a chainable singleton stream) re-enter the
// traversal pipeline without reaching into unexported iterator internals.
func FromElements(elems ...Element) *Traversal {
	return newTraversal(fromSlice(elems))
}
