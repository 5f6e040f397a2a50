package traversal

import "github.com/helixdb/helix-go/pkg/storage"

// Field is one entry of an object-literal projection (spec.md §4.2
// "{field: expr, …}"). Exactly one of Expr/Spread/Exclude is set:
//   - Expr projects a single computed value under Name.
//   - Spread (Name == "…") merges every property of the current element in.
//   - Exclude lists names to drop after a Spread.
type Field struct {
	Name    string
	Expr    func(Element) storage.Value
	Spread  bool
	Exclude []string
}

// PropertyField projects a plain property read under its own name, the
// common case of "{name: name}".
func PropertyField(name string) Field {
	return Field{Name: name, Expr: func(e Element) storage.Value {
		v, _ := e.Property(name)
		return v
	}}
}

// SpreadField merges every property of the source element, per spec.md
// §4.2 "…spread". excluding names it in turn.
func SpreadField(excluding ...string) Field {
	return Field{Spread: true, Exclude: excluding}
}

// Project replaces every element with a KindValue map built from fields,
// implementing object-literal return clauses (spec.md §4.2 "object
// projection, exclusion (!{field,…}), spread (…spread), nested
// projections"). Nested projections compose by an Expr that itself calls
// Project's building block, projectFields, on a sub-element.
func (t *Traversal) Project(fields ...Field) *Traversal {
	return t.Map(func(e Element) Element {
		return valueElem(storage.Value{Kind: storage.KindMap, Map: projectFields(e, fields)})
	})
}

func projectFields(e Element, fields []Field) map[string]storage.Value {
	out := make(map[string]storage.Value)
	for _, f := range fields {
		if f.Spread {
			for _, name := range spreadNames(e) {
				out[name], _ = e.Property(name)
			}
			for _, ex := range f.Exclude {
				delete(out, ex)
			}
			continue
		}
		out[f.Name] = f.Expr(e)
	}
	return out
}

func spreadNames(e Element) []string {
	switch e.Kind {
	case KindNode:
		return e.Node.Properties.Names()
	case KindEdge:
		return e.Edge.Properties.Names()
	case KindValue:
		if e.Value.Kind == storage.KindMap {
			names := make([]string, 0, len(e.Value.Map))
			for k := range e.Value.Map {
				names = append(names, k)
			}
			return names
		}
	}
	return nil
}

// Exists is a subtraversal predicate: it returns true if running sub
// against the current element (via seed) produces at least one element
// (spec.md §4.2 "EXISTS(subtraversal)"). seed turns the current element
// into the subtraversal's starting point, e.g. wrapping it in N/E's id
// lookup; sub is applied to that seed and probed with First.
func Exists(e Element, seed func(Element) *Traversal) (bool, error) {
	sub := seed(e)
	_, ok, err := sub.First()
	return ok, err
}
