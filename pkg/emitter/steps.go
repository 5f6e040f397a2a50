package emitter

import (
	"fmt"

	"github.com/helixdb/helix-go/pkg/helixid"
	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/storage"
	"github.com/helixdb/helix-go/pkg/traversal"
	"github.com/helixdb/helix-go/pkg/vector"
)

// evalSource lowers a SourceExpr (N/E/V/SearchV/SearchBM25/AddN/AddE/AddV)
// to the matching pkg/traversal source-step call.
func (e *env) evalSource(ex *ast.SourceExpr) (*traversal.Traversal, error) {
	switch ex.Kind {
	case "N":
		ids, err := e.idArgs(ex.Args)
		if err != nil {
			return nil, err
		}
		return traversal.N(e.tx, ex.Label, ids...), nil
	case "E":
		ids, err := e.idArgs(ex.Args)
		if err != nil {
			return nil, err
		}
		return traversal.E(e.tx, ids...), nil
	case "V":
		idx, err := e.vectorIndex(ex.Label)
		if err != nil {
			return nil, err
		}
		return traversal.V(e.tx, idx, ex.Label), nil
	case "SearchV":
		idx, err := e.vectorIndex(ex.Label)
		if err != nil {
			return nil, err
		}
		if len(ex.Args) < 2 {
			return nil, fmt.Errorf("emitter: SearchV requires (query_vec, k)")
		}
		vec, err := e.vectorArg(ex.Args[0])
		if err != nil {
			return nil, err
		}
		k, err := e.intArg(ex.Args[1])
		if err != nil {
			return nil, err
		}
		return traversal.SearchV(e.tx, idx, ex.Label, vec, k), nil
	case "HybridSearch":
		idx, err := e.vectorIndex(ex.Label)
		if err != nil {
			return nil, err
		}
		if e.idx == nil || e.idx.BM25 == nil {
			return nil, fmt.Errorf("emitter: no BM25 index configured")
		}
		if len(ex.Args) < 4 {
			return nil, fmt.Errorf("emitter: HybridSearch requires (text, query_vec, alpha, k)")
		}
		text, err := e.stringArg(ex.Args[0])
		if err != nil {
			return nil, err
		}
		vec, err := e.vectorArg(ex.Args[1])
		if err != nil {
			return nil, err
		}
		alpha, err := e.floatArg(ex.Args[2])
		if err != nil {
			return nil, err
		}
		k, err := e.intArg(ex.Args[3])
		if err != nil {
			return nil, err
		}
		return traversal.HybridSearch(e.tx, idx, e.idx.BM25, ex.Label, text, vec, alpha, k), nil
	case "SearchBM25":
		if e.idx == nil || e.idx.BM25 == nil {
			return nil, fmt.Errorf("emitter: no BM25 index configured")
		}
		if len(ex.Args) < 2 {
			return nil, fmt.Errorf("emitter: SearchBM25 requires (query, k)")
		}
		query, err := e.stringArg(ex.Args[0])
		if err != nil {
			return nil, err
		}
		k, err := e.intArg(ex.Args[1])
		if err != nil {
			return nil, err
		}
		return traversal.SearchBM25(e.tx, e.idx.BM25, query, k), nil
	case "AddN":
		props, err := e.evalProps(ex.Props)
		if err != nil {
			return nil, err
		}
		var secondary []string
		if e.idx != nil {
			secondary = e.idx.NodeIndexes[ex.Label]
		}
		return traversal.AddN(e.tx, ex.Label, props, secondary...), nil
	case "AddE":
		if len(ex.Args) < 2 {
			return nil, fmt.Errorf("emitter: AddE requires (from, to[, is_to_vector])")
		}
		from, err := e.idArg(ex.Args[0])
		if err != nil {
			return nil, err
		}
		to, err := e.idArg(ex.Args[1])
		if err != nil {
			return nil, err
		}
		toVector := false
		if len(ex.Args) > 2 {
			v, err := e.evalToValue(ex.Args[2])
			if err != nil {
				return nil, err
			}
			toVector = v.Kind == storage.KindBool && v.Bool
		}
		props, err := e.evalProps(ex.Props)
		if err != nil {
			return nil, err
		}
		return traversal.AddE(e.tx, ex.Label, from, to, props, toVector), nil
	case "AddV":
		if len(ex.Args) < 1 {
			return nil, fmt.Errorf("emitter: AddV requires (vector)")
		}
		vec, err := e.vectorArg(ex.Args[0])
		if err != nil {
			return nil, err
		}
		idx, err := e.vectorIndex(ex.Label)
		if err != nil {
			return nil, err
		}
		props, err := e.evalProps(ex.Props)
		if err != nil {
			return nil, err
		}
		return traversal.AddV(e.tx, idx, ex.Label, vec, props), nil
	default:
		return nil, fmt.Errorf("emitter: unknown source kind %q", ex.Kind)
	}
}

func (e *env) idArgs(args []ast.Expr) ([]helixid.ID, error) {
	ids := make([]helixid.ID, 0, len(args))
	for _, a := range args {
		id, err := e.idArg(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *env) vectorIndex(label string) (*vector.Index, error) {
	if e.idx == nil || e.idx.Vectors == nil {
		return nil, fmt.Errorf("emitter: no vector index configured for label %q", label)
	}
	idx, ok := e.idx.Vectors[label]
	if !ok {
		return nil, fmt.Errorf("emitter: no vector index configured for label %q", label)
	}
	return idx, nil
}

// vectorIndexes exposes every configured label -> vector.Index, used by
// FromV/ToV to resolve an edge endpoint id against whichever namespace
// actually holds it.
func (e *env) vectorIndexes() map[string]*vector.Index {
	if e.idx == nil {
		return nil
	}
	return e.idx.Vectors
}

func (e *env) vectorArg(expr ast.Expr) ([]float32, error) {
	v, err := e.eval(expr)
	if err != nil {
		return nil, err
	}
	val, err := toValue(v)
	if err != nil {
		return nil, err
	}
	if val.Kind != storage.KindArray {
		return nil, fmt.Errorf("emitter: expected a vector literal")
	}
	out := make([]float32, len(val.Array))
	for i, c := range val.Array {
		switch c.Kind {
		case storage.KindF64:
			out[i] = float32(c.F64)
		case storage.KindI64:
			out[i] = float32(c.Int)
		}
	}
	return out, nil
}

func (e *env) evalProps(fields []ast.MigrationField) (*storage.PropertyMap, error) {
	props := storage.NewPropertyMap()
	for _, f := range fields {
		v, err := e.evalToValue(f.Source)
		if err != nil {
			return nil, err
		}
		props.Set(f.Field, v)
	}
	return props, nil
}

// evalChain applies a ChainExpr's steps in order over its source,
// implementing spec.md §4.2's step catalogue against pkg/traversal.
func (e *env) evalChain(ex *ast.ChainExpr) (*traversal.Traversal, error) {
	tr, err := e.evalTraversal(ex.Source)
	if err != nil {
		return nil, err
	}
	for _, step := range ex.Steps {
		tr, err = e.applyStep(tr, step)
		if err != nil {
			return nil, err
		}
	}
	return tr, nil
}

func (e *env) applyStep(tr *traversal.Traversal, step ast.StepExpr) (*traversal.Traversal, error) {
	switch {
	case step.Property != "":
		name := step.Property
		return tr.Project(traversal.PropertyField(name)), nil
	case step.Object != nil:
		fields := make([]traversal.Field, 0, len(step.Object))
		for _, f := range step.Object {
			f := f
			fields = append(fields, traversal.Field{Name: f.Field, Expr: func(el traversal.Element) storage.Value {
				v, _ := el.Property(f.Field)
				return v
			}})
		}
		return tr.Project(fields...), nil
	case step.Exclude != nil:
		return tr.Project(traversal.SpreadField(step.Exclude...)), nil
	default:
		return e.applyNamedStep(tr, step)
	}
}

func (e *env) applyNamedStep(tr *traversal.Traversal, step ast.StepExpr) (*traversal.Traversal, error) {
	arg := func(i int) (ast.Expr, bool) {
		if i < len(step.Args) {
			return step.Args[i], true
		}
		return nil, false
	}
	switch step.Name {
	case "Out":
		label, err := e.labelArg(step, 0)
		if err != nil {
			return nil, err
		}
		return tr.Out(e.tx, label), nil
	case "In":
		label, err := e.labelArg(step, 0)
		if err != nil {
			return nil, err
		}
		return tr.In(e.tx, label), nil
	case "OutE":
		label, err := e.labelArg(step, 0)
		if err != nil {
			return nil, err
		}
		return tr.OutE(e.tx, label), nil
	case "InE":
		label, err := e.labelArg(step, 0)
		if err != nil {
			return nil, err
		}
		return tr.InE(e.tx, label), nil
	case "FromN":
		return tr.FromN(e.tx), nil
	case "ToN":
		return tr.ToN(e.tx), nil
	case "FromV":
		return tr.FromV(e.tx, e.vectorIndexes()), nil
	case "ToV":
		return tr.ToV(e.tx, e.vectorIndexes()), nil
	case "Mutual":
		label, err := e.labelArg(step, 0)
		if err != nil {
			return nil, err
		}
		return tr.Mutual(e.tx, label), nil
	case "ShortestPath":
		if len(step.Args) < 2 {
			return nil, fmt.Errorf("emitter: ShortestPath requires (label, to[, weight])")
		}
		label, err := e.stringArgFrom(step.Args[0])
		if err != nil {
			return nil, err
		}
		to, err := e.idArg(step.Args[1])
		if err != nil {
			return nil, err
		}
		algo := traversal.BFS
		weight := ""
		if a, ok := arg(2); ok {
			weight, _ = e.stringArgFrom(a)
			algo = traversal.Dijkstra
		}
		return tr.ShortestPath(e.tx, label, to, algo, weight), nil
	case "Where":
		if len(step.Args) == 0 {
			return tr, nil
		}
		pred, err := e.compilePredicate(step.Args[0])
		if err != nil {
			return nil, err
		}
		return tr.Where(pred), nil
	case "Range":
		start, err := e.intArgFrom(step.Args, 0)
		if err != nil {
			return nil, err
		}
		end, err := e.intArgFrom(step.Args, 1)
		if err != nil {
			return nil, err
		}
		return tr.Range(start, end), nil
	case "First":
		el, ok, err := tr.First()
		if err != nil {
			return nil, err
		}
		if !ok {
			return traversal.FromElements(), nil
		}
		return traversal.FromElements(el), nil
	case "Count":
		n, err := tr.Count()
		if err != nil {
			return nil, err
		}
		return traversal.FromElements(traversal.Element{Kind: traversal.KindCount, Value: storage.I64Value(n)}), nil
	case "Dedup":
		return tr.Dedup(), nil
	case "OrderByField":
		prop, err := e.stringArgFrom(step.Args[0])
		if err != nil {
			return nil, err
		}
		desc := false
		if a, ok := arg(1); ok {
			v, err := e.eval(a)
			if err != nil {
				return nil, err
			}
			sv, _ := toValue(v)
			desc = sv.Bool
		}
		return tr.OrderByField(prop, desc), nil
	case "GroupBy":
		props, err := e.stringArgsFrom(step.Args)
		if err != nil {
			return nil, err
		}
		return tr.GroupBy(props...), nil
	case "AggregateBy":
		props, err := e.stringArgsFrom(step.Args)
		if err != nil {
			return nil, err
		}
		return tr.AggregateBy(props...), nil
	default:
		return nil, fmt.Errorf("emitter: unsupported step %q", step.Name)
	}
}

func (e *env) labelArg(step ast.StepExpr, i int) (string, error) {
	if i >= len(step.Args) {
		return "", fmt.Errorf("emitter: step %q missing label argument", step.Name)
	}
	return e.stringArgFrom(step.Args[i])
}

func (e *env) stringArgFrom(expr ast.Expr) (string, error) {
	if lit, ok := expr.(*ast.Literal); ok && lit.Kind == ast.LitString {
		return lit.Str, nil
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name, nil
	}
	return e.stringArg(expr)
}

func (e *env) stringArgsFrom(exprs []ast.Expr) ([]string, error) {
	out := make([]string, 0, len(exprs))
	for _, a := range exprs {
		s, err := e.stringArgFrom(a)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (e *env) intArgFrom(exprs []ast.Expr, i int) (int, error) {
	if i >= len(exprs) {
		return 0, fmt.Errorf("emitter: missing integer argument at position %d", i)
	}
	return e.intArg(exprs[i])
}
