package emitter

import (
	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/storage"
	"github.com/helixdb/helix-go/pkg/traversal"
)

// compilePredicate lowers a Where step's argument into a pkg/traversal
// filter predicate (spec.md §4.2 "Where(predicate)"). traversal.Where takes
// a plain bool-returning function with no error return, so an operand that
// fails to resolve (unknown field on this element, type mismatch) makes
// the predicate reject that element rather than abort the traversal.
func (e *env) compilePredicate(expr ast.Expr) (func(traversal.Element) bool, error) {
	cmp, ok := expr.(*ast.CompareExpr)
	if !ok {
		operand, err := e.compileOperand(expr)
		if err != nil {
			return nil, err
		}
		return func(el traversal.Element) bool {
			v, ok := operand(el)
			return ok && v.Kind == storage.KindBool && v.Bool
		}, nil
	}
	left, err := e.compileOperand(cmp.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.compileOperand(cmp.Right)
	if err != nil {
		return nil, err
	}
	op := cmp.Op
	return func(el traversal.Element) bool {
		lv, lok := left(el)
		rv, rok := right(el)
		if !lok || !rok {
			return false
		}
		return compareValues(lv, rv, op)
	}, nil
}

// compileOperand resolves one predicate operand per flowing element: a
// literal is a constant, a bound scope variable (a parameter or an earlier
// `id <- expr` assignment) is resolved once up front, and a bare name
// falls back to a field lookup on the current element — the same
// scope-then-field resolution pkg/helixql/analyzer's checkPredicateOperand
// validates ahead of time.
func (e *env) compileOperand(expr ast.Expr) (func(traversal.Element) (storage.Value, bool), error) {
	switch ex := expr.(type) {
	case *ast.Literal:
		v := literalValue(ex)
		return func(traversal.Element) (storage.Value, bool) { return v, true }, nil
	case *ast.Ident:
		if bound, ok := e.scope[ex.Name]; ok {
			v, err := toValue(bound)
			if err != nil {
				return nil, err
			}
			return func(traversal.Element) (storage.Value, bool) { return v, true }, nil
		}
		name := ex.Name
		return func(el traversal.Element) (storage.Value, bool) { return el.Property(name) }, nil
	default:
		v, err := e.evalToValue(expr)
		if err != nil {
			return nil, err
		}
		return func(traversal.Element) (storage.Value, bool) { return v, true }, nil
	}
}

// compareValues evaluates a comparison op over two storage.Values,
// resolving to false on a type mismatch rather than erroring, since
// compilePredicate's caller (traversal.Where) cannot propagate an error
// mid-stream.
func compareValues(l, r storage.Value, op string) bool {
	if l.Kind == storage.KindString && r.Kind == storage.KindString {
		switch op {
		case "==":
			return l.Str == r.Str
		case "!=":
			return l.Str != r.Str
		case "<":
			return l.Str < r.Str
		case "<=":
			return l.Str <= r.Str
		case ">":
			return l.Str > r.Str
		case ">=":
			return l.Str >= r.Str
		}
		return false
	}
	if l.Kind == storage.KindBool && r.Kind == storage.KindBool {
		switch op {
		case "==":
			return l.Bool == r.Bool
		case "!=":
			return l.Bool != r.Bool
		}
		return false
	}
	lNum, lok := numeric(l)
	rNum, rok := numeric(r)
	if !lok || !rok {
		return false
	}
	switch op {
	case "==":
		return lNum == rNum
	case "!=":
		return lNum != rNum
	case "<":
		return lNum < rNum
	case "<=":
		return lNum <= rNum
	case ">":
		return lNum > rNum
	case ">=":
		return lNum >= rNum
	}
	return false
}

// numeric widens any of the numeric Value kinds to a float64 for
// comparison, mirroring pkg/traversal/filter.go's Dijkstra-weight helper of
// the same name (128-bit integers are excluded there too: comparisons over
// I128/U128 are not yet supported).
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
