package analyzer

import (
	"fmt"

	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/herrors"
)

// legalSteps is the flat set of traversal-step names the analyzer accepts.
// A step is checked by name only: whether it is legal against the element
// type the previous step produces is not checked. Property-access steps
// ({name}, !{field}) are checked separately.
var legalSteps = map[string]bool{
	"Out": true, "In": true, "OutE": true, "InE": true, "FromN": true, "ToN": true,
	"FromV": true, "ToV": true,
	"Mutual": true, "ShortestPath": true, "Where": true, "Range": true, "First": true,
	"Count": true, "Dedup": true, "Map": true, "OrderByField": true, "GroupBy": true,
	"AggregateBy": true, "Project": true,
}

// Analyzer runs spec.md §4.5's static analysis pass over a parsed Program.
type Analyzer struct {
	st    *SymbolTable
	diags []Diagnostic
}

// New builds an Analyzer with prog's schema declarations loaded into the
// symbol table.
func New(prog *ast.Program) *Analyzer {
	return &Analyzer{st: BuildSymbolTable(prog)}
}

// SymbolTable exposes the analyzer's built symbol table (used by
// pkg/helixql/ir to resolve schema descriptors without re-walking decls).
func (a *Analyzer) SymbolTable() *SymbolTable { return a.st }

// Check analyzes every Query declaration in prog and returns all
// diagnostics collected (spec.md §4.5: diagnostics, not exceptions).
func (a *Analyzer) Check(prog *ast.Program) []Diagnostic {
	for _, d := range prog.Decls {
		if q, ok := d.(*ast.Query); ok {
			a.checkQuery(q)
		}
	}
	return a.diags
}

func (a *Analyzer) errorf(code string, span ast.Span, hint, format string, args ...any) {
	a.diags = append(a.diags, Diagnostic{
		Code: code, Severity: herrors.SeverityError, Span: toHerrorsSpan(span),
		Message: fmt.Sprintf(format, args...), Hint: hint,
	})
}

func (a *Analyzer) checkQuery(q *ast.Query) {
	scope := map[string]Binding{}
	for _, p := range q.Params {
		scope[p.Name] = Binding{Type: TypeScalar, Label: p.Type.Name}
	}
	for _, s := range q.Statements {
		a.checkStmt(q, s, scope)
	}
	if q.Return != nil {
		a.checkExpr(q, q.Return, scope)
	}
}

func (a *Analyzer) checkStmt(q *ast.Query, s ast.Stmt, scope map[string]Binding) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		if _, exists := scope[st.Name]; exists {
			a.errorf("E201", st.Span, "choose a new name for this binding",
				"reassignment of declared variable %q is not allowed", st.Name)
			return
		}
		typ, label := a.checkExpr(q, st.Expr, scope)
		scope[st.Name] = Binding{Type: typ, Label: label}
	case *ast.DropStmt:
		a.checkExpr(q, st.Expr, scope)
	case *ast.ExprStmt:
		a.checkExpr(q, st.Expr, scope)
	case *ast.ForStmt:
		srcType, srcLabel := a.checkExpr(q, st.Source, scope)
		inner := cloneScope(scope)
		elemType := TypeItem
		if srcType == TypeAggregate {
			elemType = TypeAggregate
		}
		for _, b := range st.Bindings {
			inner[b] = Binding{Type: elemType, Label: srcLabel}
		}
		for _, body := range st.Body {
			a.checkStmt(q, body, inner)
		}
	}
}

// checkExpr returns the expression's classified Type and, where
// meaningful, the schema label its elements range over.
func (a *Analyzer) checkExpr(q *ast.Query, e ast.Expr, scope map[string]Binding) (Type, string) {
	switch ex := e.(type) {
	case *ast.Ident:
		if isReservedIdentifier(ex.Name) {
			a.errorf("E105", ex.Span, "pick a non-reserved name", "%q is a reserved identifier and cannot be used as a bound name", ex.Name)
			return TypeScalar, ""
		}
		b, ok := scope[ex.Name]
		if !ok {
			a.errorf("E301", ex.Span, "bind this name before use, or check for a typo", "identifier %q is not in scope", ex.Name)
			return TypeScalar, ""
		}
		return b.Type, b.Label
	case *ast.Literal:
		return TypeScalar, ""
	case *ast.SourceExpr:
		return a.checkSource(q, ex, scope)
	case *ast.ChainExpr:
		typ, label := a.checkExpr(q, ex.Source, scope)
		for _, step := range ex.Steps {
			typ, label = a.checkStep(q, step, typ, label, scope)
		}
		return typ, label
	case *ast.AnonExpr:
		typ, label := TypeAnonymous, ""
		for _, step := range ex.Chain {
			typ, label = a.checkStep(q, step, typ, label, scope)
		}
		return typ, label
	case *ast.ObjectExpr:
		for _, f := range ex.Fields {
			a.checkExpr(q, f.Source, scope)
		}
		return TypeScalar, ""
	case *ast.CompareExpr:
		a.checkExpr(q, ex.Left, scope)
		a.checkExpr(q, ex.Right, scope)
		return TypeScalar, ""
	default:
		return TypeScalar, ""
	}
}

// checkPredicate validates a Where step's single argument. A bare
// identifier is resolved against curLabel's schema fields before falling
// back to the normal scope lookup, since `Where(age > 18)` names a field
// on the flowing element rather than a bound variable (pkg/emitter's
// compileOperand performs the matching scope-then-field resolution at
// execution time).
func (a *Analyzer) checkPredicate(q *ast.Query, e ast.Expr, curLabel string, scope map[string]Binding) {
	if cmp, ok := e.(*ast.CompareExpr); ok {
		a.checkPredicateOperand(q, cmp.Left, curLabel, scope)
		a.checkPredicateOperand(q, cmp.Right, curLabel, scope)
		return
	}
	a.checkPredicateOperand(q, e, curLabel, scope)
}

func (a *Analyzer) checkPredicateOperand(q *ast.Query, e ast.Expr, curLabel string, scope map[string]Binding) {
	if id, ok := e.(*ast.Ident); ok {
		if _, bound := scope[id.Name]; bound {
			return
		}
		if a.st.HasField(curLabel, id.Name) {
			return
		}
		a.errorf("E220", id.Span, "check the schema's declared fields or bind this name first",
			"unknown field or identifier %q in predicate", id.Name)
		return
	}
	a.checkExpr(q, e, scope)
}

func (a *Analyzer) checkSource(q *ast.Query, ex *ast.SourceExpr, scope map[string]Binding) (Type, string) {
	if ex.Kind != "AddN" && ex.Kind != "AddE" && ex.Kind != "AddV" {
		if _, ok := a.st.Schemas[ex.Label]; !ok {
			a.errorf("E210", ex.Span, "declare this schema before referencing it", "unknown schema %q referenced by %s", ex.Label, ex.Kind)
		}
	}
	for _, arg := range ex.Args {
		a.checkExpr(q, arg, scope)
	}
	for _, f := range ex.Props {
		a.checkExpr(q, f.Source, scope)
	}
	switch ex.Kind {
	case "N", "E", "V", "SearchV", "SearchBM25", "HybridSearch", "AddN", "AddE", "AddV":
		return TypeItems, ex.Label
	default:
		return TypeItems, ex.Label
	}
}

func (a *Analyzer) checkStep(q *ast.Query, step ast.StepExpr, curType Type, curLabel string, scope map[string]Binding) (Type, string) {
	switch {
	case step.Property != "":
		if !a.st.HasField(curLabel, step.Property) {
			a.errorf("E220", step.Span, "check the schema's declared fields or use one of id|label|from_node|to_node|score|data",
				"unknown field %q on type %s", step.Property, curLabel)
		}
		return TypeScalar, curLabel
	case step.Object != nil:
		for _, f := range step.Object {
			a.checkExpr(q, f.Source, scope)
		}
		return TypeScalar, curLabel
	case step.Exclude != nil:
		for _, f := range step.Exclude {
			if !a.st.HasField(curLabel, f) {
				a.errorf("E220", step.Span, "check the schema's declared fields",
					"unknown field %q excluded from type %s", f, curLabel)
			}
		}
		return curType, curLabel
	default:
		if !legalSteps[step.Name] {
			a.errorf("E230", step.Span, "see spec.md §4.2 for the traversal-step catalogue",
				"step %q is not a recognized traversal operation", step.Name)
		}
		if step.Name == "Where" {
			if len(step.Args) > 0 {
				a.checkPredicate(q, step.Args[0], curLabel, scope)
			}
		} else {
			for i, arg := range step.Args {
				if isLabelOrFieldArg(step.Name, i) {
					if lit, ok := arg.(*ast.Literal); ok && lit.Kind == ast.LitString {
						continue
					}
					if _, ok := arg.(*ast.Ident); ok {
						continue // bare label/field name, not a scope reference (pkg/emitter's stringArgFrom accepts both forms)
					}
				}
				a.checkExpr(q, arg, scope)
			}
		}
		switch step.Name {
		case "Count":
			return TypeScalar, curLabel
		case "GroupBy", "AggregateBy":
			return TypeAggregate, curLabel
		case "First":
			return TypeItem, curLabel
		default:
			return curType, curLabel
		}
	}
}

// isLabelOrFieldArg reports whether step argument i names a label or schema
// field rather than referencing a bound scope variable, mirroring which
// positions pkg/emitter's applyNamedStep resolves via stringArgFrom instead
// of a scope-bound eval.
func isLabelOrFieldArg(step string, i int) bool {
	switch step {
	case "Out", "In", "OutE", "InE", "Mutual":
		return i == 0
	case "ShortestPath":
		return i == 0 || i == 2
	case "OrderByField":
		return i == 0
	case "GroupBy", "AggregateBy":
		return true
	default:
		return false
	}
}

func cloneScope(scope map[string]Binding) map[string]Binding {
	out := make(map[string]Binding, len(scope)+1)
	for k, v := range scope {
		out[k] = v
	}
	return out
}

func isReservedIdentifier(name string) bool {
	switch name {
	case "true", "false", "NONE", "String", "Boolean", "F32", "F64",
		"I8", "I16", "I32", "I64", "I128", "U8", "U16", "U32", "U64", "U128", "Uuid", "Date":
		return true
	}
	return false
}
