// Package analyzer performs HelixQL's static analysis pass (spec.md §4.5
// "Static analyzer"): it builds a symbol table of declared node/edge/vector
// types, walks every query checking scope/type rules, and emits numbered
// diagnostics instead of failing on the first error — the same
// emit-don't-throw idiom the original's analyzer/utils.rs generate_error!
// macro encodes (original_source/helix-db/helixc/analyzer/utils.rs), ported
// to a plain Go slice-append since Go has no macro-level error injection.
package analyzer

import (
	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/herrors"
)

// Diagnostic is one numbered analyzer finding (spec.md §4.5 "Emits numbered
// diagnostics (each with code, severity, source span, message, hint)").
// It is a type alias for herrors.Diagnostic so a CompileError built from a
// Program's diagnostics (pkg/engine's compile path) needs no conversion.
type Diagnostic = herrors.Diagnostic

func toHerrorsSpan(s ast.Span) herrors.Span {
	return herrors.Span{
		Line:   s.Start.Line,
		Column: s.Start.Column,
		Offset: s.Start.Offset,
		Length: s.End.Offset - s.Start.Offset,
	}
}

// Type is HelixQL's 4-valued classification of an expression's shape (spec.md
// §4.5), with Anonymous layered on as a transparent wrapper over any of the
// four.
type Type int

const (
	TypeItem Type = iota
	TypeItems
	TypeScalar
	TypeAggregate
	TypeAnonymous
)

func (t Type) String() string {
	switch t {
	case TypeItem:
		return "Item"
	case TypeItems:
		return "Items"
	case TypeScalar:
		return "Scalar"
	case TypeAggregate:
		return "Aggregate"
	case TypeAnonymous:
		return "Anonymous"
	default:
		return "Unknown"
	}
}

// Binding is a scoped identifier's resolved type plus, for Item/Items
// bindings, the schema label it ranges over (used to resolve property
// accesses against the label's field map).
type Binding struct {
	Type  Type
	Label string
}

var specialProperties = map[string]bool{
	"id": true, "label": true, "from_node": true, "to_node": true,
	"score": true, "data": true,
}
