// Package ast defines HelixQL's parse tree (spec.md §4.5) and the
// hand-written recursive-descent parser that builds it from a
// pkg/helixql/lexer token stream. The marker-interface style (Decl,
// Stmt, Expr each a tagged interface implemented by concrete node
// types) follows the teacher's pkg/cypher/parser.go Clause/Expression
// shape; the parser itself is new, since HelixQL's traversal-chain
// grammar (`::step`, `::{...}`, `::!{...}`, `_::...`) has no Cypher
// analogue to adapt.
package ast

import "github.com/helixdb/helix-go/pkg/helixql/lexer"

// Span is the source range a node occupies, carried through from lexer.Span
// (spec.md §4.5 "Source positions ... attached for diagnostics").
type Span = lexer.Span

// Decl is a top-level declaration: a schema, a query, or a migration.
type Decl interface{ declMarker() }

// Program is a parsed HelixQL source file.
type Program struct {
	Decls []Decl
}

// FieldType is a HelixQL scalar/composite type name.
type FieldType struct {
	Name     string // String, Boolean, I8..I128, U8..U128, F32, F64, Uuid, Date
	Elem     *FieldType
	IsArray  bool
	IsObject bool
	Fields   []Field
	Span     Span
}

// Field is one `name: Type [INDEX]` member of a schema body.
type Field struct {
	Name    string
	Type    FieldType
	Indexed bool
	Span    Span
}

// NodeSchema is `N::Label { field: Type [INDEX], ... }`.
type NodeSchema struct {
	Label  string
	Fields []Field
	Span   Span
}

func (*NodeSchema) declMarker() {}

// EdgeSchema is `E::Label { From: Node, To: Node, Properties: { ... } }`.
type EdgeSchema struct {
	Label      string
	From       string
	To         string
	Properties []Field
	Span       Span
}

func (*EdgeSchema) declMarker() {}

// VectorSchema is `V::Label { field: Type, ... }`.
type VectorSchema struct {
	Label  string
	Fields []Field
	Span   Span
}

func (*VectorSchema) declMarker() {}

// Param is one `(name: Type)` query parameter.
type Param struct {
	Name string
	Type FieldType
	Span Span
}

// Query is `QUERY name(params) => { statements } RETURN value`.
type Query struct {
	Name       string
	Params     []Param
	Statements []Stmt
	Return     Expr
	Span       Span
}

func (*Query) declMarker() {}

// MigrationField is one `field: source [AS CastType]` remap entry.
type MigrationField struct {
	Field  string
	Source Expr
	Cast   *FieldType
	Span   Span
}

// MigrationItem is one `Item::X => _::{ ... }` mapping inside a migration.
type MigrationItem struct {
	FromLabel string
	Fields    []MigrationField
	Span      Span
}

// Migration is `MIGRATION schema::FROM => schema::TO { ... }`.
type Migration struct {
	FromSchema string
	ToSchema   string
	Items      []MigrationItem
	Span       Span
}

func (*Migration) declMarker() {}

// Stmt is one statement inside a query body.
type Stmt interface{ stmtMarker() }

// AssignStmt is `id <- expr`.
type AssignStmt struct {
	Name string
	Expr Expr
	Span Span
}

func (*AssignStmt) stmtMarker() {}

// DropStmt is `DROP expr`.
type DropStmt struct {
	Expr Expr
	Span Span
}

func (*DropStmt) stmtMarker() {}

// ExprStmt is a bare expression evaluated for its side effects.
type ExprStmt struct {
	Expr Expr
	Span Span
}

func (*ExprStmt) stmtMarker() {}

// ForStmt is `FOR v IN source { body }` or `FOR {a,b} IN source { body }`.
type ForStmt struct {
	Bindings []string // single binding, or a destructured set of names
	Source   Expr
	Body     []Stmt
	Span     Span
}

func (*ForStmt) stmtMarker() {}

// Expr is any HelixQL expression: a traversal chain, a literal, an
// identifier reference, or an object-projection literal.
type Expr interface{ exprMarker() }

// Ident references an in-scope identifier (a bound variable or parameter).
type Ident struct {
	Name string
	Span Span
}

func (*Ident) exprMarker() {}

// Literal is a string/int/float/bool/none constant.
type Literal struct {
	Kind  LiteralKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Span  Span
}

// LiteralKind tags which field of Literal is populated.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitInt
	LitFloat
	LitBool
	LitNone
)

func (*Literal) exprMarker() {}

// SourceExpr is a traversal start: N<Label>(args), E<Label>(args),
// V<Label>(args), SearchV<Label>(args), SearchBM25<Label>(args),
// HybridSearch<Label>(args), AddN<Label>{...}, AddE<Label>(from,to){...},
// AddV<Label>(vec){...}.
type SourceExpr struct {
	Kind  string // "N", "E", "V", "SearchV", "SearchBM25", "HybridSearch", "AddN", "AddE", "AddV"
	Label string
	Args  []Expr
	Props []MigrationField // reused shape for key:value literal bodies
	Span  Span
}

func (*SourceExpr) exprMarker() {}

// CompareExpr is a `left op right` predicate, the operand of a Where step
// (spec.md §4.2 "Where(predicate)"). Op is one of == != < <= > >=.
type CompareExpr struct {
	Left  Expr
	Op    string
	Right Expr
	Span  Span
}

func (*CompareExpr) exprMarker() {}

// AnonExpr is `_::...`, an anonymous sub-traversal whose source is the
// enclosing traversal's current element (used inside EXISTS/Project).
type AnonExpr struct {
	Chain []StepExpr
	Span  Span
}

func (*AnonExpr) exprMarker() {}

// ChainExpr is a traversal chain: a source followed by zero or more
// `::step` applications.
type ChainExpr struct {
	Source Expr
	Steps  []StepExpr
	Span   Span
}

func (*ChainExpr) exprMarker() {}

// StepExpr is one `::name(args)` link in a chain, or a property-access
// step `::{name}`, an object remap `::{k: v, ...}`, or an exclusion
// `::!{field, ...}`.
type StepExpr struct {
	Name     string // step function name, e.g. "Out", "Where", "GroupBy"; empty for property/object forms
	Args     []Expr
	Property string            // populated for `::{name}` single-field access
	Object   []MigrationField  // populated for `::{k: v, ...}` remap
	Exclude  []string          // populated for `::!{field, ...}`
	Span     Span
}

// ObjectExpr is an object-projection literal `{ k: v, ... }` standalone
// (not attached to a chain step).
type ObjectExpr struct {
	Fields  []MigrationField
	Exclude []string
	Spread  bool
	Span    Span
}

func (*ObjectExpr) exprMarker() {}
