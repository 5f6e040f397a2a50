// Package ir defines HelixQL's typed intermediate representation, the
// `GeneratedSource` spec.md §4.5 describes: generated schema descriptors, a
// queries vector (parameters, statements, return expression, mutation flag,
// optional embedding-model hint), and migration programs. No return-value
// shape is derived from the return expression. Grounded on the
// original's helixc/generator/{schemas.rs,queries.rs} shape (field name ->
// SchemaProperty{name, field_type, default_value, is_index}), re-expressed
// as plain Go structs since the target here is a Go emitter, not Rust
// codegen.
package ir

import (
	"github.com/helixdb/helix-go/pkg/helixql/analyzer"
	"github.com/helixdb/helix-go/pkg/helixql/ast"
)

// SchemaProperty is one resolved field of a node/edge/vector schema.
type SchemaProperty struct {
	Name    string
	Type    string
	Indexed bool
}

// NodeSchema is the lowered form of an ast.NodeSchema.
type NodeSchema struct {
	Label      string
	Properties []SchemaProperty
}

// EdgeSchema is the lowered form of an ast.EdgeSchema.
type EdgeSchema struct {
	Label      string
	From       string
	To         string
	Properties []SchemaProperty
}

// VectorSchema is the lowered form of an ast.VectorSchema.
type VectorSchema struct {
	Label      string
	Properties []SchemaProperty
}

// Parameter is one typed query parameter.
type Parameter struct {
	Name string
	Type string
}

// Query is one compiled query's IR: its parameters, its statement sequence
// (still expression-tree shaped; pkg/emitter is what turns this into a
// Go handler function), its return expression, whether it can mutate the
// store, and an optional embedding-model hint for string-literal vector
// search arguments (spec.md §4.1 "embedding_model" open question).
type Query struct {
	Name           string
	Parameters     []Parameter
	Statements     []ast.Stmt
	Return         ast.Expr
	Mutating       bool
	EmbeddingModel string
}

// MigrationFieldMap is one `field: source [AS CastType]` remap entry.
type MigrationFieldMap struct {
	Field  string
	Source ast.Expr
	Cast   string // empty if no cast
}

// MigrationItem is one `Item::X => _::{...}` mapping.
type MigrationItem struct {
	FromLabel string
	Fields    []MigrationFieldMap
}

// Migration is a lowered MIGRATION declaration.
type Migration struct {
	FromSchema string
	ToSchema   string
	Items      []MigrationItem
}

// GeneratedSource is the full lowered program (spec.md §4.5 "Typed IR").
type GeneratedSource struct {
	NodeSchemas   []NodeSchema
	EdgeSchemas   []EdgeSchema
	VectorSchemas []VectorSchema
	Queries       []Query
	Migrations    []Migration
}

// Lower walks an analyzed Program (with a built SymbolTable) into a
// GeneratedSource. It assumes prog has already passed analyzer.Check with
// no error-severity diagnostics; callers should not lower a program that
// failed analysis.
func Lower(prog *ast.Program, st *analyzer.SymbolTable) *GeneratedSource {
	gs := &GeneratedSource{}
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.NodeSchema:
			gs.NodeSchemas = append(gs.NodeSchemas, NodeSchema{Label: decl.Label, Properties: lowerFields(decl.Fields)})
		case *ast.EdgeSchema:
			gs.EdgeSchemas = append(gs.EdgeSchemas, EdgeSchema{
				Label: decl.Label, From: decl.From, To: decl.To,
				Properties: lowerFields(decl.Properties),
			})
		case *ast.VectorSchema:
			gs.VectorSchemas = append(gs.VectorSchemas, VectorSchema{Label: decl.Label, Properties: lowerFields(decl.Fields)})
		case *ast.Query:
			gs.Queries = append(gs.Queries, lowerQuery(decl))
		case *ast.Migration:
			gs.Migrations = append(gs.Migrations, lowerMigration(decl))
		}
	}
	return gs
}

func lowerFields(fields []ast.Field) []SchemaProperty {
	out := make([]SchemaProperty, 0, len(fields))
	for _, f := range fields {
		out = append(out, SchemaProperty{Name: f.Name, Type: f.Type.Name, Indexed: f.Indexed})
	}
	return out
}

func lowerQuery(q *ast.Query) Query {
	params := make([]Parameter, 0, len(q.Params))
	for _, p := range q.Params {
		params = append(params, Parameter{Name: p.Name, Type: p.Type.Name})
	}
	return Query{
		Name:       q.Name,
		Parameters: params,
		Statements: q.Statements,
		Return:     q.Return,
		Mutating:   queryMutates(q),
	}
}

// queryMutates reports whether any statement in q calls one of the
// mutation source forms (AddN/AddE/AddV/DROP), which pkg/engine uses to
// decide whether to open a write or read transaction for this handler.
func queryMutates(q *ast.Query) bool {
	for _, s := range q.Statements {
		if stmtMutates(s) {
			return true
		}
	}
	return exprMutates(q.Return)
}

func stmtMutates(s ast.Stmt) bool {
	switch st := s.(type) {
	case *ast.AssignStmt:
		return exprMutates(st.Expr)
	case *ast.DropStmt:
		return true
	case *ast.ExprStmt:
		return exprMutates(st.Expr)
	case *ast.ForStmt:
		if exprMutates(st.Source) {
			return true
		}
		for _, b := range st.Body {
			if stmtMutates(b) {
				return true
			}
		}
	}
	return false
}

func exprMutates(e ast.Expr) bool {
	switch ex := e.(type) {
	case *ast.SourceExpr:
		switch ex.Kind {
		case "AddN", "AddE", "AddV":
			return true
		}
	case *ast.ChainExpr:
		return exprMutates(ex.Source)
	}
	return false
}

func lowerMigration(m *ast.Migration) Migration {
	mig := Migration{FromSchema: m.FromSchema, ToSchema: m.ToSchema}
	for _, item := range m.Items {
		mi := MigrationItem{FromLabel: item.FromLabel}
		for _, f := range item.Fields {
			cast := ""
			if f.Cast != nil {
				cast = f.Cast.Name
			}
			mi.Fields = append(mi.Fields, MigrationFieldMap{Field: f.Field, Source: f.Source, Cast: cast})
		}
		mig.Items = append(mig.Items, mi)
	}
	return mig
}
