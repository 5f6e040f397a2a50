package analyzer

import "github.com/helixdb/helix-go/pkg/helixql/ast"

// FieldInfo is one resolved schema field: its type name and whether it is
// secondary-indexed. No default value is recorded.
type FieldInfo struct {
	TypeName string
	Indexed  bool
}

// SchemaInfo is a declared N::/E::/V:: type's field map (name -> type and
// index flag); field defaults are not part of it.
type SchemaInfo struct {
	Kind   string // "node", "edge", "vector"
	Fields map[string]FieldInfo
	From   string // edge only
	To     string // edge only
}

// SymbolTable is the analyzer's global table of declared types, built from
// every NodeSchema/EdgeSchema/VectorSchema in a Program before any query is
// checked.
type SymbolTable struct {
	Schemas map[string]*SchemaInfo
}

// BuildSymbolTable walks every top-level schema declaration in prog.
func BuildSymbolTable(prog *ast.Program) *SymbolTable {
	st := &SymbolTable{Schemas: map[string]*SchemaInfo{}}
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.NodeSchema:
			st.Schemas[decl.Label] = &SchemaInfo{Kind: "node", Fields: fieldMap(decl.Fields)}
		case *ast.EdgeSchema:
			st.Schemas[decl.Label] = &SchemaInfo{Kind: "edge", Fields: fieldMap(decl.Properties), From: decl.From, To: decl.To}
		case *ast.VectorSchema:
			st.Schemas[decl.Label] = &SchemaInfo{Kind: "vector", Fields: fieldMap(decl.Fields)}
		}
	}
	return st
}

func fieldMap(fields []ast.Field) map[string]FieldInfo {
	m := make(map[string]FieldInfo, len(fields))
	for _, f := range fields {
		m[f.Name] = FieldInfo{TypeName: f.Type.Name, Indexed: f.Indexed}
	}
	return m
}

// HasField reports whether label declares a field named name, or name is
// one of spec.md §4.5's special property names (id|label|from_node|to_node
// |score|data), which every element kind resolves regardless of schema.
func (st *SymbolTable) HasField(label, name string) bool {
	if specialProperties[name] {
		return true
	}
	schema, ok := st.Schemas[label]
	if !ok {
		return false
	}
	_, ok = schema.Fields[name]
	return ok
}
