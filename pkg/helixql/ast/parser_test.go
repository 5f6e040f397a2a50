package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeSchemaWithIndexedField(t *testing.T) {
	prog, err := Parse("t.hx", `N::User {
		name: String,
		email: String INDEX,
	}`)
	require.NoError(t, err)
	require.Len(t, prog.Decls, 1)

	ns, ok := prog.Decls[0].(*NodeSchema)
	require.True(t, ok)
	assert.Equal(t, "User", ns.Label)
	require.Len(t, ns.Fields, 2)
	assert.Equal(t, "name", ns.Fields[0].Name)
	assert.False(t, ns.Fields[0].Indexed)
	assert.Equal(t, "email", ns.Fields[1].Name)
	assert.True(t, ns.Fields[1].Indexed)
}

func TestParseEdgeSchemaWithFromToAndProperties(t *testing.T) {
	prog, err := Parse("t.hx", `E::Follows {
		From: User,
		To: User,
		Properties: {
			since: I64,
		},
	}`)
	require.NoError(t, err)
	require.Len(t, prog.Decls, 1)

	es, ok := prog.Decls[0].(*EdgeSchema)
	require.True(t, ok)
	assert.Equal(t, "Follows", es.Label)
	assert.Equal(t, "User", es.From)
	assert.Equal(t, "User", es.To)
	require.Len(t, es.Properties, 1)
	assert.Equal(t, "since", es.Properties[0].Name)
}

func TestParseVectorSchema(t *testing.T) {
	prog, err := Parse("t.hx", `V::Doc {
		embedding: F64,
	}`)
	require.NoError(t, err)
	vs, ok := prog.Decls[0].(*VectorSchema)
	require.True(t, ok)
	assert.Equal(t, "Doc", vs.Label)
}

func TestParseQueryWithAssignmentChainAndReturn(t *testing.T) {
	prog, err := Parse("t.hx", `QUERY createUser(name: String, email: String) => {
		u <- AddN::User {name: name, email: email}
		RETURN u
	}`)
	require.NoError(t, err)
	require.Len(t, prog.Decls, 1)

	q, ok := prog.Decls[0].(*Query)
	require.True(t, ok)
	assert.Equal(t, "createUser", q.Name)
	require.Len(t, q.Params, 2)
	require.Len(t, q.Statements, 1)

	assign, ok := q.Statements[0].(*AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "u", assign.Name)

	src, ok := assign.Expr.(*SourceExpr)
	require.True(t, ok)
	assert.Equal(t, "AddN", src.Kind)
	assert.Equal(t, "User", src.Label)
	require.Len(t, src.Props, 2)

	ret, ok := q.Return.(*Ident)
	require.True(t, ok)
	assert.Equal(t, "u", ret.Name)
}

func TestParseChainWithPropertyAccess(t *testing.T) {
	prog, err := Parse("t.hx", `QUERY q() => {
		names <- N::User::Out(Follows)::{name}
		RETURN names
	}`)
	require.NoError(t, err)
	q := prog.Decls[0].(*Query)
	assign := q.Statements[0].(*AssignStmt)
	chain, ok := assign.Expr.(*ChainExpr)
	require.True(t, ok)
	require.Len(t, chain.Steps, 2)
	assert.Equal(t, "Out", chain.Steps[0].Name)
	assert.Equal(t, "name", chain.Steps[1].Property)
}

func TestParseForStatementWithDestructuredBinding(t *testing.T) {
	prog, err := Parse("t.hx", `QUERY q() => {
		FOR {id, name} IN N::User {
			DROP N::User
		}
		RETURN NONE
	}`)
	require.NoError(t, err)
	q := prog.Decls[0].(*Query)
	forStmt, ok := q.Statements[0].(*ForStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, forStmt.Bindings)
	require.Len(t, forStmt.Body, 1)
	_, ok = forStmt.Body[0].(*DropStmt)
	assert.True(t, ok)
}

func TestParseMigration(t *testing.T) {
	prog, err := Parse("t.hx", `MIGRATION User::v1 => User::v2 {
		User::v1 => _::{
			name: name,
			age: age AS I64,
		}
	}`)
	require.NoError(t, err)
	m, ok := prog.Decls[0].(*Migration)
	require.True(t, ok)
	assert.Equal(t, "User::v1", m.FromSchema)
	assert.Equal(t, "User::v2", m.ToSchema)
	require.Len(t, m.Items, 1)
	require.Len(t, m.Items[0].Fields, 2)
	require.NotNil(t, m.Items[0].Fields[1].Cast)
	assert.Equal(t, "I64", m.Items[0].Fields[1].Cast.Name)
}

func TestParseRejectsUnexpectedTopLevelToken(t *testing.T) {
	_, err := Parse("t.hx", `BOGUS::Thing {}`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}
