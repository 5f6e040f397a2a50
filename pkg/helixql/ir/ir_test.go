package ir

import (
	"testing"

	"github.com/helixdb/helix-go/pkg/helixql/analyzer"
	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lower(t *testing.T, src string) *GeneratedSource {
	t.Helper()
	prog, err := ast.Parse("t.hx", src)
	require.NoError(t, err)
	an := analyzer.New(prog)
	diags := an.Check(prog)
	require.Empty(t, diags)
	return Lower(prog, an.SymbolTable())
}

func TestLowerNodeSchemaCarriesIndexedFlag(t *testing.T) {
	gs := lower(t, `N::User {
		name: String,
		email: String INDEX,
	}`)
	require.Len(t, gs.NodeSchemas, 1)
	ns := gs.NodeSchemas[0]
	assert.Equal(t, "User", ns.Label)
	require.Len(t, ns.Properties, 2)
	assert.False(t, ns.Properties[0].Indexed)
	assert.True(t, ns.Properties[1].Indexed)
}

func TestLowerEdgeSchemaCarriesFromTo(t *testing.T) {
	gs := lower(t, `N::User { name: String }
	E::Follows {
		From: User,
		To: User,
		Properties: { since: I64 },
	}`)
	require.Len(t, gs.EdgeSchemas, 1)
	es := gs.EdgeSchemas[0]
	assert.Equal(t, "Follows", es.Label)
	assert.Equal(t, "User", es.From)
	assert.Equal(t, "User", es.To)
}

func TestLowerQueryWithAddNMarkedMutating(t *testing.T) {
	gs := lower(t, `N::User { name: String }
	QUERY createUser(name: String) => {
		u <- AddN::User {name: name}
		RETURN u
	}`)
	require.Len(t, gs.Queries, 1)
	q := gs.Queries[0]
	assert.Equal(t, "createUser", q.Name)
	assert.True(t, q.Mutating)
	require.Len(t, q.Parameters, 1)
	assert.Equal(t, "name", q.Parameters[0].Name)
}

func TestLowerQueryWithOnlyReadsNotMutating(t *testing.T) {
	gs := lower(t, `N::User { name: String }
	QUERY findUsers() => {
		u <- N::User
		RETURN u
	}`)
	require.Len(t, gs.Queries, 1)
	assert.False(t, gs.Queries[0].Mutating)
}

func TestLowerQueryWithDropMarkedMutating(t *testing.T) {
	gs := lower(t, `N::User { name: String }
	QUERY deleteUsers() => {
		DROP N::User
		RETURN NONE
	}`)
	require.Len(t, gs.Queries, 1)
	assert.True(t, gs.Queries[0].Mutating)
}

func TestLowerMigrationCarriesCastAnnotation(t *testing.T) {
	gs := lower(t, `MIGRATION User::v1 => User::v2 {
		User::v1 => _::{
			name: name,
			age: age AS I64,
		}
	}`)
	require.Len(t, gs.Migrations, 1)
	m := gs.Migrations[0]
	assert.Equal(t, "User::v1", m.FromSchema)
	assert.Equal(t, "User::v2", m.ToSchema)
	require.Len(t, m.Items, 1)
	require.Len(t, m.Items[0].Fields, 2)
	assert.Equal(t, "", m.Items[0].Fields[0].Cast)
	assert.Equal(t, "I64", m.Items[0].Fields[1].Cast)
}
