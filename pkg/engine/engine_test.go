package engine

import (
	"context"
	"testing"

	"github.com/helixdb/helix-go/pkg/config"
	"github.com/helixdb/helix-go/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `N::User {
	name: String,
	email: String INDEX,
}

QUERY createUser(name: String, email: String) => {
	u <- AddN::User {name: name, email: email}
	RETURN u
}

QUERY countUsers() => {
	n <- N::User::Count()
	RETURN n
}

QUERY deleteUsers() => {
	FOR u IN N::User {
		DROP u
	}
	RETURN NONE
}`

// TestOpenCompilesSchemaAndRunsQueries exercises the full open(path,
// config) -> Query contract (spec.md §6): a mutating AddN handler, a
// read-only aggregate handler, and a mutating FOR/DROP handler, all against
// one opened Engine.
func TestOpenCompilesSchemaAndRunsQueries(t *testing.T) {
	e, err := Open(t.TempDir(), &config.Config{Schema: schema})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.Contains(t, e.Handlers(), "createUser")
	require.Contains(t, e.Handlers(), "countUsers")
	require.Contains(t, e.Handlers(), "deleteUsers")
	assert.True(t, e.Handlers()["createUser"].Mutating)
	assert.False(t, e.Handlers()["countUsers"].Mutating)
	assert.True(t, e.Handlers()["deleteUsers"].Mutating)

	ctx := context.Background()
	_, err = e.Query(ctx, Request{Name: "createUser", Body: map[string]storage.Value{
		"name":  storage.StringValue("alice"),
		"email": storage.StringValue("alice@example.com"),
	}})
	require.NoError(t, err)

	resp, err := e.Query(ctx, Request{Name: "countUsers"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Body.Int)
	assert.Equal(t, "json", resp.Format)

	_, err = e.Query(ctx, Request{Name: "deleteUsers"})
	require.NoError(t, err)

	resp, err = e.Query(ctx, Request{Name: "countUsers"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Body.Int)
}

// TestOpenRejectsSchemaWithAnalysisErrors surfaces a *herrors.CompileError
// for a schema that fails analysis, rather than opening a half-compiled
// Engine.
func TestOpenRejectsSchemaWithAnalysisErrors(t *testing.T) {
	_, err := Open(t.TempDir(), &config.Config{Schema: `QUERY q() => {
		x <- N::Ghost
		RETURN x
	}`})
	require.Error(t, err)
}

// TestOpenWithoutSchemaOpensAnEmptyHandlerRegistry covers the lazy-schema
// path: an Engine opened with no cfg.Schema still opens storage and yields
// a valid, empty handler map rather than failing.
func TestOpenWithoutSchemaOpensAnEmptyHandlerRegistry(t *testing.T) {
	e, err := Open(t.TempDir(), &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	assert.Empty(t, e.Handlers())
}
