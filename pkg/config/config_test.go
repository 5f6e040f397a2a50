package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	os.Unsetenv("HELIXDB_BM25")
	c := LoadFromEnv()
	assert.True(t, c.BM25)
	assert.False(t, c.MCP)
	require.NoError(t, c.Validate())
}

func TestLoadFromEnvReadsOverrides(t *testing.T) {
	t.Setenv("HELIXDB_VECTOR_EF_SEARCH", "128")
	t.Setenv("HELIXDB_GRAPH_SECONDARY_INDICES", "email, age")
	c := LoadFromEnv()
	assert.Equal(t, 128, c.Vector.EfSearch)
	assert.Equal(t, []string{"email", "age"}, c.Graph.SecondaryIndices)
}

func TestLoadFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "helixdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bm25: true\nmcp: false\nschema: \"N::Person { name: String }\"\n"), 0o644))
	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, c.BM25)
	assert.Contains(t, c.Schema, "Person")
}

func TestValidateRejectsNegativeHNSWKnobs(t *testing.T) {
	c := &Config{Vector: VectorConfig{EfSearch: -1}}
	assert.Error(t, c.Validate())
}
