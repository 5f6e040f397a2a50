// Package config loads HelixDB's engine-open contract (spec.md §6) from
// environment variables (HELIXDB_*) or a YAML file, mirroring the teacher's
// LoadFromEnv/Validate pattern (pkg/config/config.go) and its YAML loading
// idiom (apoc/config.go's LoadConfig).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is HelixDB's open(path, config) argument (spec.md §6 "Engine open
// contract").
type Config struct {
	Vector             VectorConfig `yaml:"vector"`
	Graph              GraphConfig  `yaml:"graph"`
	MCP                bool         `yaml:"mcp"`
	BM25               bool         `yaml:"bm25"`
	Schema             string       `yaml:"schema"`
	EmbeddingModel     string       `yaml:"embedding_model"`
	GraphvisNodeLabel  string       `yaml:"graphvis_node_label"`
}

// VectorConfig carries the HNSW tuning knobs spec.md §6 exposes at open
// time; zero values fall back to pkg/vector.DefaultConfig's defaults.
type VectorConfig struct {
	M             int     `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch      int     `yaml:"ef_search"`
	DBMaxSizeGB   float64 `yaml:"db_max_size_gb"`
}

// GraphConfig carries secondary-index declarations (spec.md §6 "graph =
// {secondary_indices: [name,...]}").
type GraphConfig struct {
	SecondaryIndices []string `yaml:"secondary_indices"`
}

// LoadFromEnv builds a Config from HELIXDB_* environment variables, the
// same shape the teacher's LoadFromEnv builds from NEO4J_*/NORNICDB_*
// variables.
func LoadFromEnv() *Config {
	c := &Config{}
	c.Vector.M = getEnvInt("HELIXDB_VECTOR_M", 0)
	c.Vector.EfConstruction = getEnvInt("HELIXDB_VECTOR_EF_CONSTRUCTION", 0)
	c.Vector.EfSearch = getEnvInt("HELIXDB_VECTOR_EF_SEARCH", 0)
	c.Vector.DBMaxSizeGB = getEnvFloat("HELIXDB_VECTOR_DB_MAX_SIZE_GB", 0)
	c.Graph.SecondaryIndices = getEnvStringSlice("HELIXDB_GRAPH_SECONDARY_INDICES", nil)
	c.MCP = getEnvBool("HELIXDB_MCP", false)
	c.BM25 = getEnvBool("HELIXDB_BM25", true)
	c.Schema = getEnv("HELIXDB_SCHEMA", "")
	c.EmbeddingModel = getEnv("HELIXDB_EMBEDDING_MODEL", "")
	// graphvis_node_label is carried but read by no in-core component
	// (SPEC_FULL.md §C.5): the out-of-scope visualization adapter consumes
	// it, not pkg/engine.
	c.GraphvisNodeLabel = getEnv("HELIXDB_GRAPHVIS_NODE_LABEL", "")
	return c
}

// LoadFile loads a YAML config file, the vector/graph/mcp/bm25/schema keys
// spec.md §6 names, per the teacher's apoc.LoadConfig.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// LoadFileOrEnv loads path if given, falling back to LoadFromEnv.
func LoadFileOrEnv(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv(), nil
	}
	return LoadFile(path)
}

// Validate rejects negative HNSW knobs (vector.m, vector.ef_construction,
// vector.ef_search, vector.db_max_size_gb). The bm25/mcp flags, the graph
// section and the schema are not checked.
func (c *Config) Validate() error {
	if c.Vector.M < 0 {
		return fmt.Errorf("config: vector.m must not be negative")
	}
	if c.Vector.EfConstruction < 0 {
		return fmt.Errorf("config: vector.ef_construction must not be negative")
	}
	if c.Vector.EfSearch < 0 {
		return fmt.Errorf("config: vector.ef_search must not be negative")
	}
	if c.Vector.DBMaxSizeGB < 0 {
		return fmt.Errorf("config: vector.db_max_size_gb must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
