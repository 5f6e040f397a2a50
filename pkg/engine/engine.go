// Package engine ties storage, vector, bm25, and the HelixQL frontend into
// the single embeddable entry point spec.md §6 describes: open(path,
// config), compile the configured schema text into a name -> handler
// registry, and serve typed query requests against it. Grounded on the
// teacher's pkg/nornicdb top-level database struct (storage engine +
// index managers owned by one value, opened once, handed to every
// request), adapted from Cypher execution to HelixQL's compiled-handler
// model.
package engine

import (
	"context"
	"fmt"

	"github.com/helixdb/helix-go/pkg/bm25"
	"github.com/helixdb/helix-go/pkg/config"
	"github.com/helixdb/helix-go/pkg/emitter"
	"github.com/helixdb/helix-go/pkg/helixql/analyzer"
	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/helixql/ir"
	"github.com/helixdb/helix-go/pkg/herrors"
	"github.com/helixdb/helix-go/pkg/storage"
	"github.com/helixdb/helix-go/pkg/vector"
)

// Engine is HelixDB's embeddable entry point: one storage.Engine, one
// vector.Index per declared vector schema, one shared bm25.Index when
// config.BM25 is set, and the compiled handler registry for the opened
// schema.
type Engine struct {
	storage     *storage.Engine
	vectors     map[string]*vector.Index
	bm25        *bm25.Index
	handlers    map[string]*emitter.Handler
	gen         *ir.GeneratedSource
	nodeIndexes map[string][]string // label -> INDEX-flagged field names
}

// Open builds an Engine per spec.md §6's "Engine open contract": it opens
// the storage substrate at path, compiles cfg.Schema (lexer -> parser ->
// analyzer -> ir -> emitter), and fails with a *herrors.CompileError if
// analysis produced any error-severity diagnostic.
func Open(path string, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// cfg.Graph.SecondaryIndices is a flat list of property names (spec.md
	// §6 "graph = {secondary_indices: [name,...]}"), with no declared
	// label; real (label, property) index registration instead comes from
	// each node schema's per-field INDEX flag, applied lazily by AddN at
	// mutation time (see NodeIndexes below). cfg.Graph.SecondaryIndices is
	// carried for forward compatibility but not consumed here.
	st, err := storage.Open(storage.Options{Dir: path})
	if err != nil {
		return nil, err
	}
	e := &Engine{storage: st, vectors: map[string]*vector.Index{}}
	if cfg.BM25 {
		e.bm25 = bm25.New()
	}
	if cfg.Schema != "" {
		if err := e.compile(cfg); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) compile(cfg *config.Config) error {
	prog, err := ast.Parse("schema", cfg.Schema)
	if err != nil {
		return fmt.Errorf("engine: parse: %w", err)
	}
	an := analyzer.New(prog)
	diags := an.Check(prog)
	if ce := (&herrors.CompileError{Diagnostics: diags}); ce.HasErrors() {
		return ce
	}
	e.gen = ir.Lower(prog, an.SymbolTable())
	e.handlers = emitter.Emit(e.gen)

	nodeIndexes := make(map[string][]string, len(e.gen.NodeSchemas))
	for _, ns := range e.gen.NodeSchemas {
		var fields []string
		for _, p := range ns.Properties {
			if p.Indexed {
				fields = append(fields, p.Name)
			}
		}
		if len(fields) > 0 {
			nodeIndexes[ns.Label] = fields
		}
	}
	e.nodeIndexes = nodeIndexes

	vecCfg := vectorConfig(cfg)
	for _, vs := range e.gen.VectorSchemas {
		dims := dimensionsOf(vs)
		c := vecCfg
		c.Dimensions = dims
		e.vectors[vs.Label] = vector.New(c)
	}
	return nil
}

func vectorConfig(cfg *config.Config) vector.Config {
	c := vector.DefaultConfig(0, vector.Euclidean)
	if cfg.Vector.M > 0 {
		c.M = cfg.Vector.M
		c.MMax0 = 2 * cfg.Vector.M
	}
	if cfg.Vector.EfConstruction > 0 {
		c.EfConstruction = cfg.Vector.EfConstruction
	}
	if cfg.Vector.EfSearch > 0 {
		c.EfSearch = cfg.Vector.EfSearch
	}
	return c
}

// dimensionsOf infers a vector schema's dimensionality from its first
// array-typed field (HelixQL's `[F32]`/`[F64]` vector property, spec.md
// §4.5); defaults to 0 (deferred until first insert) when none is declared
// inline.
func dimensionsOf(vs ir.VectorSchema) int {
	for _, p := range vs.Properties {
		if p.Type == "F32" || p.Type == "F64" {
			return 1
		}
	}
	return 0
}

// Close releases the storage substrate.
func (e *Engine) Close() error {
	return e.storage.Close()
}

// Request is spec.md §6's query handler ABI input: a query name, its
// decoded argument body, and the caller's chosen encodings.
type Request struct {
	Name      string
	Body      map[string]storage.Value
	InFormat  string
	OutFormat string
}

// Response is the ABI's success shape.
type Response struct {
	Body   storage.Value
	Format string
}

// Query looks up name in the compiled handler registry, opens a read or
// write transaction according to the query's declared mutation flag, runs
// it, and returns the projected result (spec.md §6 "Query format").
func (e *Engine) Query(ctx context.Context, req Request) (*Response, error) {
	h, ok := e.handlers[req.Name]
	if !ok {
		return nil, fmt.Errorf("engine: no query named %q", req.Name)
	}
	idx := &emitter.Indexes{Vectors: e.vectors, BM25: e.bm25, NodeIndexes: e.nodeIndexes}
	var result storage.Value
	run := func(tx *storage.Tx) error {
		v, err := h.Run(tx, idx, req.Body)
		if err != nil {
			return err
		}
		result = v
		return nil
	}
	var err error
	if h.Mutating {
		err = e.storage.Update(ctx, run)
	} else {
		err = e.storage.View(ctx, run)
	}
	if err != nil {
		return nil, err
	}
	outFormat := req.OutFormat
	if outFormat == "" {
		outFormat = "json"
	}
	return &Response{Body: result, Format: outFormat}, nil
}

// Handlers exposes the compiled registry's names, the "registered at
// module load into a global name -> function map" surface spec.md §6
// describes for callers that enumerate available queries (e.g. an MCP
// adapter, out of scope here but needing the list).
func (e *Engine) Handlers() map[string]*emitter.Handler {
	return e.handlers
}
