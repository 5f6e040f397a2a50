// Package main provides the HelixDB CLI entry point.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helixdb/helix-go/pkg/config"
	"github.com/helixdb/helix-go/pkg/engine"
	"github.com/helixdb/helix-go/pkg/helixql/analyzer"
	"github.com/helixdb/helix-go/pkg/helixql/ast"
	"github.com/helixdb/helix-go/pkg/herrors"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// main wires the helixdb subcommand tree. Per spec.md §1, CLI project
// scaffolding and the HTTP/worker-pool gateway are out-of-scope external
// collaborators; these commands are the thin wrappers that call straight
// into the in-scope frontend/emitter/engine packages and do no cloud or
// container work.
func main() {
	rootCmd := &cobra.Command{
		Use:   "helixdb",
		Short: "HelixDB - embeddable graph, vector, and full-text database engine",
		Long: `HelixDB unifies a labeled property graph, a dense-vector index,
and a BM25 full-text index behind a single transactional store, driven by
the HelixQL query language.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("HelixDB v%s (%s)\n", version, commit)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new HelixDB project directory",
		RunE:  runInit,
	}
	initCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(initCmd)

	checkCmd := &cobra.Command{
		Use:   "check [schema.hx]",
		Short: "Parse and analyze a HelixQL schema/query file without emitting handlers",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	rootCmd.AddCommand(checkCmd)

	buildCmd := &cobra.Command{
		Use:   "build [schema.hx]",
		Short: "Compile a HelixQL schema/query file and list the registered query handlers",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}
	rootCmd.AddCommand(buildCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [schema.hx]",
		Short: "Open the engine against a schema file and hold it open for an external gateway",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
	serveCmd.Flags().String("data-dir", "./data", "Data directory")
	serveCmd.Flags().Bool("bm25", true, "Enable the BM25 full-text index")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	fmt.Printf("initializing HelixDB project in %s\n", dataDir)

	dirs := []string{dataDir, filepath.Join(dataDir, "graph"), filepath.Join(dataDir, "vectors")}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	schemaPath := filepath.Join(dataDir, "schema.hx")
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		stub := "// HelixQL schema and queries go here.\n// N::User { name: String, email: String INDEX }\n"
		if err := os.WriteFile(schemaPath, []byte(stub), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", schemaPath, err)
		}
	}

	fmt.Println("project initialized")
	fmt.Printf("  schema:    %s\n", schemaPath)
	fmt.Printf("  data dir:  %s\n", dataDir)
	fmt.Println()
	fmt.Println("Next: helixdb check " + schemaPath)
	return nil
}

// runCheck runs the lexer -> parser -> analyzer path only and reports every
// diagnostic the analyzer collected, without lowering to IR or emitting
// handlers (spec.md §4.5 "diagnostics, not exceptions").
func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	prog, err := ast.Parse(path, string(src))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	an := analyzer.New(prog)
	diags := an.Check(prog)
	if len(diags) == 0 {
		fmt.Println("ok: no diagnostics")
		return nil
	}
	for _, d := range diags {
		printDiagnostic(path, d)
	}
	ce := &herrors.CompileError{Diagnostics: diags}
	if ce.HasErrors() {
		return ce
	}
	return nil
}

// runBuild compiles a schema/query file all the way through the emitter and
// lists the name -> handler registry a served engine would expose (spec.md
// §6 "registered at module load into a global name -> function map").
func runBuild(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	tmpDir, err := os.MkdirTemp("", "helixdb-build-*")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	cfg := &config.Config{Schema: string(src)}
	e, err := engine.Open(tmpDir, cfg)
	if err != nil {
		return reportCompileError(path, err)
	}
	defer e.Close()

	handlers := e.Handlers()
	fmt.Printf("compiled %d quer%s:\n", len(handlers), plural(len(handlers)))
	for name, h := range handlers {
		kind := "read"
		if h.Mutating {
			kind = "write"
		}
		fmt.Printf("  %-24s %s, %d parameter(s)\n", name, kind, len(h.Parameters))
	}
	return nil
}

// runServe opens the engine against a schema file and blocks, handing a
// live *engine.Engine to whatever out-of-scope gateway process attaches to
// it (spec.md §1's "HTTP/worker-pool gateway surface" is an external
// collaborator; this command's job ends at "open, register, hold open").
func runServe(cmd *cobra.Command, args []string) error {
	path := args[0]
	dataDir, _ := cmd.Flags().GetString("data-dir")
	bm25Enabled, _ := cmd.Flags().GetBool("bm25")

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &config.Config{Schema: string(src), BM25: bm25Enabled}
	e, err := engine.Open(dataDir, cfg)
	if err != nil {
		return reportCompileError(path, err)
	}
	defer e.Close()

	fmt.Printf("engine open at %s, %d quer%s registered\n", dataDir, len(e.Handlers()), plural(len(e.Handlers())))
	fmt.Println("press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("shutting down")
	return nil
}

func reportCompileError(path string, err error) error {
	var ce *herrors.CompileError
	if asCompileError(err, &ce) {
		for _, d := range ce.Diagnostics {
			printDiagnostic(path, d)
		}
		return fmt.Errorf("compilation failed")
	}
	return err
}

func asCompileError(err error, target **herrors.CompileError) bool {
	ce, ok := err.(*herrors.CompileError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

func printDiagnostic(path string, d herrors.Diagnostic) {
	fmt.Printf("%s:%d:%d: %s: %s [%s]\n", path, d.Span.Line, d.Span.Column, d.Severity, d.Message, d.Code)
	if d.Hint != "" {
		fmt.Printf("    hint: %s\n", d.Hint)
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
