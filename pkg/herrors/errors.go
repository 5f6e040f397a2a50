// Package herrors defines HelixDB's error taxonomy (spec.md §7).
//
// Every error a traversal step can surface is one of the sentinel values
// below, optionally wrapped with %w to add context, plus two carrier types
// for diagnostics (CompileError) and for errors that need a source span
// (Located). Invariant violations that indicate a programmer error, not a
// user-reachable condition, should panic instead of returning one of these
// (see herrors.Assert).
package herrors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per Kind in spec.md §7 except CompileError and
// DiagnosticList, which are carried by the CompileError type instead.
var (
	ErrNodeNotFound        = errors.New("node not found")
	ErrEdgeNotFound        = errors.New("edge not found")
	ErrVectorNotFound      = errors.New("vector not found")
	ErrSliceLength         = errors.New("slice length error")
	ErrConversion          = errors.New("conversion error")
	ErrInvalidVecDimension = errors.New("invalid vector dimension")
	ErrMissingKey          = errors.New("missing key")
	ErrMissingMetadata     = errors.New("missing metadata")
	ErrUnmatchingDistance  = errors.New("distance function does not match persisted metadata")
	ErrNeedBuild           = errors.New("index has pending updates; rebuild required")
	ErrNegativeEdgeWeight  = errors.New("negative edge weight")
	ErrEntryPointNotFound  = errors.New("hnsw entry point not found")
	ErrVectorAlreadyDeleted = errors.New("vector already deleted")
	ErrIo                  = errors.New("io error")
	ErrSubstrate           = errors.New("substrate error")
)

// Kind classifies an error for programmatic branching by callers (e.g. the
// query handler ABI in spec.md §6, which must report "the error kind and
// message" in the response body).
type Kind string

const (
	KindNodeNotFound        Kind = "NodeNotFound"
	KindEdgeNotFound        Kind = "EdgeNotFound"
	KindVectorNotFound      Kind = "VectorNotFound"
	KindSliceLength         Kind = "SliceLengthError"
	KindConversion          Kind = "ConversionError"
	KindInvalidVecDimension Kind = "InvalidVecDimension"
	KindMissingKey          Kind = "MissingKey"
	KindMissingMetadata     Kind = "MissingMetadata"
	KindUnmatchingDistance  Kind = "UnmatchingDistance"
	KindNeedBuild           Kind = "NeedBuild"
	KindNegativeEdgeWeight  Kind = "NegativeEdgeWeight"
	KindEntryPointNotFound  Kind = "EntryPointNotFound"
	KindVectorAlreadyDeleted Kind = "VectorAlreadyDeleted"
	KindCompileError        Kind = "CompileError"
	KindDiagnosticList      Kind = "DiagnosticList"
	KindIo                  Kind = "Io"
	KindSubstrate           Kind = "Substrate"
)

// Span is a source location, attached to errors and diagnostics that arise
// from compiling HelixQL text (spec.md §4.5 "Source positions").
type Span struct {
	Line   int
	Column int
	Offset int
	Length int
}

// Located wraps an error with a Kind and an optional source Span.
type Located struct {
	Kind Kind
	Span *Span
	Err  error
}

func (l *Located) Error() string {
	if l.Span != nil {
		return fmt.Sprintf("%s at %d:%d: %v", l.Kind, l.Span.Line, l.Span.Column, l.Err)
	}
	return fmt.Sprintf("%s: %v", l.Kind, l.Err)
}

func (l *Located) Unwrap() error { return l.Err }

// At wraps err as a Located error of the given kind and span.
func At(kind Kind, span *Span, err error) error {
	return &Located{Kind: kind, Span: span, Err: err}
}

// Severity of a compile diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "hint"
	}
}

// Diagnostic is one numbered compile-time finding (spec.md §4.5 analyzer).
type Diagnostic struct {
	Code     string
	Severity Severity
	Span     Span
	Message  string
	Hint     string // optional, per original_source's richer diagnostic struct
}

func (d Diagnostic) String() string {
	if d.Hint != "" {
		return fmt.Sprintf("[%s] %s (%d:%d): %s (hint: %s)", d.Code, d.Severity, d.Span.Line, d.Span.Column, d.Message, d.Hint)
	}
	return fmt.Sprintf("[%s] %s (%d:%d): %s", d.Code, d.Severity, d.Span.Line, d.Span.Column, d.Message)
}

// CompileError carries every diagnostic produced while compiling a HelixQL
// source file. It implements error so callers that just want a message can
// treat it as one, but callers that need the full list (spec.md §7
// "DiagnosticList") can type-assert.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (c *CompileError) Error() string {
	if len(c.Diagnostics) == 0 {
		return "compile error"
	}
	return fmt.Sprintf("%d diagnostic(s), first: %s", len(c.Diagnostics), c.Diagnostics[0])
}

// HasErrors reports whether the list contains at least one SeverityError entry.
func (c *CompileError) HasErrors() bool {
	for _, d := range c.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Assert panics if cond is false. Use only for invariant violations that
// indicate a bug in HelixDB itself, never for user-reachable error paths
// (spec.md §7 "Invariant violations ... are allowed to panic").
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("helixdb: invariant violated: "+format, args...))
	}
}
