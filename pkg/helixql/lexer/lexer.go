// Package lexer tokenizes HelixQL source text (spec.md §4.5 "Lexical/Grammar
// highlights"). The token table itself is expressed as participle-style
// simple rules (github.com/alecthomas/participle/v2/lexer), the same
// declarative token-table idiom the pack's pgraph DSL uses
// (other_examples' internal/dsl/grammar.go); HelixQL's traversal-chain
// grammar needs lookahead and nesting participle's declarative parser tags
// can't express cleanly, so pkg/helixql/ast hand-writes a recursive-descent
// parser over the token stream this package produces instead of driving
// participle's own Parser.
package lexer

import (
	"fmt"
	"strings"

	pl "github.com/alecthomas/participle/v2/lexer"
)

// Kind classifies a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Keyword
	Int
	Float
	String
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "Ident"
	case Keyword:
		return "Keyword"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Punct:
		return "Punct"
	default:
		return "Unknown"
	}
}

// Position is a source location: line/column are 1-based, Offset is the
// 0-based byte offset (spec.md §4.5 "Source positions (line, column, byte
// offset, span) are attached for diagnostics").
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Span is a half-open [Start, End) source range.
type Span struct {
	Start Position
	End   Position
}

// Token is one lexed unit plus its Span.
type Token struct {
	Kind Kind
	Text string
	Span Span
}

var keywords = map[string]bool{
	"QUERY": true, "RETURN": true, "FOR": true, "IN": true, "DROP": true,
	"MIGRATION": true, "FROM": true, "TO": true, "AS": true, "AND": true,
	"OR": true, "NOT": true, "TRUE": true, "FALSE": true, "NONE": true,
	"String": true, "Boolean": true, "Uuid": true, "Date": true,
	"I8": true, "I16": true, "I32": true, "I64": true, "I128": true,
	"U8": true, "U16": true, "U32": true, "U64": true, "U128": true,
	"F32": true, "F64": true, "INDEX": true, "Properties": true, "Node": true,
}

var simple = pl.MustSimple([]pl.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Arrow", Pattern: `(<-|=>)`},
	{Name: "DoubleColon", Pattern: `::`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "CompareOp", Pattern: `(==|!=|<=|>=|<|>)`},
	{Name: "Punct", Pattern: `[{}()\[\],:!.]`},
})

// Tokenize lexes the full source into a Token slice terminated by one EOF
// token, resolving every participle lexeme's byte offset into a (line,
// column) pair and attaching it as the token's Span.
func Tokenize(filename, source string) ([]Token, error) {
	lex, err := simple.Lex(filename, strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("helixql/lexer: %w", err)
	}

	lineStarts := computeLineStarts(source)
	var tokens []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("helixql/lexer: %w", err)
		}
		if tok.EOF() {
			tokens = append(tokens, Token{Kind: EOF, Span: Span{
				Start: offsetToPosition(filename, len(source), lineStarts),
				End:   offsetToPosition(filename, len(source), lineStarts),
			}})
			break
		}
		name := symbolName(simple, tok.Type)
		if name == "Whitespace" || name == "Comment" {
			continue
		}
		start := offsetToPosition(filename, int(tok.Pos.Offset), lineStarts)
		end := offsetToPosition(filename, int(tok.Pos.Offset)+len(tok.Value), lineStarts)
		tokens = append(tokens, Token{Kind: kindOf(name, tok.Value), Text: tok.Value, Span: Span{Start: start, End: end}})
	}
	return tokens, nil
}

func symbolName(def pl.Definition, t pl.TokenType) string {
	for name, id := range def.Symbols() {
		if id == t {
			return name
		}
	}
	return ""
}

func kindOf(ruleName, text string) Kind {
	switch ruleName {
	case "Int":
		return Int
	case "Float":
		return Float
	case "String":
		return String
	case "Arrow", "DoubleColon", "Punct", "CompareOp":
		return Punct
	case "Ident":
		if keywords[text] {
			return Keyword
		}
		return Ident
	default:
		return Ident
	}
}

func computeLineStarts(source string) []int {
	starts := []int{0}
	for i, r := range source {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func offsetToPosition(filename string, offset int, lineStarts []int) Position {
	line := 0
	for i, start := range lineStarts {
		if start <= offset {
			line = i
		} else {
			break
		}
	}
	col := offset - lineStarts[line] + 1
	return Position{Filename: filename, Offset: offset, Line: line + 1, Column: col}
}
