package ast

import (
	"fmt"
	"strconv"

	"github.com/helixdb/helix-go/pkg/helixql/lexer"
)

// ParseError carries a source span alongside a message, the same shape
// the teacher's parser.go errors use (a plain error string), extended
// with a Span since spec.md §4.5 requires positions on every diagnostic.
type ParseError struct {
	Msg  string
	Span Span
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Span.Start.String(), e.Msg)
}

// Parser is a hand-written recursive-descent parser over a token slice
// produced by pkg/helixql/lexer.Tokenize. It does not use participle's
// own Parser: each `::step` segment of a HelixQL chain is parsed by looking
// at its next tokens to tell the forms apart (bare ident vs `{...}` vs
// `!{...}`), which is easier to express as hand-written lookahead than as
// a declarative participle grammar.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// NewParser wraps a token stream for parsing.
func NewParser(toks []lexer.Token) *Parser {
	return &Parser{toks: toks}
}

// Parse consumes the entire token stream and returns a Program.
func Parse(filename, source string) (*Program, error) {
	toks, err := lexer.Tokenize(filename, source)
	if err != nil {
		return nil, err
	}
	return NewParser(toks).ParseProgram()
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool       { return p.cur().Kind == lexer.EOF }
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(text string) bool {
	return p.cur().Text == text && (p.cur().Kind == lexer.Keyword || p.cur().Kind == lexer.Punct || p.cur().Kind == lexer.Ident)
}

func (p *Parser) expect(text string) (lexer.Token, error) {
	if !p.check(text) {
		return lexer.Token{}, &ParseError{Msg: fmt.Sprintf("expected %q, got %q", text, p.cur().Text), Span: p.cur().Span}
	}
	return p.advance(), nil
}

func (p *Parser) expectKind(k lexer.Kind) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, &ParseError{Msg: fmt.Sprintf("expected %s, got %q", k, p.cur().Text), Span: p.cur().Span}
	}
	return p.advance(), nil
}

// ParseProgram parses a full sequence of schema/query/migration decls.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for !p.atEOF() {
		d, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, nil
}

func (p *Parser) parseDecl() (Decl, error) {
	switch p.cur().Text {
	case "N":
		return p.parseNodeSchema()
	case "E":
		return p.parseEdgeSchema()
	case "V":
		return p.parseVectorSchema()
	case "QUERY":
		return p.parseQuery()
	case "MIGRATION":
		return p.parseMigration()
	default:
		return nil, &ParseError{Msg: fmt.Sprintf("unexpected top-level token %q", p.cur().Text), Span: p.cur().Span}
	}
}

func (p *Parser) parseNodeSchema() (*NodeSchema, error) {
	start := p.cur().Span
	if _, err := p.expect("N"); err != nil {
		return nil, err
	}
	if _, err := p.expect("::"); err != nil {
		return nil, err
	}
	label, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	fields, err := p.parseFieldBody()
	if err != nil {
		return nil, err
	}
	return &NodeSchema{Label: label.Text, Fields: fields, Span: start}, nil
}

func (p *Parser) parseEdgeSchema() (*EdgeSchema, error) {
	start := p.cur().Span
	if _, err := p.expect("E"); err != nil {
		return nil, err
	}
	if _, err := p.expect("::"); err != nil {
		return nil, err
	}
	label, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	edge := &EdgeSchema{Label: label.Text, Span: start}
	for !p.check("}") {
		// "Properties" lexes as a Keyword, "From"/"To" as Idents.
		name := p.advance()
		if name.Kind != lexer.Ident && name.Kind != lexer.Keyword {
			return nil, &ParseError{Msg: fmt.Sprintf("expected edge schema member, got %q", name.Text), Span: name.Span}
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		switch name.Text {
		case "From":
			v, err := p.expectKind(lexer.Ident)
			if err != nil {
				return nil, err
			}
			edge.From = v.Text
		case "To":
			v, err := p.expectKind(lexer.Ident)
			if err != nil {
				return nil, err
			}
			edge.To = v.Text
		case "Properties":
			props, err := p.parseFieldBody()
			if err != nil {
				return nil, err
			}
			edge.Properties = props
		default:
			return nil, &ParseError{Msg: fmt.Sprintf("unexpected edge schema member %q", name.Text), Span: name.Span}
		}
		if p.check(",") {
			p.advance()
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return edge, nil
}

func (p *Parser) parseVectorSchema() (*VectorSchema, error) {
	start := p.cur().Span
	if _, err := p.expect("V"); err != nil {
		return nil, err
	}
	if _, err := p.expect("::"); err != nil {
		return nil, err
	}
	label, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	fields, err := p.parseFieldBody()
	if err != nil {
		return nil, err
	}
	return &VectorSchema{Label: label.Text, Fields: fields, Span: start}, nil
}

func (p *Parser) parseFieldBody() ([]Field, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var fields []Field
	for !p.check("}") {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if p.check(",") {
			p.advance()
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return fields, nil
}

func (p *Parser) parseField() (Field, error) {
	start := p.cur().Span
	name, err := p.expectKind(lexer.Ident)
	if err != nil {
		return Field{}, err
	}
	if _, err := p.expect(":"); err != nil {
		return Field{}, err
	}
	typ, err := p.parseFieldType()
	if err != nil {
		return Field{}, err
	}
	indexed := false
	if p.check("INDEX") {
		p.advance()
		indexed = true
	}
	return Field{Name: name.Text, Type: typ, Indexed: indexed, Span: start}, nil
}

func (p *Parser) parseFieldType() (FieldType, error) {
	start := p.cur().Span
	if p.check("[") {
		p.advance()
		elem, err := p.parseFieldType()
		if err != nil {
			return FieldType{}, err
		}
		if _, err := p.expect("]"); err != nil {
			return FieldType{}, err
		}
		return FieldType{IsArray: true, Elem: &elem, Span: start}, nil
	}
	if p.check("{") {
		fields, err := p.parseFieldBody()
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{IsObject: true, Fields: fields, Span: start}, nil
	}
	name := p.advance()
	return FieldType{Name: name.Text, Span: start}, nil
}

func (p *Parser) parseQuery() (*Query, error) {
	start := p.cur().Span
	if _, err := p.expect("QUERY"); err != nil {
		return nil, err
	}
	name, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var params []Param
	for !p.check(")") {
		pstart := p.cur().Span
		pname, err := p.expectKind(lexer.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		ptyp, err := p.parseFieldType()
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: pname.Text, Type: ptyp, Span: pstart})
		if p.check(",") {
			p.advance()
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if _, err := p.expect("=>"); err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	q := &Query{Name: name.Text, Params: params, Span: start}
	for !p.check("RETURN") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		q.Statements = append(q.Statements, s)
	}
	if _, err := p.expect("RETURN"); err != nil {
		return nil, err
	}
	ret, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	q.Return = ret
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	start := p.cur().Span
	switch {
	case p.check("DROP"):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &DropStmt{Expr: e, Span: start}, nil
	case p.check("FOR"):
		return p.parseForStmt()
	case p.cur().Kind == lexer.Ident && p.peekIsArrow():
		name := p.advance()
		if _, err := p.expect("<-"); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Name: name.Text, Expr: e, Span: start}, nil
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: e, Span: start}, nil
	}
}

func (p *Parser) peekIsArrow() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Text == "<-"
}

func (p *Parser) parseForStmt() (*ForStmt, error) {
	start := p.cur().Span
	if _, err := p.expect("FOR"); err != nil {
		return nil, err
	}
	var bindings []string
	if p.check("{") {
		p.advance()
		for !p.check("}") {
			b, err := p.expectKind(lexer.Ident)
			if err != nil {
				return nil, err
			}
			bindings = append(bindings, b.Text)
			if p.check(",") {
				p.advance()
			}
		}
		if _, err := p.expect("}"); err != nil {
			return nil, err
		}
	} else {
		b, err := p.expectKind(lexer.Ident)
		if err != nil {
			return nil, err
		}
		bindings = []string{b.Text}
	}
	if _, err := p.expect("IN"); err != nil {
		return nil, err
	}
	src, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var body []Stmt
	for !p.check("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return &ForStmt{Bindings: bindings, Source: src, Body: body, Span: start}, nil
}

func (p *Parser) parseMigration() (*Migration, error) {
	start := p.cur().Span
	if _, err := p.expect("MIGRATION"); err != nil {
		return nil, err
	}
	from, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("::"); err != nil {
		return nil, err
	}
	fromTag, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("=>"); err != nil {
		return nil, err
	}
	to, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("::"); err != nil {
		return nil, err
	}
	toTag, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	m := &Migration{FromSchema: from.Text + "::" + fromTag.Text, ToSchema: to.Text + "::" + toTag.Text, Span: start}
	for !p.check("}") {
		item, err := p.parseMigrationItem()
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, item)
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Parser) parseMigrationItem() (MigrationItem, error) {
	start := p.cur().Span
	label, err := p.expectKind(lexer.Ident)
	if err != nil {
		return MigrationItem{}, err
	}
	if _, err := p.expect("::"); err != nil {
		return MigrationItem{}, err
	}
	from, err := p.expectKind(lexer.Ident)
	if err != nil {
		return MigrationItem{}, err
	}
	if _, err := p.expect("=>"); err != nil {
		return MigrationItem{}, err
	}
	if _, err := p.expect("_"); err != nil {
		return MigrationItem{}, err
	}
	if _, err := p.expect("::"); err != nil {
		return MigrationItem{}, err
	}
	if _, err := p.expect("{"); err != nil {
		return MigrationItem{}, err
	}
	item := MigrationItem{FromLabel: label.Text + "::" + from.Text, Span: start}
	for !p.check("}") {
		mf, err := p.parseMigrationField()
		if err != nil {
			return MigrationItem{}, err
		}
		item.Fields = append(item.Fields, mf)
		if p.check(",") {
			p.advance()
		}
	}
	if _, err := p.expect("}"); err != nil {
		return MigrationItem{}, err
	}
	return item, nil
}

func (p *Parser) parseMigrationField() (MigrationField, error) {
	start := p.cur().Span
	name, err := p.expectKind(lexer.Ident)
	if err != nil {
		return MigrationField{}, err
	}
	if _, err := p.expect(":"); err != nil {
		return MigrationField{}, err
	}
	src, err := p.parseExpr()
	if err != nil {
		return MigrationField{}, err
	}
	mf := MigrationField{Field: name.Text, Source: src, Span: start}
	if p.check("AS") {
		p.advance()
		typ, err := p.parseFieldType()
		if err != nil {
			return MigrationField{}, err
		}
		mf.Cast = &typ
	}
	return mf, nil
}

// parseExpr parses a traversal chain (or a bare primary expression with no
// chained steps), optionally followed by one comparison operator producing
// a CompareExpr (spec.md §4.2 "Where(predicate)").
func (p *Parser) parseExpr() (Expr, error) {
	start := p.cur().Span
	src, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	var steps []StepExpr
	for p.check("::") {
		p.advance()
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	left := src
	if len(steps) > 0 {
		left = &ChainExpr{Source: src, Steps: steps, Span: start}
	}
	if isCompareOp(p.cur().Text) {
		op := p.advance().Text
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &CompareExpr{Left: left, Op: op, Right: right, Span: start}, nil
	}
	return left, nil
}

func isCompareOp(s string) bool {
	switch s {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func (p *Parser) parsePrimary() (Expr, error) {
	start := p.cur().Span
	switch {
	case p.check("_"):
		p.advance()
		if _, err := p.expect("::"); err != nil {
			return nil, err
		}
		var steps []StepExpr
		for {
			step, err := p.parseStep()
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
			if !p.check("::") {
				break
			}
			p.advance()
		}
		return &AnonExpr{Chain: steps, Span: start}, nil
	case p.cur().Kind == lexer.String:
		tok := p.advance()
		return &Literal{Kind: LitString, Str: unquote(tok.Text), Span: start}, nil
	case p.cur().Kind == lexer.Int:
		tok := p.advance()
		return &Literal{Kind: LitInt, Int: parseInt(tok.Text), Span: start}, nil
	case p.cur().Kind == lexer.Float:
		tok := p.advance()
		return &Literal{Kind: LitFloat, Float: parseFloat(tok.Text), Span: start}, nil
	case p.check("TRUE"):
		p.advance()
		return &Literal{Kind: LitBool, Bool: true, Span: start}, nil
	case p.check("FALSE"):
		p.advance()
		return &Literal{Kind: LitBool, Bool: false, Span: start}, nil
	case p.check("NONE"):
		p.advance()
		return &Literal{Kind: LitNone, Span: start}, nil
	case p.check("{"):
		return p.parseObjectLiteral()
	case isSourceKeyword(p.cur().Text) && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Text == "::":
		return p.parseSourceExpr()
	case p.cur().Kind == lexer.Ident:
		name := p.advance()
		return &Ident{Name: name.Text, Span: start}, nil
	default:
		return nil, &ParseError{Msg: fmt.Sprintf("unexpected token %q in expression", p.cur().Text), Span: start}
	}
}

func isSourceKeyword(s string) bool {
	switch s {
	case "N", "E", "V", "SearchV", "SearchBM25", "HybridSearch", "AddN", "AddE", "AddV":
		return true
	}
	return false
}

func (p *Parser) parseSourceExpr() (*SourceExpr, error) {
	start := p.cur().Span
	kind := p.advance().Text
	if _, err := p.expect("::"); err != nil {
		return nil, err
	}
	label, err := p.expectKind(lexer.Ident)
	if err != nil {
		return nil, err
	}
	src := &SourceExpr{Kind: kind, Label: label.Text, Span: start}
	if p.check("(") {
		p.advance()
		for !p.check(")") {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			src.Args = append(src.Args, a)
			if p.check(",") {
				p.advance()
			}
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	// Only the Add* sources take a `{...}` body; after any other source a
	// `{` belongs to the enclosing statement (e.g. a FOR body).
	if p.check("{") && (kind == "AddN" || kind == "AddE" || kind == "AddV") {
		props, err := p.parseMigrationFieldBody()
		if err != nil {
			return nil, err
		}
		src.Props = props
	}
	return src, nil
}

func (p *Parser) parseMigrationFieldBody() ([]MigrationField, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var fields []MigrationField
	for !p.check("}") {
		mf, err := p.parseMigrationField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, mf)
		if p.check(",") {
			p.advance()
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return fields, nil
}

func (p *Parser) parseObjectLiteral() (*ObjectExpr, error) {
	start := p.cur().Span
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	obj := &ObjectExpr{Span: start}
	for !p.check("}") {
		if p.check(".") {
			p.advance()
			if err := requireDot(p); err != nil {
				return nil, err
			}
			obj.Spread = true
			if p.check(",") {
				p.advance()
			}
			continue
		}
		mf, err := p.parseMigrationField()
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, mf)
		if p.check(",") {
			p.advance()
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return obj, nil
}

func requireDot(p *Parser) error {
	for i := 0; i < 2; i++ {
		if _, err := p.expect("."); err != nil {
			return err
		}
	}
	return nil
}

// parseStep parses one segment following `::` inside a chain: a named
// step call `Name(args)`, a property access `{name}`, an object remap
// `{k: v, ...}`, or an exclusion `!{field, ...}`.
func (p *Parser) parseStep() (StepExpr, error) {
	start := p.cur().Span
	if p.check("!") {
		p.advance()
		if _, err := p.expect("{"); err != nil {
			return StepExpr{}, err
		}
		var excl []string
		for !p.check("}") {
			f, err := p.expectKind(lexer.Ident)
			if err != nil {
				return StepExpr{}, err
			}
			excl = append(excl, f.Text)
			if p.check(",") {
				p.advance()
			}
		}
		if _, err := p.expect("}"); err != nil {
			return StepExpr{}, err
		}
		return StepExpr{Exclude: excl, Span: start}, nil
	}
	if p.check("{") {
		save := p.pos
		p.advance()
		if p.cur().Kind == lexer.Ident && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Text == "}" {
			name := p.advance()
			if _, err := p.expect("}"); err != nil {
				return StepExpr{}, err
			}
			return StepExpr{Property: name.Text, Span: start}, nil
		}
		p.pos = save
		p.advance()
		var obj []MigrationField
		for !p.check("}") {
			mf, err := p.parseMigrationField()
			if err != nil {
				return StepExpr{}, err
			}
			obj = append(obj, mf)
			if p.check(",") {
				p.advance()
			}
		}
		if _, err := p.expect("}"); err != nil {
			return StepExpr{}, err
		}
		return StepExpr{Object: obj, Span: start}, nil
	}
	name, err := p.expectKind(lexer.Ident)
	if err != nil {
		return StepExpr{}, err
	}
	step := StepExpr{Name: name.Text, Span: start}
	if p.check("(") {
		p.advance()
		for !p.check(")") {
			a, err := p.parseExpr()
			if err != nil {
				return StepExpr{}, err
			}
			step.Args = append(step.Args, a)
			if p.check(",") {
				p.advance()
			}
		}
		if _, err := p.expect(")"); err != nil {
			return StepExpr{}, err
		}
	}
	return step, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
