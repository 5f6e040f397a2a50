package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeSchemaAndQuery(t *testing.T) {
	src := `N::User {
  name: String,
  email: String INDEX,
}

QUERY findUser(email: String) => {
  u <- N::User::Where(true)
  RETURN u
}`
	toks, err := Tokenize("test.hx", src)
	require.NoError(t, err)
	require.NotEmpty(t, toks)

	assert.Equal(t, EOF, toks[len(toks)-1].Kind)

	var texts []string
	for _, tok := range toks {
		if tok.Kind != EOF {
			texts = append(texts, tok.Text)
		}
	}
	assert.Contains(t, texts, "N")
	assert.Contains(t, texts, "::")
	assert.Contains(t, texts, "INDEX")
	assert.Contains(t, texts, "QUERY")
	assert.Contains(t, texts, "<-")
	assert.Contains(t, texts, "=>")
}

func TestTokenizeClassifiesKeywordsAndIdents(t *testing.T) {
	toks, err := Tokenize("t.hx", "QUERY foo")
	require.NoError(t, err)
	require.Len(t, toks, 3) // QUERY, foo, EOF
	assert.Equal(t, Keyword, toks[0].Kind)
	assert.Equal(t, Ident, toks[1].Kind)
}

func TestTokenizeStringsIntsAndFloats(t *testing.T) {
	toks, err := Tokenize("t.hx", `"hello" 42 3.5`)
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, String, toks[0].Kind)
	assert.Equal(t, `"hello"`, toks[0].Text)
	assert.Equal(t, Int, toks[1].Kind)
	assert.Equal(t, Float, toks[2].Kind)
}

func TestTokenizeSkipsCommentsAndWhitespace(t *testing.T) {
	toks, err := Tokenize("t.hx", "// a comment\nQUERY  // trailing\nfoo")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, "QUERY", toks[0].Text)
	assert.Equal(t, "foo", toks[1].Text)
}

func TestTokenizeTracksLineAndColumn(t *testing.T) {
	toks, err := Tokenize("t.hx", "QUERY\nfoo")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, 1, toks[0].Span.Start.Line)
	assert.Equal(t, 1, toks[0].Span.Start.Column)
	assert.Equal(t, 2, toks[1].Span.Start.Line)
	assert.Equal(t, 1, toks[1].Span.Start.Column)
}
