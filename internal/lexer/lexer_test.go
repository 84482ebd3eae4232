package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	l := New(src)
	var types []TokenType
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == EOF {
			break
		}
	}
	return types
}

func TestLexerKeywordsAndPunctuation(t *testing.T) {
	types := tokenTypes(t, "module M where { data Maybe a = Nothing | Just a ; }")
	require.NotEmpty(t, types)
	assert.Equal(t, MODULE, types[0])
	assert.Contains(t, types, WHERE)
	assert.Contains(t, types, DATA)
	assert.Contains(t, types, PIPE)
	assert.Contains(t, types, LBRACE)
	assert.Contains(t, types, RBRACE)
}

func TestLexerOperators(t *testing.T) {
	l := New("x :: a => a -> a ; f = \\x -> x")
	var texts []string
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		texts = append(texts, tok.Text)
	}
	assert.Contains(t, texts, "::")
	assert.Contains(t, texts, "=>")
	assert.Contains(t, texts, "->")
	assert.Contains(t, texts, "\\")
}

func TestLexerFloatWithTrailingDot(t *testing.T) {
	l := New("3. 2.")
	tok := l.NextToken()
	assert.Equal(t, FLOAT, tok.Type)
	assert.Equal(t, "3.", tok.Text)
	tok = l.NextToken()
	assert.Equal(t, FLOAT, tok.Type)
	assert.Equal(t, "2.", tok.Text)
}

func TestLexerIdentifierVsConstructor(t *testing.T) {
	l := New("mult2 Test True")
	assert.Equal(t, IDENT, l.NextToken().Type)
	assert.Equal(t, CONID, l.NextToken().Type)
	assert.Equal(t, CONID, l.NextToken().Type)
}

func TestLexerComments(t *testing.T) {
	types := tokenTypes(t, "x -- a comment\n = 1")
	assert.Equal(t, []TokenType{IDENT, EQUALS, INT, EOF}, types)
}

func TestLexerUnterminatedStringIsIllegal(t *testing.T) {
	l := New(`"never closed`)
	tok := l.NextToken()
	assert.Equal(t, ILLEGAL, tok.Type)
}

func TestLexerConsOperator(t *testing.T) {
	l := New("x : xs")
	assert.Equal(t, IDENT, l.NextToken().Type)
	op := l.NextToken()
	assert.Equal(t, OPERATOR, op.Type)
	assert.Equal(t, ":", op.Text)
}
