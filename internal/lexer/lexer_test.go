package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monty-lang/monty/internal/diag"
	"github.com/monty-lang/monty/internal/source"
	"github.com/monty-lang/monty/internal/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	sink := diag.New()
	l := New(source.New(strings.NewReader(src)), sink)

	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.End {
			break
		}
	}
	return toks
}

func TestLexer_Keywords(t *testing.T) {
	tests := []struct {
		input string
		kinds []token.Kind
	}{
		{
			input: "fn using if then else binary unary let in",
			kinds: []token.Kind{
				token.Def, token.Extern, token.If, token.Then, token.Else,
				token.Binary, token.Unary, token.Let, token.In, token.End,
			},
		},
		{
			input: "foo bar123 _underscore",
			// '_' is not an identifier character: it lexes as a Char.
			kinds: []token.Kind{token.Identifier, token.Identifier, token.Char, token.Identifier, token.End},
		},
	}

	for _, tt := range tests {
		toks := scanAll(t, tt.input)
		require.Len(t, toks, len(tt.kinds))
		for i, k := range tt.kinds {
			assert.Equalf(t, k, toks[i].Kind, "token %d of %q", i, tt.input)
		}
	}
}

func TestLexer_Numbers(t *testing.T) {
	toks := scanAll(t, "4 5.5 .25")
	require.Len(t, toks, 4)
	assert.Equal(t, 4.0, toks[0].Num)
	assert.Equal(t, 5.5, toks[1].Num)
	assert.Equal(t, 0.25, toks[2].Num)
}

func TestLexer_CommentsAndPunctuation(t *testing.T) {
	toks := scanAll(t, "foo(a, b) # a comment\n;")
	kinds := make([]token.Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		token.Identifier, token.Char, token.Identifier, token.Char,
		token.Identifier, token.Char, token.Char, token.End,
	}, kinds)
}

func TestLexer_OperatorChars(t *testing.T) {
	toks := scanAll(t, "a + b * c < d : e")
	var chars []byte
	for _, tok := range toks {
		if tok.Kind == token.Char {
			chars = append(chars, tok.Ch)
		}
	}
	assert.Equal(t, []byte{'+', '*', '<', ':'}, chars)
}

func TestLexer_SourceLocations(t *testing.T) {
	toks := scanAll(t, "a\nb")
	require.Len(t, toks, 3)
	assert.Equal(t, token.SourceLoc{Line: 1, Col: 0}, toks[0].Loc)
	assert.Equal(t, token.SourceLoc{Line: 2, Col: 0}, toks[1].Loc)
}
