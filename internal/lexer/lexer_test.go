package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/token"
)

func TestNextTokenCoversAllSingleAndDoubleCharTokens(t *testing.T) {
	input := `var x = 1 + 2.5 * (3 - 4) / 5 % 6;
if (x == 1 and x != 2 or x <= 3 and x >= 4) { print x; }
class Foo {} this super nil true false println return fun for while
[1, 2].length() this.name = "hi" // a comment
!done`

	expected := []token.Type{
		token.Var, token.Identifier, token.Equal, token.Number, token.Plus, token.Number,
		token.Star, token.LeftParen, token.Number, token.Minus, token.Number, token.RightParen,
		token.Slash, token.Number, token.Percent, token.Number, token.Semicolon,
		token.If, token.LeftParen, token.Identifier, token.EqualEqual, token.Number,
		token.And, token.Identifier, token.BangEqual, token.Number,
		token.Or, token.Identifier, token.LessEqual, token.Number,
		token.And, token.Identifier, token.GreaterEqual, token.Number, token.RightParen,
		token.LeftBrace, token.Print, token.Identifier, token.Semicolon, token.RightBrace,
		token.Class, token.Identifier, token.LeftBrace, token.RightBrace,
		token.This, token.Super, token.Nil, token.True, token.False, token.Println, token.Return, token.Fun, token.For, token.While,
		token.LeftBracket, token.Number, token.Comma, token.Number, token.RightBracket,
		token.Dot, token.Identifier, token.LeftParen, token.RightParen,
		token.This, token.Dot, token.Identifier, token.Equal, token.String,
		token.Bang, token.Identifier,
		token.EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		require.Equalf(t, want, tok.Type, "token %d: got %s %q", i, tok.Type, tok.Lexeme)
	}
}

func TestNextTokenTracksLineNumbers(t *testing.T) {
	l := New("1\n2\n\n3")
	lines := []int{}
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		lines = append(lines, tok.Line)
	}
	require.Equal(t, []int{1, 2, 4}, lines)
}

func TestNextTokenStringLexeme(t *testing.T) {
	l := New(`"hello world"`)
	tok := l.NextToken()
	require.Equal(t, token.String, tok.Type)
	require.Equal(t, "hello world", tok.Lexeme)
}

func TestNextTokenUnterminatedStringIsIllegal(t *testing.T) {
	l := New(`"oops`)
	tok := l.NextToken()
	require.Equal(t, token.Illegal, tok.Type)
}

func TestNextTokenNumberLexeme(t *testing.T) {
	cases := []string{"42", "3.14", "0"}
	for _, c := range cases {
		l := New(c)
		tok := l.NextToken()
		require.Equal(t, token.Number, tok.Type)
		require.Equal(t, c, tok.Lexeme)
	}
}

func TestNextTokenIllegalCharacter(t *testing.T) {
	l := New("@")
	tok := l.NextToken()
	require.Equal(t, token.Illegal, tok.Type)
	require.Equal(t, "@", tok.Lexeme)
}
