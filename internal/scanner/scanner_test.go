package scanner

import (
	"testing"

	"github.com/kristofer/glox/internal/token"
)

func TestNextToken_BasicTokens(t *testing.T) {
	input := `( ) { } , . - + ; / *`

	tests := []struct {
		expectedKind   token.Kind
		expectedLexeme string
	}{
		{token.LeftParen, "("},
		{token.RightParen, ")"},
		{token.LeftBrace, "{"},
		{token.RightBrace, "}"},
		{token.Comma, ","},
		{token.Dot, "."},
		{token.Minus, "-"},
		{token.Plus, "+"},
		{token.Semicolon, ";"},
		{token.Slash, "/"},
		{token.Star, "*"},
		{token.EOF, ""},
	}

	s := New(input)
	for i, tt := range tests {
		tok := s.NextToken()
		if tok.Kind != tt.expectedKind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s", i, tt.expectedKind, tok.Kind)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

func TestNextToken_OneOrTwoCharOperators(t *testing.T) {
	input := `! != = == > >= < <=`

	tests := []struct {
		expectedKind   token.Kind
		expectedLexeme string
	}{
		{token.Bang, "!"},
		{token.BangEqual, "!="},
		{token.Equal, "="},
		{token.EqualEqual, "=="},
		{token.Greater, ">"},
		{token.GreaterEqual, ">="},
		{token.Less, "<"},
		{token.LessEqual, "<="},
		{token.EOF, ""},
	}

	s := New(input)
	for i, tt := range tests {
		tok := s.NextToken()
		if tok.Kind != tt.expectedKind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s", i, tt.expectedKind, tok.Kind)
		}
	}
}

func TestNextToken_Keywords(t *testing.T) {
	input := `and class else false fun for if nil or print return super this true var while notakeyword`

	tests := []token.Kind{
		token.And, token.Class, token.Else, token.False, token.Fun, token.For,
		token.If, token.Nil, token.Or, token.Print, token.Return, token.Super,
		token.This, token.True, token.Var, token.While, token.Identifier,
	}

	s := New(input)
	for i, want := range tests {
		tok := s.NextToken()
		if tok.Kind != want {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s", i, want, tok.Kind)
		}
	}
}

func TestNextToken_StringAndNumber(t *testing.T) {
	input := `"hello world" 123 3.14 .5`

	s := New(input)

	str := s.NextToken()
	if str.Kind != token.String || str.Lexeme != `hello world` {
		t.Fatalf("string token wrong: %+v", str)
	}

	num := s.NextToken()
	if num.Kind != token.Number || num.Lexeme != "123" {
		t.Fatalf("number token wrong: %+v", num)
	}

	frac := s.NextToken()
	if frac.Kind != token.Number || frac.Lexeme != "3.14" {
		t.Fatalf("fractional number token wrong: %+v", frac)
	}

	// A leading '.' not preceded by a digit is its own Dot token, not the
	// start of a number (spec §2's number-lexing rule).
	dot := s.NextToken()
	if dot.Kind != token.Dot {
		t.Fatalf("expected Dot before .5, got %+v", dot)
	}
}

func TestNextToken_UnterminatedString(t *testing.T) {
	s := New(`"unterminated`)
	tok := s.NextToken()
	if tok.Kind != token.Error {
		t.Fatalf("expected Error token for unterminated string, got %s", tok.Kind)
	}
}

func TestNextToken_LineTracking(t *testing.T) {
	input := "var a = 1;\nvar b = 2;\n"
	s := New(input)

	var lastLine int
	for {
		tok := s.NextToken()
		if tok.Kind == token.EOF {
			lastLine = tok.Line
			break
		}
		if tok.Lexeme == "b" {
			if tok.Line != 2 {
				t.Fatalf("expected 'b' on line 2, got line %d", tok.Line)
			}
		}
	}
	if lastLine != 3 {
		t.Fatalf("expected EOF on line 3, got line %d", lastLine)
	}
}

func TestTokenize(t *testing.T) {
	toks := Tokenize("print 1 + 2;")
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("Tokenize did not terminate with EOF: %+v", toks)
	}
	if toks[0].Kind != token.Print {
		t.Fatalf("expected first token to be Print, got %s", toks[0].Kind)
	}
}
