// Package scanner implements the lexical analyzer for Lox source text.
//
// It is a forward-only token source: NextToken advances the scan position
// and returns the token it consumed. There is no look-ahead beyond the
// single character the scanner itself peeks at to disambiguate
// two-character operators. Callers that need one token of look-ahead (the
// compiler and the tree-walking parser both do) buffer it themselves.
//
// The shape of this file — a byte cursor, readChar/peekChar, and a single
// big switch in NextToken — follows the teacher's pkg/lexer/lexer.go, with
// the Smalltalk-specific token set (pipes, carets, keyword-message colons)
// replaced by Lox's C-like grammar.
package scanner

import (
	"strings"

	"github.com/kristofer/glox/internal/token"
)

// Scanner turns source text into a token at a time.
type Scanner struct {
	source string
	start  int // start of the token currently being scanned
	pos    int // index of the next unread byte
	line   int
}

// New creates a Scanner over src. The caller must keep src alive for as
// long as the Scanner is in use — the Scanner slices directly into it
// rather than copying (spec §9, "Suspended source pinning").
func New(src string) *Scanner {
	return &Scanner{source: src, line: 1}
}

// atEnd reports whether the cursor has consumed the whole source.
func (s *Scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

// advance consumes and returns the current byte.
func (s *Scanner) advance() byte {
	c := s.source[s.pos]
	s.pos++
	return c
}

// peek returns the current unread byte without consuming it, or 0 at end
// of input.
func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

// peekNext returns the byte after the current one, or 0 past the end.
func (s *Scanner) peekNext() byte {
	if s.pos+1 >= len(s.source) {
		return 0
	}
	return s.source[s.pos+1]
}

// match consumes the current byte and returns true if it equals want;
// otherwise it leaves the cursor untouched and returns false. Used for
// the one-character look-ahead that distinguishes e.g. "!" from "!=".
func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.source[s.pos] != want {
		return false
	}
	s.pos++
	return true
}

// NextToken returns the next token from the source. Once EOF has been
// returned, every subsequent call returns the same EOF token again
// (spec §4.1).
func (s *Scanner) NextToken() token.Token {
	s.skipWhitespaceAndComments()
	s.start = s.pos

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LeftParen)
	case ')':
		return s.make(token.RightParen)
	case '{':
		return s.make(token.LeftBrace)
	case '}':
		return s.make(token.RightBrace)
	case ',':
		return s.make(token.Comma)
	case '.':
		return s.make(token.Dot)
	case '-':
		return s.make(token.Minus)
	case '+':
		return s.make(token.Plus)
	case ';':
		return s.make(token.Semicolon)
	case '*':
		return s.make(token.Star)
	case '/':
		return s.make(token.Slash)
	case '!':
		if s.match('=') {
			return s.make(token.BangEqual)
		}
		return s.make(token.Bang)
	case '=':
		if s.match('=') {
			return s.make(token.EqualEqual)
		}
		return s.make(token.Equal)
	case '<':
		if s.match('=') {
			return s.make(token.LessEqual)
		}
		return s.make(token.Less)
	case '>':
		if s.match('=') {
			return s.make(token.GreaterEqual)
		}
		return s.make(token.Greater)
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

// skipWhitespaceAndComments advances past spaces, tabs, carriage returns,
// newlines (tracking the line counter), and "//" line comments.
func (s *Scanner) skipWhitespaceAndComments() {
	for {
		if s.atEnd() {
			return
		}
		switch s.peek() {
		case ' ', '\r', '\t':
			s.pos++
		case '\n':
			s.line++
			s.pos++
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.pos++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

// string scans a double-quoted string literal. The opening quote has
// already been consumed by NextToken.
func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.pos++
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.pos++ // closing quote
	// Lexeme excludes the surrounding quotes; the compiler interns the
	// contents directly.
	return token.Token{Kind: token.String, Lexeme: s.source[s.start+1 : s.pos-1], Line: s.line}
}

// number scans an integer or floating-point literal. A '.' only joins the
// number if it is followed by another digit, so that "1.method" style
// statement-terminator periods are never swallowed.
func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.pos++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.pos++ // consume the '.'
		for isDigit(s.peek()) {
			s.pos++
		}
	}
	return s.make(token.Number)
}

// identifier scans an identifier or keyword.
func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.pos++
	}
	lexeme := s.source[s.start:s.pos]
	return token.Token{Kind: token.Lookup(lexeme), Lexeme: lexeme, Line: s.line}
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.source[s.start:s.pos], Line: s.line}
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Kind: token.Error, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// Tokenize drains the scanner into a slice, for callers that want the
// whole stream up front (both parsers pull tokens one at a time through
// NextToken instead). It stops after the first EOF.
func Tokenize(src string) []token.Token {
	sc := New(src)
	var toks []token.Token
	for {
		t := sc.NextToken()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return toks
}

// DumpLexemes reconstructs source text by concatenating a token slice's
// lexemes with single spaces. Original whitespace is not preserved, and
// string lexemes come back without their surrounding quotes.
func DumpLexemes(toks []token.Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Lexeme)
	}
	return b.String()
}
