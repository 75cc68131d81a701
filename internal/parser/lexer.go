package parser

import (
	"unicode/utf8"

	"github.com/LegoTypes/synthformula/internal/types"
)

const eof = -1

// Lexer tokenizes formula text one rune at a time, in the spirit of the
// teacher's accept/backup scanning style, adapted to this grammar's token
// alphabet (§4.1 grammar).
type Lexer struct {
	input   string
	start   int
	current int
	width   int
	length  int
	err     *types.Error
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, length: len(input)}
}

// Error returns the first lexical error encountered, if any.
func (l *Lexer) Error() *types.Error { return l.err }

// Next returns the next token, skipping leading whitespace.
func (l *Lexer) Next() Token {
	l.skipWhitespace()
	l.start = l.current

	ch := l.nextRune()
	switch {
	case ch == eof:
		return l.newToken(TokEOF)
	case ch == '(':
		return l.newToken(TokLParen)
	case ch == ')':
		return l.newToken(TokRParen)
	case ch == ',':
		return l.newToken(TokComma)
	case ch == '.':
		if l.peekIsDigit() {
			l.backup()
			return l.scanNumber()
		}
		return l.newToken(TokDot)
	case ch == '?':
		return l.newToken(TokQuestion)
	case ch == ':':
		return l.newToken(TokColon)
	case ch == '+':
		return l.newToken(TokPlus)
	case ch == '-':
		return l.newToken(TokMinus)
	case ch == '*':
		return l.newToken(TokMult)
	case ch == '/':
		return l.newToken(TokDiv)
	case ch == '%':
		return l.newToken(TokMod)
	case ch == '=':
		if l.acceptRune('=') {
			return l.newToken(TokEq)
		}
		return l.errorToken(types.ErrSyntaxError, "expected '==', got a single '='")
	case ch == '!':
		if l.acceptRune('=') {
			return l.newToken(TokNotEq)
		}
		return l.errorToken(types.ErrSyntaxError, "expected '!=' after '!'")
	case ch == '<':
		if l.acceptRune('=') {
			return l.newToken(TokLe)
		}
		return l.newToken(TokLt)
	case ch == '>':
		if l.acceptRune('=') {
			return l.newToken(TokGe)
		}
		return l.newToken(TokGt)
	case ch == '"' || ch == '\'':
		return l.scanString(ch)
	case ch >= '0' && ch <= '9':
		l.backup()
		return l.scanNumber()
	case isNameStart(ch):
		l.backup()
		return l.scanName()
	default:
		return l.errorToken(types.ErrSyntaxError, "unexpected character")
	}
}

func (l *Lexer) scanString(quote rune) Token {
	for {
		switch l.nextRune() {
		case quote:
			val := l.input[l.start+1 : l.current-1]
			return Token{Kind: TokString, Value: val, Position: l.start}
		case '\\':
			if l.nextRune() == eof {
				return l.errorToken(types.ErrSyntaxError, "unterminated string literal")
			}
		case eof, '\n':
			return l.errorToken(types.ErrSyntaxError, "unterminated string literal")
		}
	}
}

func (l *Lexer) scanNumber() Token {
	l.acceptAll(isDigit)
	if l.acceptRune('.') {
		l.acceptAll(isDigit)
	}
	if l.acceptRunes('e', 'E') {
		l.acceptRunes('+', '-')
		l.acceptAll(isDigit)
	}
	return l.newToken(TokNumber)
}

func (l *Lexer) scanName() Token {
	for {
		ch := l.nextRune()
		if ch == eof || !isNameCont(ch) {
			l.backup()
			break
		}
	}
	t := l.newToken(TokName)
	if kw, ok := keywords[t.Value]; ok {
		t.Kind = kw
	}
	return t
}

func (l *Lexer) skipWhitespace() {
	for {
		ch := l.nextRune()
		if ch == eof || !isWhitespace(ch) {
			l.backup()
			return
		}
	}
}

func (l *Lexer) newToken(k TokenKind) Token {
	return Token{Kind: k, Value: l.input[l.start:l.current], Position: l.start}
}

func (l *Lexer) errorToken(code types.ErrorCode, msg string) Token {
	l.err = types.NewError(code, msg).WithPosition(l.start)
	return Token{Kind: TokError, Value: l.input[l.start:l.current], Position: l.start}
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() { l.current -= l.width }

func (l *Lexer) peekIsDigit() bool {
	if l.current >= l.length {
		return false
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return isDigit(r)
}

func (l *Lexer) acceptRune(r rune) bool {
	if l.nextRune() == r {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptRunes(a, b rune) bool {
	c := l.nextRune()
	if c == a || c == b {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) {
	for {
		if !isValid(l.nextRune()) {
			l.backup()
			return
		}
	}
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameCont(r rune) bool {
	return isNameStart(r) || isDigit(r)
}
