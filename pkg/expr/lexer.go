// Package expr implements the closed expression language used by the
// compute operator: arithmetic, comparison, logical operators, a ternary,
// and a fixed set of builtin functions over a row's named fields. There is
// deliberately no way to reach ambient state, define procedures, or call
// anything outside the builtin set — an expression is a pure function of
// its row.
package expr

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp    // + - * / % == != < <= > >= && || ! ? :
	tokPunct // ( ) ,
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c >= '0' && c <= '9', c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
			l.number()
		case c == '\'' || c == '"':
			if err := l.stringLit(c); err != nil {
				return nil, err
			}
		case isIdentStart(rune(c)):
			l.ident()
		case c == '(' || c == ')' || c == ',':
			l.emit(tokPunct, string(c))
			l.pos++
		default:
			if err := l.operator(); err != nil {
				return nil, err
			}
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF, pos: len(src)})
	return l.toks, nil
}

func (l *lexer) emit(kind tokenKind, text string) {
	l.toks = append(l.toks, token{kind: kind, text: text, pos: l.pos})
}

func (l *lexer) number() {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '.' && !seenDot {
			seenDot = true
		} else if !isDigit(c) {
			break
		}
		l.pos++
	}
	// Optional exponent: e/E, optional sign, at least one digit. A bare
	// trailing "e" is left for the identifier lexer.
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		p := l.pos + 1
		if p < len(l.src) && (l.src[p] == '+' || l.src[p] == '-') {
			p++
		}
		if p < len(l.src) && isDigit(l.src[p]) {
			for p < len(l.src) && isDigit(l.src[p]) {
				p++
			}
			l.pos = p
		}
	}
	l.toks = append(l.toks, token{kind: tokNumber, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) stringLit(quote byte) error {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			if next == quote || next == '\\' {
				sb.WriteByte(next)
				l.pos += 2
				continue
			}
		}
		if c == quote {
			l.pos++
			l.toks = append(l.toks, token{kind: tokString, text: sb.String(), pos: start})
			return nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return fmt.Errorf("unterminated string at offset %d: %w", start, apperrors.ErrExpression)
}

func (l *lexer) ident() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.toks = append(l.toks, token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
}

var twoCharOps = []string{"==", "!=", "<=", ">=", "&&", "||"}

func (l *lexer) operator() error {
	if l.pos+1 < len(l.src) {
		two := l.src[l.pos : l.pos+2]
		for _, op := range twoCharOps {
			if two == op {
				l.emit(tokOp, op)
				l.pos += 2
				return nil
			}
		}
	}
	c := l.src[l.pos]
	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '!', '?', ':':
		l.emit(tokOp, string(c))
		l.pos++
		return nil
	}
	return fmt.Errorf("unexpected character %q at offset %d: %w", c, l.pos, apperrors.ErrExpression)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
