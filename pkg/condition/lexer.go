// Package condition evaluates restricted boolean expressions against an
// execution context: comparisons, boolean connectives and dotted field
// access, nothing else. Arbitrary code can never run through it.
package condition

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenOperator // == != > >= < <=
	tokenAnd
	tokenOr
	tokenNot
	tokenLeftParen
	tokenRightParen
)

type token struct {
	kind   tokenKind
	text   string
	number float64
	pos    int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) tokens() ([]token, error) {
	var tokens []token

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)

		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && l.input[l.pos] == ' ' {
		l.pos++
	}

	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch {
	case ch == '(':
		l.pos++

		return token{kind: tokenLeftParen, text: "(", pos: start}, nil
	case ch == ')':
		l.pos++

		return token{kind: tokenRightParen, text: ")", pos: start}, nil
	case ch == '&' || ch == '|':
		if l.pos+1 >= len(l.input) || l.input[l.pos+1] != ch {
			return token{}, fmt.Errorf("unexpected character %q at position %d", ch, start)
		}

		l.pos += 2

		if ch == '&' {
			return token{kind: tokenAnd, text: "&&", pos: start}, nil
		}

		return token{kind: tokenOr, text: "||", pos: start}, nil
	case ch == '!':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
			l.pos += 2

			return token{kind: tokenOperator, text: "!=", pos: start}, nil
		}

		l.pos++

		return token{kind: tokenNot, text: "!", pos: start}, nil
	case ch == '=':
		if l.pos+1 >= len(l.input) || l.input[l.pos+1] != '=' {
			return token{}, fmt.Errorf("single '=' at position %d, use '=='", start)
		}

		l.pos += 2

		return token{kind: tokenOperator, text: "==", pos: start}, nil
	case ch == '>' || ch == '<':
		op := string(ch)

		l.pos++

		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			op += "="
			l.pos++
		}

		return token{kind: tokenOperator, text: op, pos: start}, nil
	case ch == '\'' || ch == '"':
		return l.lexString(ch)
	case ch >= '0' && ch <= '9' || ch == '-':
		return l.lexNumber()
	case isIdentStart(rune(ch)):
		return l.lexIdent()
	default:
		return token{}, fmt.Errorf("unexpected character %q at position %d", ch, start)
	}
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++

	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			l.pos++

			return token{kind: tokenString, text: sb.String(), pos: start}, nil
		}

		sb.WriteByte(ch)
		l.pos++
	}

	return token{}, fmt.Errorf("unterminated string starting at position %d", start)
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos

	if l.input[l.pos] == '-' {
		l.pos++
	}

	for l.pos < len(l.input) && (l.input[l.pos] >= '0' && l.input[l.pos] <= '9' || l.input[l.pos] == '.') {
		l.pos++
	}

	text := l.input[start:l.pos]

	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, fmt.Errorf("invalid number %q at position %d", text, start)
	}

	return token{kind: tokenNumber, text: text, number: number, pos: start}, nil
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos

	for l.pos < len(l.input) && (isIdentStart(rune(l.input[l.pos])) || unicode.IsDigit(rune(l.input[l.pos])) || l.input[l.pos] == '.') {
		l.pos++
	}

	return token{kind: tokenIdent, text: l.input[start:l.pos], pos: start}, nil
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}
