package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokVar
	tokLParen
	tokRParen
	tokComma
	tokMinus
	tokOp
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", t.text)
}

// SyntaxError reports a malformed validation string.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Pos, e.Msg)
}

type lexer struct {
	src string
	pos int
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case c == '-':
		l.pos++
		return token{kind: tokMinus, text: "-", pos: start}, nil
	case c == '"' || c == '\'':
		return l.lexString(c)
	case c == '$':
		end := strings.IndexByte(l.src[l.pos+1:], '$')
		if end < 0 {
			return token{}, &SyntaxError{Pos: start, Msg: "unterminated $variable$"}
		}
		name := l.src[l.pos+1 : l.pos+1+end]
		if name == "" {
			return token{}, &SyntaxError{Pos: start, Msg: "empty $variable$"}
		}
		l.pos += end + 2
		return token{kind: tokVar, text: name, pos: start}, nil
	case c >= '0' && c <= '9' || c == '.' && l.peekDigit(1):
		return l.lexNumber(), nil
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		word := l.src[start:l.pos]
		switch strings.ToUpper(word) {
		case "AND":
			return token{kind: tokAnd, text: word, pos: start}, nil
		case "OR":
			return token{kind: tokOr, text: word, pos: start}, nil
		case "NOT":
			return token{kind: tokNot, text: word, pos: start}, nil
		}
		return token{kind: tokIdent, text: word, pos: start}, nil
	}

	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "&&":
		l.pos += 2
		return token{kind: tokAnd, text: two, pos: start}, nil
	case "||":
		l.pos += 2
		return token{kind: tokOr, text: two, pos: start}, nil
	case "==", "!=", "<=", ">=":
		l.pos += 2
		return token{kind: tokOp, text: two, pos: start}, nil
	}
	switch c {
	case '=', '<', '>':
		l.pos++
		return token{kind: tokOp, text: string(c), pos: start}, nil
	case '!':
		l.pos++
		return token{kind: tokNot, text: "!", pos: start}, nil
	}
	return token{}, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

func (l *lexer) peekDigit(off int) bool {
	i := l.pos + off
	return i < len(l.src) && l.src[i] >= '0' && l.src[i] <= '9'
}

func (l *lexer) lexNumber() token {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '.' && !seenDot && l.peekDigit(1) {
			seenDot = true
			l.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		l.pos++
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}
}

// lexString reads a quoted literal. A backslash escapes the quote character
// and itself; any other backslash is kept, so regexes survive unchanged.
func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			n := l.src[l.pos+1]
			if n == quote || n == '\\' {
				b.WriteByte(n)
				l.pos += 2
				continue
			}
			b.WriteByte(c)
			l.pos++
			continue
		}
		if c == quote {
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unterminated string"}
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.' || c == '*'
}
