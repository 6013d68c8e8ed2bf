package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var quotedVarRe = regexp.MustCompile(`^\$([^$]+)\$$`)

type parser struct {
	toks []token
	pos  int
}

// Parse parses a validation string into a Program. Unknown functions, wrong
// arities and invalid literal regexes are reported here rather than at
// evaluation time.
func Parse(src string) (*Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, &SyntaxError{Msg: "empty expression"}
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	prog := &Program{Source: src}
	for {
		c, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		prog.Clauses = append(prog.Clauses, c)
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return prog, nil
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(off int) token {
	if p.pos+off >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+off]
}

func (p *parser) advance() token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.advance()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", what, t)
	}
	return t, nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseClause() (Clause, error) {
	if t := p.peek(); t.kind == tokIdent && t.text == "validate" && p.peekAt(1).kind == tokLParen {
		p.advance()
		p.advance()
		pred, err := p.parseExpr()
		if err != nil {
			return Clause{}, err
		}
		if _, err := p.expect(tokComma, "',' before validate message"); err != nil {
			return Clause{}, err
		}
		msg, err := p.expect(tokString, "validate message string")
		if err != nil {
			return Clause{}, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return Clause{}, err
		}
		return Clause{Pred: pred, Message: msg.text}, nil
	}
	pred, err := p.parseExpr()
	if err != nil {
		return Clause{}, err
	}
	return Clause{Pred: pred}, nil
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.peek().kind == tokNot {
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp {
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		op := t.text
		if op == "=" {
			op = "=="
		}
		return &Comparison{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.advance()
	switch t.kind {
	case tokNumber:
		return numberLiteral(p, t, false)
	case tokMinus:
		n, err := p.expect(tokNumber, "number after '-'")
		if err != nil {
			return nil, err
		}
		return numberLiteral(p, n, true)
	case tokString:
		if m := quotedVarRe.FindStringSubmatch(t.text); m != nil {
			return &VarRef{Name: m[1]}, nil
		}
		return &Literal{Value: String(t.text)}, nil
	case tokVar:
		return &VarRef{Name: t.text}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		switch strings.ToLower(t.text) {
		case "true":
			return &Literal{Value: Boolean(true)}, nil
		case "false":
			return &Literal{Value: Boolean(false)}, nil
		}
		return &VarRef{Name: t.text}, nil
	case tokLParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, p.errorf(t, "unexpected %s", t)
	}
}

func numberLiteral(p *parser, t token, negative bool) (Node, error) {
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return nil, p.errorf(t, "invalid number %q", t.text)
	}
	if negative {
		f = -f
	}
	return &Literal{Value: Number(f)}, nil
}

func (p *parser) parseCall(name token) (Node, error) {
	p.advance() // (
	call := &Call{Name: name.text}
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(tokRParen, "')' after arguments"); err != nil {
		return nil, err
	}

	b, ok := builtins[call.Name]
	if !ok {
		return nil, p.errorf(name, "unknown function %q", call.Name)
	}
	if len(call.Args) != b.arity {
		return nil, p.errorf(name, "%s takes %d argument(s), got %d", call.Name, b.arity, len(call.Args))
	}
	if call.Name == "match" {
		if lit, ok := call.Args[1].(*Literal); ok {
			re, err := regexp.Compile(lit.Value.Text())
			if err != nil {
				return nil, p.errorf(name, "invalid regex in match: %v", err)
			}
			call.re = re
		}
	}
	return call, nil
}
