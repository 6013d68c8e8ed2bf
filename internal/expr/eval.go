package expr

import (
	"fmt"
	"regexp"
	"strings"
)

// Env binds parameter names to their request values. Unbound names
// evaluate to the empty string.
type Env map[string]string

// Eval evaluates every clause against env and returns the first clause
// whose predicate does not hold, or nil when all hold. An error means the
// program could not be evaluated at all, such as a dynamic match() pattern
// that does not compile.
func (p *Program) Eval(env Env) (*Clause, error) {
	for i := range p.Clauses {
		c := &p.Clauses[i]
		v, err := eval(c.Pred, env)
		if err != nil {
			return nil, err
		}
		if !v.Truthy() {
			return c, nil
		}
	}
	return nil, nil
}

// Holds reports whether every clause holds for env.
func (p *Program) Holds(env Env) (bool, error) {
	c, err := p.Eval(env)
	return c == nil && err == nil, err
}

func eval(n Node, env Env) (Value, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *VarRef:
		return String(env[n.Name]), nil
	case *Not:
		v, err := eval(n.X, env)
		if err != nil {
			return Value{}, err
		}
		return Boolean(!v.Truthy()), nil
	case *And:
		l, err := eval(n.Left, env)
		if err != nil || !l.Truthy() {
			return Boolean(false), err
		}
		r, err := eval(n.Right, env)
		if err != nil {
			return Value{}, err
		}
		return Boolean(r.Truthy()), nil
	case *Or:
		l, err := eval(n.Left, env)
		if err != nil {
			return Value{}, err
		}
		if l.Truthy() {
			return Boolean(true), nil
		}
		r, err := eval(n.Right, env)
		if err != nil {
			return Value{}, err
		}
		return Boolean(r.Truthy()), nil
	case *Comparison:
		l, err := eval(n.Left, env)
		if err != nil {
			return Value{}, err
		}
		r, err := eval(n.Right, env)
		if err != nil {
			return Value{}, err
		}
		return Boolean(compare(n.Op, l, r)), nil
	case *Call:
		if n.Name == "match" {
			return evalMatch(n, env)
		}
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, env)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		return builtins[n.Name].fn(args), nil
	default:
		return Value{}, fmt.Errorf("expr: unknown node %T", n)
	}
}

// compare is boolean when one side is a boolean and the other reads as one,
// numeric when both sides read as numbers, otherwise a string comparison.
func compare(op string, l, r Value) bool {
	var c int
	lf, lok := l.Float()
	rf, rok := r.Float()
	lb, lbok := boolReading(l)
	rb, rbok := boolReading(r)
	if (l.Kind == KindBool || r.Kind == KindBool) && lbok && rbok {
		if lb != rb {
			c = 1
		}
	} else if lok && rok {
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		}
	} else {
		c = strings.Compare(l.Text(), r.Text())
	}
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

// evalMatch resolves match's subject: a variable reference, or a quoted
// string that names a bound variable, yields that variable's value.
func evalMatch(n *Call, env Env) (Value, error) {
	var subject string
	switch a := n.Args[0].(type) {
	case *VarRef:
		subject = env[a.Name]
	case *Literal:
		if v, ok := env[a.Value.Text()]; ok && a.Value.Kind == KindString {
			subject = v
		} else {
			subject = a.Value.Text()
		}
	default:
		v, err := eval(a, env)
		if err != nil {
			return Value{}, err
		}
		subject = v.Text()
	}

	re := n.re
	if re == nil {
		pat, err := eval(n.Args[1], env)
		if err != nil {
			return Value{}, err
		}
		re, err = regexp.Compile(pat.Text())
		if err != nil {
			return Value{}, fmt.Errorf("match: %w", err)
		}
	}
	return Boolean(re.MatchString(subject)), nil
}

// boolReading reads v in the boolean vocabulary.
func boolReading(v Value) (bool, bool) {
	if v.Kind == KindBool {
		return v.Bool, true
	}
	return ParseBool(v.Text())
}
